package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces every environment variable read by Load.
const envPrefix = "FIELDSYNC_"

// Config is the full service configuration. Defaults come from Default(),
// overridden by FIELDSYNC_* environment variables
// (e.g. FIELDSYNC_DEDUP_THRESHOLD=0.85).
type Config struct {
	Log      LogConfig      `koanf:"log"`
	Workflow WorkflowConfig `koanf:"workflow"`
	Dedup    DedupConfig    `koanf:"dedup"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	JSON  bool   `koanf:"json"`
}

// WorkflowConfig carries engine-wide step defaults. A step or workflow
// definition may override any of them.
type WorkflowConfig struct {
	StepTimeout  time.Duration `koanf:"steptimeout"  validate:"gt=0"`
	MaxAttempts  int           `koanf:"maxattempts"  validate:"min=1"`
	Backoff      string        `koanf:"backoff"      validate:"oneof=fixed linear exponential"`
	InitialDelay time.Duration `koanf:"initialdelay" validate:"gt=0"`
	MaxDelay     time.Duration `koanf:"maxdelay"     validate:"gte=0"`
	// Retention bounds how long finished executions stay inspectable in memory.
	Retention time.Duration `koanf:"retention" validate:"gt=0"`
}

type DedupConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Threshold  float64       `koanf:"threshold"  validate:"gte=0,lte=1"`
	CacheTTL   time.Duration `koanf:"cachettl"   validate:"gt=0"`
	CacheSize  int           `koanf:"cachesize"  validate:"min=1"`
	Strategies []string      `koanf:"strategies" validate:"min=1,dive,oneof=entity-id address-matching name-fuzzy phone-email parent-child work-order-history"`
	// WorkOrderWindow is the trailing time window used by the
	// work-order-history strategy.
	WorkOrderWindow time.Duration `koanf:"workorderwindow" validate:"gt=0"`
}

func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Workflow: WorkflowConfig{
			StepTimeout:  30 * time.Second,
			MaxAttempts:  3,
			Backoff:      "exponential",
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Retention:    5 * time.Minute,
		},
		Dedup: DedupConfig{
			Enabled:   true,
			Threshold: 0.9,
			CacheTTL:  time.Hour,
			CacheSize: 2048,
			Strategies: []string{
				"entity-id",
				"address-matching",
				"name-fuzzy",
				"phone-email",
				"parent-child",
				"work-order-history",
			},
			WorkOrderWindow: 7 * 24 * time.Hour,
		},
	}
}

// Load builds the configuration from defaults and environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.TrimPrefix(key, envPrefix)
			return strings.ReplaceAll(strings.ToLower(key), "_", "."), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks structural constraints on a config, wherever it came from.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
