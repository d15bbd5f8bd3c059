package workflow

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fieldsync/fieldsync/engine/core"
)

// yaml.v3 has no native time.Duration support, so duration-bearing types
// decode through an aux shape where durations are "30s"-style strings.
type yamlDuration time.Duration

func (d *yamlDuration) UnmarshalYAML(value *yaml.Node) error {
	if value.Value == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = yamlDuration(parsed)
	return nil
}

func (s *Step) UnmarshalYAML(value *yaml.Node) error {
	var aux struct {
		Name        string       `yaml:"name"`
		Action      string       `yaml:"action"`
		With        core.Params  `yaml:"with"`
		Condition   string       `yaml:"condition"`
		Timeout     yamlDuration `yaml:"timeout"`
		MaxAttempts int          `yaml:"max_attempts"`
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	*s = Step{
		Name:        aux.Name,
		Action:      aux.Action,
		With:        aux.With,
		Condition:   aux.Condition,
		Timeout:     time.Duration(aux.Timeout),
		MaxAttempts: aux.MaxAttempts,
	}
	return nil
}

func (p *RetryPolicy) UnmarshalYAML(value *yaml.Node) error {
	var aux struct {
		MaxAttempts  int          `yaml:"max_attempts"`
		Backoff      BackoffKind  `yaml:"backoff"`
		InitialDelay yamlDuration `yaml:"initial_delay"`
		MaxDelay     yamlDuration `yaml:"max_delay"`
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	*p = RetryPolicy{
		MaxAttempts:  aux.MaxAttempts,
		Backoff:      aux.Backoff,
		InitialDelay: time.Duration(aux.InitialDelay),
		MaxDelay:     time.Duration(aux.MaxDelay),
	}
	return nil
}
