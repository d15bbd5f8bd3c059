package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fieldsync/fieldsync/engine/action"
	"github.com/fieldsync/fieldsync/engine/core"
	"github.com/fieldsync/fieldsync/engine/dedup"
)

// decodeParams maps loosely-typed action parameters onto a request struct
// via a JSON round trip, so workflow definitions stay plain data.
func decodeParams(params core.Params, out any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to encode action params: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode action params: %w", err)
	}
	return nil
}

func parseSince(params core.Params) (time.Time, error) {
	raw, ok := params["since"]
	if !ok {
		return time.Time{}, nil
	}
	s, ok := raw.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("since must be an RFC3339 string")
	}
	since, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid since value %q: %w", s, err)
	}
	return since, nil
}

// BindPropertyManagement exposes a property management adapter's operations
// under the "propertyManagement" capability.
func BindPropertyManagement(registry *action.Registry, pm PropertyManagement) error {
	return registry.Register("propertyManagement", map[string]action.Handler{
		"getPortfolios": func(ctx context.Context, _ core.Params) (core.Output, error) {
			return pm.GetPortfolios(ctx)
		},
		"getBuildings": func(ctx context.Context, params core.Params) (core.Output, error) {
			portfolioID, _ := params["portfolio_id"].(string)
			return pm.GetBuildings(ctx, portfolioID)
		},
		"getWorkOrders": func(ctx context.Context, params core.Params) (core.Output, error) {
			since, err := parseSince(params)
			if err != nil {
				return nil, err
			}
			return pm.GetWorkOrders(ctx, since)
		},
		"createWorkOrder": func(ctx context.Context, params core.Params) (core.Output, error) {
			var wo WorkOrder
			if err := decodeParams(params, &wo); err != nil {
				return nil, err
			}
			return pm.CreateWorkOrder(ctx, wo)
		},
		"updateWorkOrder": func(ctx context.Context, params core.Params) (core.Output, error) {
			var wo WorkOrder
			if err := decodeParams(params, &wo); err != nil {
				return nil, err
			}
			return pm.UpdateWorkOrder(ctx, wo)
		},
		"getCustomers": func(ctx context.Context, _ core.Params) (core.Output, error) {
			return pm.GetCustomers(ctx)
		},
	})
}

// BindFieldService exposes a field service adapter's operations under the
// "fieldService" capability.
func BindFieldService(registry *action.Registry, fs FieldService) error {
	return registry.Register("fieldService", map[string]action.Handler{
		"getCustomers": func(ctx context.Context, _ core.Params) (core.Output, error) {
			return fs.GetCustomers(ctx)
		},
		"getJobs": func(ctx context.Context, params core.Params) (core.Output, error) {
			since, err := parseSince(params)
			if err != nil {
				return nil, err
			}
			return fs.GetJobs(ctx, since)
		},
		"createJob": func(ctx context.Context, params core.Params) (core.Output, error) {
			var job Job
			if err := decodeParams(params, &job); err != nil {
				return nil, err
			}
			return fs.CreateJob(ctx, job)
		},
		"updateJob": func(ctx context.Context, params core.Params) (core.Output, error) {
			var job Job
			if err := decodeParams(params, &job); err != nil {
				return nil, err
			}
			return fs.UpdateJob(ctx, job)
		},
		"getTechnicians": func(ctx context.Context, _ core.Params) (core.Output, error) {
			return fs.GetTechnicians(ctx)
		},
	})
}

// FindMatchesResult is the shape workflows see from
// deduplication.findMatches; later steps address it by path
// (e.g. "results.1.count").
type FindMatchesResult struct {
	Matches       []dedup.Match `json:"matches"`
	Count         int           `json:"count"`
	TopConfidence float64       `json:"top_confidence"`
}

// BindDeduplication exposes the deduplication engine as an action, so
// workflows can check for duplicates before create operations.
func BindDeduplication(registry *action.Registry, engine *dedup.Engine) error {
	return registry.Register("deduplication", map[string]action.Handler{
		"findMatches": func(ctx context.Context, params core.Params) (core.Output, error) {
			var req struct {
				Entity *dedup.Entity `json:"entity"`
			}
			if err := decodeParams(params, &req); err != nil {
				return nil, err
			}
			if req.Entity == nil {
				// Tolerate a flat shape where the params are the entity.
				var flat dedup.Entity
				if err := decodeParams(params, &flat); err != nil {
					return nil, err
				}
				req.Entity = &flat
			}
			matches, err := engine.FindMatches(ctx, req.Entity)
			if err != nil {
				return nil, err
			}
			result := FindMatchesResult{Matches: matches, Count: len(matches)}
			if len(matches) > 0 {
				result.TopConfidence = matches[0].Confidence
			}
			return result, nil
		},
	})
}

// BindNotification exposes a notification sink under the "notification"
// capability.
func BindNotification(registry *action.Registry, sink NotificationSink) error {
	return registry.Register("notification", map[string]action.Handler{
		"send": func(ctx context.Context, params core.Params) (core.Output, error) {
			subject, _ := params["subject"].(string)
			body, _ := params["body"].(string)
			if err := sink.Send(ctx, subject, body); err != nil {
				return nil, err
			}
			return map[string]any{"sent": true}, nil
		},
	})
}
