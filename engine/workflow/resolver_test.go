package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsync/fieldsync/engine/core"
)

func TestResolveParams(t *testing.T) {
	t.Parallel()
	mkCtx := func(t *testing.T, params core.Params, results []core.Output) *templateContext {
		t.Helper()
		tctx, err := newTemplateContext(params, results)
		require.NoError(t, err)
		return tctx
	}

	t.Run("Should substitute whole-string tokens from params", func(t *testing.T) {
		tctx := mkCtx(t, core.Params{"portfolioId": "pf-1"}, nil)
		out := resolveParams(core.Params{"id": "{{params.portfolioId}}"}, tctx)
		assert.Equal(t, "pf-1", out["id"])
	})
	t.Run("Should substitute values from prior step results", func(t *testing.T) {
		tctx := mkCtx(t, nil, []core.Output{
			map[string]any{"id": "X", "portfolioIds": []any{"a", "b"}},
		})
		out := resolveParams(core.Params{
			"first": "{{results.0.id}}",
			"ids":   "{{results.0.portfolioIds}}",
		}, tctx)
		assert.Equal(t, "X", out["first"])
		assert.Equal(t, []any{"a", "b"}, out["ids"])
	})
	t.Run("Should be idempotent for a fixed context", func(t *testing.T) {
		tctx := mkCtx(t, nil, []core.Output{map[string]any{"id": "X"}})
		tpl := core.Params{"v": "{{results.0.id}}"}
		first := resolveParams(tpl, tctx)
		second := resolveParams(tpl, tctx)
		assert.Equal(t, "X", first["v"])
		assert.Equal(t, first, second)
	})
	t.Run("Should drop keys whose path does not resolve", func(t *testing.T) {
		tctx := mkCtx(t, core.Params{}, nil)
		out := resolveParams(core.Params{
			"missing": "{{results.3.id}}",
			"kept":    "literal",
		}, tctx)
		assert.NotContains(t, out, "missing")
		assert.Equal(t, "literal", out["kept"])
	})
	t.Run("Should not substitute partial tokens inside larger strings", func(t *testing.T) {
		tctx := mkCtx(t, core.Params{"name": "Anderson"}, nil)
		out := resolveParams(core.Params{"msg": "hello {{params.name}}!"}, tctx)
		assert.Equal(t, "hello {{params.name}}!", out["msg"])
	})
	t.Run("Should resolve tokens nested in maps and lists", func(t *testing.T) {
		tctx := mkCtx(t, core.Params{"bid": "b-9"}, nil)
		out := resolveParams(core.Params{
			"workOrder": map[string]any{"building_id": "{{params.bid}}"},
			"tags":      []any{"{{params.bid}}", "static"},
		}, tctx)
		assert.Equal(t, "b-9", out["workOrder"].(map[string]any)["building_id"])
		assert.Equal(t, []any{"b-9", "static"}, out["tags"])
	})
	t.Run("Should keep nil slot for unresolved list elements", func(t *testing.T) {
		tctx := mkCtx(t, core.Params{}, nil)
		out := resolveParams(core.Params{"tags": []any{"{{params.gone}}", "kept"}}, tctx)
		assert.Equal(t, []any{nil, "kept"}, out["tags"])
	})
	t.Run("Should pass non-string leaves through unchanged", func(t *testing.T) {
		tctx := mkCtx(t, nil, nil)
		out := resolveParams(core.Params{"n": 42, "b": true}, tctx)
		assert.Equal(t, 42, out["n"])
		assert.Equal(t, true, out["b"])
	})
	t.Run("Should tolerate whitespace inside tokens", func(t *testing.T) {
		tctx := mkCtx(t, core.Params{"x": "v"}, nil)
		out := resolveParams(core.Params{"k": "{{ params.x }}"}, tctx)
		assert.Equal(t, "v", out["k"])
	})
	t.Run("Should look through typed struct results via JSON field names", func(t *testing.T) {
		type created struct {
			ID string `json:"id"`
		}
		tctx := mkCtx(t, nil, []core.Output{created{ID: "wo-7"}})
		out := resolveParams(core.Params{"ref": "{{results.0.id}}"}, tctx)
		assert.Equal(t, "wo-7", out["ref"])
	})
}
