package workflow

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/fieldsync/fieldsync/engine/core"
)

// tokenPattern matches a string that is exactly one template token.
// Partial interpolation inside a larger string is deliberately unsupported.
var tokenPattern = regexp.MustCompile(`^\{\{\s*([^{}]+?)\s*\}\}$`)

// templateContext is the lookup document for one step's parameter
// resolution: {"params": <execution input>, "results": [prior outputs]}.
// It is serialized once so dot paths can be resolved with gjson.
type templateContext struct {
	doc  []byte
	data map[string]any
}

func newTemplateContext(params core.Params, results []core.Output) (*templateContext, error) {
	resultList := make([]any, len(results))
	copy(resultList, results)
	paramMap := map[string]any(params)
	if paramMap == nil {
		paramMap = map[string]any{}
	}
	doc, err := json.Marshal(map[string]any{
		"params":  paramMap,
		"results": resultList,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build template context: %w", err)
	}
	// Round-tripping through JSON normalizes step results (often typed
	// structs) into plain maps, which both gjson paths and CEL can address.
	var data map[string]any
	if err := json.Unmarshal(doc, &data); err != nil {
		return nil, fmt.Errorf("failed to build template context: %w", err)
	}
	return &templateContext{doc: doc, data: data}, nil
}

// lookup resolves a dot-separated path like "results.0.portfolioIds".
// The boolean is false when the path does not exist.
func (c *templateContext) lookup(path string) (any, bool) {
	res := gjson.GetBytes(c.doc, path)
	if !res.Exists() {
		return nil, false
	}
	return res.Value(), true
}

// conditionData exposes the context to CEL condition expressions.
func (c *templateContext) conditionData() map[string]any {
	return c.data
}

// resolveParams substitutes every whole-string "{{path}}" leaf in the
// template with the value at that path. Unresolved paths drop out of the
// result rather than failing, so optional upstream fields stay optional.
func resolveParams(tpl core.Params, tctx *templateContext) core.Params {
	if tpl == nil {
		return nil
	}
	out := make(core.Params, len(tpl))
	for key, value := range tpl {
		resolved, ok := resolveValue(value, tctx)
		if !ok {
			continue
		}
		out[key] = resolved
	}
	return out
}

func resolveValue(value any, tctx *templateContext) (any, bool) {
	switch v := value.(type) {
	case string:
		m := tokenPattern.FindStringSubmatch(v)
		if m == nil {
			return v, true
		}
		return tctx.lookup(strings.TrimSpace(m[1]))
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			resolved, ok := resolveValue(inner, tctx)
			if !ok {
				continue
			}
			out[key] = resolved
		}
		return out, true
	case core.Params:
		return resolveValue(map[string]any(v), tctx)
	case []any:
		out := make([]any, 0, len(v))
		for _, inner := range v {
			resolved, ok := resolveValue(inner, tctx)
			if !ok {
				// A dropped list element would shift positions; keep the
				// slot as nil instead.
				out = append(out, nil)
				continue
			}
			out = append(out, resolved)
		}
		return out, true
	default:
		return v, true
	}
}
