package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAny(t *testing.T) {
	t.Run("Should produce identical hashes regardless of key order", func(t *testing.T) {
		a := map[string]any{"name": "Anderson Properties", "address": "123 Main St", "phone": "512-555-0100"}
		b := map[string]any{"phone": "512-555-0100", "address": "123 Main St", "name": "Anderson Properties"}
		ha, err := HashAny(a)
		require.NoError(t, err)
		hb, err := HashAny(b)
		require.NoError(t, err)
		assert.Equal(t, ha, hb)
	})
	t.Run("Should produce different hashes for different values", func(t *testing.T) {
		ha, err := HashAny(map[string]any{"name": "Anderson Properties"})
		require.NoError(t, err)
		hb, err := HashAny(map[string]any{"name": "Anderson Property Group"})
		require.NoError(t, err)
		assert.NotEqual(t, ha, hb)
	})
	t.Run("Should hash nested structures deterministically", func(t *testing.T) {
		v := map[string]any{"outer": map[string]any{"b": 2, "a": []any{1, "x"}}}
		h1, err := HashAny(v)
		require.NoError(t, err)
		h2, err := HashAny(v)
		require.NoError(t, err)
		assert.Equal(t, h1, h2)
	})
	t.Run("Should reject unencodable values", func(t *testing.T) {
		_, err := HashAny(map[string]any{"fn": func() {}})
		require.Error(t, err)
	})
}

func TestID(t *testing.T) {
	t.Run("Should generate unique non-zero ids", func(t *testing.T) {
		id1 := MustNewID()
		id2 := MustNewID()
		assert.False(t, id1.IsZero())
		assert.NotEqual(t, id1, id2)
	})
	t.Run("Should report zero value as zero", func(t *testing.T) {
		var id ID
		assert.True(t, id.IsZero())
	})
}

func TestParamsDeepCopy(t *testing.T) {
	t.Run("Should not alias nested maps", func(t *testing.T) {
		p := Params{"entity": map[string]any{"name": "Anderson"}}
		cp, err := p.DeepCopy()
		require.NoError(t, err)
		cp["entity"].(map[string]any)["name"] = "changed"
		assert.Equal(t, "Anderson", p["entity"].(map[string]any)["name"])
	})
	t.Run("Should return nil for nil params", func(t *testing.T) {
		var p Params
		cp, err := p.DeepCopy()
		require.NoError(t, err)
		assert.Nil(t, cp)
	})
}
