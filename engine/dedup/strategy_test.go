package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsync/fieldsync/engine/core"
)

func seededStore(entities ...*Entity) *MemoryStore {
	store := NewMemoryStore()
	store.Add(entities...)
	return store
}

func TestBuildStrategies(t *testing.T) {
	t.Parallel()
	t.Run("Should resolve every known strategy name", func(t *testing.T) {
		names := []string{
			StrategyEntityID,
			StrategyAddressMatching,
			StrategyNameFuzzy,
			StrategyPhoneEmail,
			StrategyParentChild,
			StrategyWorkOrderHistory,
		}
		strategies, err := buildStrategies(names, 7*24*time.Hour)
		require.NoError(t, err)
		require.Len(t, strategies, len(names))
		for i, s := range strategies {
			assert.Equal(t, names[i], s.Name())
		}
	})
	t.Run("Should reject unknown strategy names", func(t *testing.T) {
		_, err := buildStrategies([]string{"soundex"}, 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "soundex")
	})
}

func TestEntityIDStrategy(t *testing.T) {
	t.Parallel()
	t.Run("Should match on a shared foreign identifier with full confidence", func(t *testing.T) {
		store := seededStore(&Entity{
			ID:         "cust-1",
			ForeignIDs: map[string]string{"appfolio": "af-100"},
		})
		matches, err := entityIDStrategy{}.FindCandidates(context.Background(), store, &Entity{
			ID:         "incoming",
			ForeignIDs: map[string]string{"appfolio": "af-100"},
		})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, core.ID("cust-1"), matches[0].EntityID)
		assert.Equal(t, 1.0, matches[0].Confidence)
		assert.Equal(t, []string{"foreign_ids.appfolio"}, matches[0].Fields)
	})
	t.Run("Should ignore empty foreign identifiers", func(t *testing.T) {
		store := seededStore(&Entity{ID: "cust-1", ForeignIDs: map[string]string{"appfolio": ""}})
		matches, err := entityIDStrategy{}.FindCandidates(context.Background(), store, &Entity{
			ForeignIDs: map[string]string{"appfolio": ""},
		})
		require.NoError(t, err)
		assert.Empty(t, matches)
	})
}

func TestAddressStrategy(t *testing.T) {
	t.Parallel()
	t.Run("Should score abbreviation variants as exact matches", func(t *testing.T) {
		store := seededStore(&Entity{ID: "bld-1", Address: "123 main street apartment 4b"})
		matches, err := addressStrategy{}.FindCandidates(context.Background(), store, &Entity{
			ID:      "incoming",
			Address: "123 Main St, Apt 4B",
		})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, 1.0, matches[0].Confidence)
	})
	t.Run("Should scale confidence with token overlap", func(t *testing.T) {
		store := seededStore(&Entity{ID: "bld-1", Address: "123 Main Street"})
		matches, err := addressStrategy{}.FindCandidates(context.Background(), store, &Entity{
			Address: "123 Main Road",
		})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.InDelta(t, 0.5, matches[0].Confidence, 1e-9)
	})
	t.Run("Should return nothing for an empty address", func(t *testing.T) {
		store := seededStore(&Entity{ID: "bld-1", Address: "123 Main Street"})
		matches, err := addressStrategy{}.FindCandidates(context.Background(), store, &Entity{})
		require.NoError(t, err)
		assert.Empty(t, matches)
	})
}

func TestNameFuzzyStrategy(t *testing.T) {
	t.Parallel()
	t.Run("Should score candidates of the same kind by edit distance", func(t *testing.T) {
		store := seededStore(
			&Entity{ID: "cust-1", Kind: "customer", Name: "Andersen Properties"},
			&Entity{ID: "bld-1", Kind: "building", Name: "Anderson Properties"},
		)
		matches, err := nameFuzzyStrategy{}.FindCandidates(context.Background(), store, &Entity{
			Kind: "customer",
			Name: "Anderson Properties",
		})
		require.NoError(t, err)
		require.Len(t, matches, 1, "kind filter excludes the building")
		assert.Equal(t, core.ID("cust-1"), matches[0].EntityID)
		assert.Greater(t, matches[0].Confidence, 0.9)
	})
	t.Run("Should return nothing for a nameless entity", func(t *testing.T) {
		store := seededStore(&Entity{ID: "cust-1", Kind: "customer", Name: "Anderson"})
		matches, err := nameFuzzyStrategy{}.FindCandidates(context.Background(), store, &Entity{Kind: "customer"})
		require.NoError(t, err)
		assert.Empty(t, matches)
	})
}

func TestPhoneEmailStrategy(t *testing.T) {
	t.Parallel()
	t.Run("Should match formatted phone variants", func(t *testing.T) {
		store := seededStore(&Entity{ID: "cust-1", Phone: "555.123.4567"})
		matches, err := phoneEmailStrategy{}.FindCandidates(context.Background(), store, &Entity{
			Phone: "(555) 123-4567",
		})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, confidencePhone, matches[0].Confidence)
		assert.Equal(t, []string{"phone"}, matches[0].Fields)
	})
	t.Run("Should prefer the email match when both fields collide", func(t *testing.T) {
		store := seededStore(&Entity{
			ID:    "cust-1",
			Phone: "5551234567",
			Email: "ops@andersonprops.com",
		})
		matches, err := phoneEmailStrategy{}.FindCandidates(context.Background(), store, &Entity{
			Phone: "(555) 123-4567",
			Email: "Ops@AndersonProps.com",
		})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, confidenceEmail, matches[0].Confidence)
		assert.Equal(t, []string{"email"}, matches[0].Fields)
	})
	t.Run("Should return nothing when the entity has neither field", func(t *testing.T) {
		store := seededStore(&Entity{ID: "cust-1", Phone: "5551234567"})
		matches, err := phoneEmailStrategy{}.FindCandidates(context.Background(), store, &Entity{})
		require.NoError(t, err)
		assert.Empty(t, matches)
	})
}

func TestParentChildStrategy(t *testing.T) {
	t.Parallel()
	t.Run("Should flag near-identical sibling names under one parent", func(t *testing.T) {
		store := seededStore(
			&Entity{ID: "bld-1", ParentID: "pf-1", Name: "Lakeside Tower A"},
			&Entity{ID: "bld-2", ParentID: "pf-1", Name: "Harborview Annex"},
			&Entity{ID: "bld-3", ParentID: "pf-2", Name: "Lakeside Tower A"},
		)
		matches, err := parentChildStrategy{}.FindCandidates(context.Background(), store, &Entity{
			ID:       "incoming",
			ParentID: "pf-1",
			Name:     "Lakeside Tower B",
		})
		require.NoError(t, err)
		require.Len(t, matches, 1, "dissimilar sibling and other parent excluded")
		assert.Equal(t, core.ID("bld-1"), matches[0].EntityID)
		assert.Equal(t, confidenceParentChild, matches[0].Confidence)
	})
	t.Run("Should return nothing without a parent", func(t *testing.T) {
		store := seededStore(&Entity{ID: "bld-1", ParentID: "pf-1", Name: "Lakeside Tower A"})
		matches, err := parentChildStrategy{}.FindCandidates(context.Background(), store, &Entity{
			Name: "Lakeside Tower A",
		})
		require.NoError(t, err)
		assert.Empty(t, matches)
	})
}

func TestWorkOrderHistoryStrategy(t *testing.T) {
	t.Parallel()
	t.Run("Should flag a recent near-identical work order in the same building", func(t *testing.T) {
		store := seededStore(
			&Entity{
				ID:          "wo-1",
				BuildingID:  "bld-1",
				Description: "Leaking faucet in unit 4B kitchen",
				CreatedAt:   time.Now().Add(-24 * time.Hour),
			},
			&Entity{
				ID:          "wo-2",
				BuildingID:  "bld-1",
				Description: "Replace lobby light fixtures",
				CreatedAt:   time.Now().Add(-24 * time.Hour),
			},
		)
		s := workOrderHistoryStrategy{window: 7 * 24 * time.Hour}
		matches, err := s.FindCandidates(context.Background(), store, &Entity{
			ID:          "incoming",
			BuildingID:  "bld-1",
			Description: "leaking faucet in unit 4b kitchen",
		})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, core.ID("wo-1"), matches[0].EntityID)
		assert.Equal(t, confidenceWorkOrder, matches[0].Confidence)
	})
	t.Run("Should ignore work orders outside the window", func(t *testing.T) {
		store := seededStore(&Entity{
			ID:          "wo-1",
			BuildingID:  "bld-1",
			Description: "Leaking faucet in unit 4B kitchen",
			CreatedAt:   time.Now().Add(-30 * 24 * time.Hour),
		})
		s := workOrderHistoryStrategy{window: 7 * 24 * time.Hour}
		matches, err := s.FindCandidates(context.Background(), store, &Entity{
			BuildingID:  "bld-1",
			Description: "Leaking faucet in unit 4B kitchen",
		})
		require.NoError(t, err)
		assert.Empty(t, matches)
	})
	t.Run("Should ignore dissimilar descriptions", func(t *testing.T) {
		store := seededStore(&Entity{
			ID:          "wo-1",
			BuildingID:  "bld-1",
			Description: "Annual roof inspection",
			CreatedAt:   time.Now().Add(-time.Hour),
		})
		s := workOrderHistoryStrategy{window: 7 * 24 * time.Hour}
		matches, err := s.FindCandidates(context.Background(), store, &Entity{
			BuildingID:  "bld-1",
			Description: "Leaking faucet in unit 4B kitchen",
		})
		require.NoError(t, err)
		assert.Empty(t, matches)
	})
}
