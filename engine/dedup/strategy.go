package dedup

import (
	"context"
	"fmt"
	"time"
)

// Strategy names recognized by the configuration.
const (
	StrategyEntityID         = "entity-id"
	StrategyAddressMatching  = "address-matching"
	StrategyNameFuzzy        = "name-fuzzy"
	StrategyPhoneEmail       = "phone-email"
	StrategyParentChild      = "parent-child"
	StrategyWorkOrderHistory = "work-order-history"
)

const (
	confidenceExact       = 1.0
	confidencePhone       = 0.95
	confidenceEmail       = 0.98
	confidenceParentChild = 0.85
	confidenceWorkOrder   = 0.9
	siblingNameThreshold  = 0.8
	descriptionThreshold  = 0.8
)

// Strategy scores an input entity against store candidates. Implementations
// return zero or more matches; they never filter by the engine threshold.
type Strategy interface {
	Name() string
	FindCandidates(ctx context.Context, store Store, entity *Entity) ([]Match, error)
}

// buildStrategies resolves configured strategy names to implementations.
func buildStrategies(names []string, workOrderWindow time.Duration) ([]Strategy, error) {
	out := make([]Strategy, 0, len(names))
	for _, name := range names {
		switch name {
		case StrategyEntityID:
			out = append(out, entityIDStrategy{})
		case StrategyAddressMatching:
			out = append(out, addressStrategy{})
		case StrategyNameFuzzy:
			out = append(out, nameFuzzyStrategy{})
		case StrategyPhoneEmail:
			out = append(out, phoneEmailStrategy{})
		case StrategyParentChild:
			out = append(out, parentChildStrategy{})
		case StrategyWorkOrderHistory:
			out = append(out, workOrderHistoryStrategy{window: workOrderWindow})
		default:
			return nil, fmt.Errorf("unknown matching strategy %q", name)
		}
	}
	return out, nil
}

// entityIDStrategy matches on known foreign-system identifiers.
type entityIDStrategy struct{}

func (entityIDStrategy) Name() string { return StrategyEntityID }

func (entityIDStrategy) FindCandidates(ctx context.Context, store Store, entity *Entity) ([]Match, error) {
	var out []Match
	for system, id := range entity.ForeignIDs {
		if id == "" {
			continue
		}
		candidate, err := store.ByForeignID(ctx, system, id)
		if err != nil {
			return nil, err
		}
		if candidate == nil {
			continue
		}
		out = append(out, Match{
			EntityID:   candidate.ID,
			Strategy:   StrategyEntityID,
			Confidence: confidenceExact,
			Fields:     []string{"foreign_ids." + system},
			Candidate:  candidate,
		})
	}
	return out, nil
}

// addressStrategy scores normalized-address token overlap.
type addressStrategy struct{}

func (addressStrategy) Name() string { return StrategyAddressMatching }

func (addressStrategy) FindCandidates(ctx context.Context, store Store, entity *Entity) ([]Match, error) {
	tokens := addressTokens(entity.Address)
	if len(tokens) == 0 {
		return nil, nil
	}
	candidates, err := store.ByAddress(ctx, entity.Address)
	if err != nil {
		return nil, err
	}
	var out []Match
	for _, candidate := range candidates {
		score := jaccard(tokens, addressTokens(candidate.Address))
		if score == 0 {
			continue
		}
		out = append(out, Match{
			EntityID:   candidate.ID,
			Strategy:   StrategyAddressMatching,
			Confidence: score,
			Fields:     []string{"address"},
			Candidate:  candidate,
		})
	}
	return out, nil
}

// nameFuzzyStrategy scores normalized Levenshtein similarity on names.
type nameFuzzyStrategy struct{}

func (nameFuzzyStrategy) Name() string { return StrategyNameFuzzy }

func (nameFuzzyStrategy) FindCandidates(ctx context.Context, store Store, entity *Entity) ([]Match, error) {
	if entity.Name == "" {
		return nil, nil
	}
	candidates, err := store.ByName(ctx, entity.Kind)
	if err != nil {
		return nil, err
	}
	var out []Match
	for _, candidate := range candidates {
		score := nameSimilarity(entity.Name, candidate.Name)
		if score <= 0 {
			continue
		}
		out = append(out, Match{
			EntityID:   candidate.ID,
			Strategy:   StrategyNameFuzzy,
			Confidence: score,
			Fields:     []string{"name"},
			Candidate:  candidate,
		})
	}
	return out, nil
}

// phoneEmailStrategy matches normalized phone or casefolded email exactly.
// Email carries a higher fixed confidence than phone: shared office numbers
// are common, shared mailboxes much less so.
type phoneEmailStrategy struct{}

func (phoneEmailStrategy) Name() string { return StrategyPhoneEmail }

func (phoneEmailStrategy) FindCandidates(ctx context.Context, store Store, entity *Entity) ([]Match, error) {
	phone := digitsOnly(entity.Phone)
	email := normalizeEmail(entity.Email)
	if phone == "" && email == "" {
		return nil, nil
	}
	candidates, err := store.ByPhoneOrEmail(ctx, entity.Phone, entity.Email)
	if err != nil {
		return nil, err
	}
	var out []Match
	for _, candidate := range candidates {
		if email != "" && normalizeEmail(candidate.Email) == email {
			out = append(out, Match{
				EntityID:   candidate.ID,
				Strategy:   StrategyPhoneEmail,
				Confidence: confidenceEmail,
				Fields:     []string{"email"},
				Candidate:  candidate,
			})
			continue
		}
		if phone != "" && digitsOnly(candidate.Phone) == phone {
			out = append(out, Match{
				EntityID:   candidate.ID,
				Strategy:   StrategyPhoneEmail,
				Confidence: confidencePhone,
				Fields:     []string{"phone"},
				Candidate:  candidate,
			})
		}
	}
	return out, nil
}

// parentChildStrategy looks for near-identical names among siblings under
// the same parent/portfolio/building.
type parentChildStrategy struct{}

func (parentChildStrategy) Name() string { return StrategyParentChild }

func (parentChildStrategy) FindCandidates(ctx context.Context, store Store, entity *Entity) ([]Match, error) {
	if entity.ParentID == "" || entity.Name == "" {
		return nil, nil
	}
	siblings, err := store.ByParent(ctx, entity.ParentID)
	if err != nil {
		return nil, err
	}
	var out []Match
	for _, sibling := range siblings {
		if nameSimilarity(entity.Name, sibling.Name) <= siblingNameThreshold {
			continue
		}
		out = append(out, Match{
			EntityID:   sibling.ID,
			Strategy:   StrategyParentChild,
			Confidence: confidenceParentChild,
			Fields:     []string{"parent_id", "name"},
			Candidate:  sibling,
		})
	}
	return out, nil
}

// workOrderHistoryStrategy flags repeat work orders: same building, recent
// window, near-identical description.
type workOrderHistoryStrategy struct {
	window time.Duration
}

func (workOrderHistoryStrategy) Name() string { return StrategyWorkOrderHistory }

func (s workOrderHistoryStrategy) FindCandidates(ctx context.Context, store Store, entity *Entity) ([]Match, error) {
	if entity.BuildingID == "" || entity.Description == "" {
		return nil, nil
	}
	window := s.window
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}
	since := time.Now().Add(-window)
	candidates, err := store.ByBuildingSince(ctx, entity.BuildingID, since)
	if err != nil {
		return nil, err
	}
	tokens := tokenize(entity.Description)
	var out []Match
	for _, candidate := range candidates {
		if jaccard(tokens, tokenize(candidate.Description)) <= descriptionThreshold {
			continue
		}
		out = append(out, Match{
			EntityID:   candidate.ID,
			Strategy:   StrategyWorkOrderHistory,
			Confidence: confidenceWorkOrder,
			Fields:     []string{"building_id", "description"},
			Candidate:  candidate,
		})
	}
	return out, nil
}
