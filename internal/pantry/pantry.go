// Package pantry owns the stock lots: merging duplicates, re-deriving costs
// from the live catalog price, expiry-ordered consumption and restocking.
//
// All functions are pure over value slices; callers own the state and decide
// when to persist. This keeps every rule testable with fixed inputs.
package pantry

import (
	"sort"
	"time"

	"github.com/pantrybook/pantrybook/internal/models"
	"github.com/pantrybook/pantrybook/internal/quantity"
)

const dayFormat = "2006-01-02"

// FallbackName is rendered for lots whose ingredient was deleted.
const FallbackName = "(deleted ingredient)"

// mergeKey groups lots that may be collapsed into one. Lots with neither a
// purchase date nor an expiry are keyed by their own id so undated manual
// entries are never merged away.
func mergeKey(l models.Lot) string {
	if l.BoughtAt.IsZero() && l.ExpiresAt.IsZero() {
		return "unique|" + l.ID
	}
	bought, expires := "", ""
	if !l.BoughtAt.IsZero() {
		bought = l.BoughtAt.UTC().Format(dayFormat)
	}
	if !l.ExpiresAt.IsZero() {
		expires = l.ExpiresAt.UTC().Format(dayFormat)
	}
	return l.IngredientID + "|" + l.Unit + "|" + bought + "|" + expires
}

// remainingValue estimates what the remaining amount of a lot is worth.
// Priority: stored cost, then the price actually paid (scaled by pack size
// when known), then the current catalog pack price, then zero.
func remainingValue(l models.Lot, catalog map[string]models.Ingredient) float64 {
	if l.Cost > 0 {
		return l.Cost
	}
	if l.PricePaid > 0 {
		if l.PackSize > 0 {
			return l.PricePaid * l.Amount / l.PackSize
		}
		return l.PricePaid
	}
	if ing, ok := catalog[l.IngredientID]; ok && ing.Amount > 0 {
		return ing.Price * l.Amount / ing.Amount
	}
	return 0
}

// Normalize merges duplicate lots and re-derives their costs.
//
// Lots are grouped by (ingredient, unit, purchase day, expiry day); amounts
// are summed and the remaining values accumulated. When the catalog unit
// price is computable it overwrites the accumulated cost: live pricing always
// wins over history. Output is sorted soonest-expiry-first (no expiry last),
// ties broken by purchase time. Running Normalize twice yields the same lots
// as running it once.
func Normalize(lots []models.Lot, catalog map[string]models.Ingredient) []models.Lot {
	merged := make(map[string]*models.Lot)
	order := make([]string, 0, len(lots))

	for _, l := range lots {
		if quantity.NearZero(l.Amount, l.Unit) {
			continue
		}
		key := mergeKey(l)
		if existing, ok := merged[key]; ok {
			existing.Cost += remainingValue(l, catalog)
			existing.Amount += l.Amount
			continue
		}
		cp := l
		cp.Cost = remainingValue(l, catalog)
		merged[key] = &cp
		order = append(order, key)
	}

	out := make([]models.Lot, 0, len(order))
	for _, key := range order {
		l := *merged[key]
		if up, ok := unitPriceFor(l.IngredientID, catalog); ok {
			l.UnitCost = up
			l.Cost = quantity.RoundMoney(l.Amount * up)
		} else {
			l.Cost = quantity.RoundMoney(l.Cost)
			if l.Amount > 0 {
				l.UnitCost = l.Cost / l.Amount
			}
		}
		out = append(out, l)
	}

	SortFEFO(out)
	return out
}

func unitPriceFor(ingredientID string, catalog map[string]models.Ingredient) (float64, bool) {
	ing, ok := catalog[ingredientID]
	if !ok {
		return 0, false
	}
	return quantity.UnitPrice(ing.Price, ing.Amount)
}

// SortFEFO orders lots soonest-expiry-first with no-expiry lots last, ties
// broken by earliest purchase, then by id for stability.
func SortFEFO(lots []models.Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]
		switch {
		case a.ExpiresAt.IsZero() != b.ExpiresAt.IsZero():
			return !a.ExpiresAt.IsZero()
		case !a.ExpiresAt.Equal(b.ExpiresAt):
			return a.ExpiresAt.Before(b.ExpiresAt)
		case !a.BoughtAt.Equal(b.BoughtAt):
			return a.BoughtAt.Before(b.BoughtAt)
		default:
			return a.ID < b.ID
		}
	})
}

// Reprice re-derives UnitCost/Cost for every lot of the given ingredient from
// its current unit price. Reports whether any stored value changed, which the
// load path uses to detect stale documents.
func Reprice(lots []models.Lot, ing models.Ingredient) bool {
	up, ok := quantity.UnitPrice(ing.Price, ing.Amount)
	if !ok {
		return false
	}
	changed := false
	for i := range lots {
		if lots[i].IngredientID != ing.ID {
			continue
		}
		cost := quantity.RoundMoney(lots[i].Amount * up)
		if lots[i].UnitCost != up || lots[i].Cost != cost {
			lots[i].UnitCost = up
			lots[i].Cost = cost
			changed = true
		}
	}
	return changed
}

// RepriceAll runs Reprice for every catalog ingredient.
func RepriceAll(lots []models.Lot, catalog map[string]models.Ingredient) bool {
	changed := false
	for _, ing := range catalog {
		if Reprice(lots, ing) {
			changed = true
		}
	}
	return changed
}

// ConsumeOptions tune a Consume call.
type ConsumeOptions struct {
	// OnlyUnexpired skips expired lots, used for cooking: an expired lot does
	// not satisfy a recipe need even though it still sits in the pantry.
	OnlyUnexpired bool
	// Now anchors expiry checks. Zero means expiry is not checked.
	Now time.Time
}

// Consume takes amount of an ingredient out of the pantry, soonest expiry
// first. Need beyond available stock is dropped, never producing negative
// inventory. Costs of touched lots are re-derived from the live unit price
// when computable, otherwise scaled proportionally to the remaining fraction.
// Lots drained to the unit's zero threshold are removed.
//
// Returns the updated lots and the amount actually consumed.
func Consume(lots []models.Lot, ingredientID string, amount float64, catalog map[string]models.Ingredient, opts ConsumeOptions) ([]models.Lot, float64) {
	if amount <= 0 {
		return lots, 0
	}
	SortFEFO(lots)

	need := amount
	consumed := 0.0
	out := lots[:0]
	for _, l := range lots {
		if need <= 0 || l.IngredientID != ingredientID {
			out = append(out, l)
			continue
		}
		if opts.OnlyUnexpired && !opts.Now.IsZero() && l.Expired(opts.Now) {
			out = append(out, l)
			continue
		}

		take := min(need, l.Amount)
		need -= take
		consumed += take
		l.Amount -= take

		if up, ok := unitPriceFor(l.IngredientID, catalog); ok {
			l.UnitCost = up
			l.Cost = quantity.RoundMoney(l.Amount * up)
		} else if l.Amount+take > 0 {
			l.Cost = quantity.RoundMoney(l.Cost * l.Amount / (l.Amount + take))
		}

		if quantity.NearZero(l.Amount, l.Unit) {
			continue
		}
		out = append(out, l)
	}
	return out, consumed
}

// AddBack returns a quantity to the newest lot of an ingredient (latest
// expiry, ties broken by latest purchase). Meant for undoing a consumption
// mistake; real purchases create fresh lots at checkout. When the ingredient
// has no lots left a new manual lot is created so the amount is not lost.
func AddBack(lots []models.Lot, ingredientID string, amount float64, catalog map[string]models.Ingredient, now time.Time, newID func() string) []models.Lot {
	if amount <= 0 {
		return lots
	}

	newest := -1
	for i, l := range lots {
		if l.IngredientID != ingredientID {
			continue
		}
		if newest < 0 || newerLot(l, lots[newest]) {
			newest = i
		}
	}

	if newest < 0 {
		unit := ""
		if ing, ok := catalog[ingredientID]; ok {
			unit = ing.Unit
		}
		l := models.Lot{
			ID:           newID(),
			IngredientID: ingredientID,
			Amount:       amount,
			Unit:         unit,
			BoughtAt:     now,
			Source:       models.SourceManual,
		}
		if up, ok := unitPriceFor(ingredientID, catalog); ok {
			l.UnitCost = up
			l.Cost = quantity.RoundMoney(amount * up)
		}
		return append(lots, l)
	}

	l := &lots[newest]
	l.Amount += amount
	if up, ok := unitPriceFor(ingredientID, catalog); ok {
		l.UnitCost = up
		l.Cost = quantity.RoundMoney(l.Amount * up)
	}
	return lots
}

// newerLot reports whether a is "newer" than b: later expiry wins, a missing
// expiry counts as farthest in the future, then later purchase wins.
func newerLot(a, b models.Lot) bool {
	switch {
	case a.ExpiresAt.IsZero() != b.ExpiresAt.IsZero():
		return a.ExpiresAt.IsZero()
	case !a.ExpiresAt.Equal(b.ExpiresAt):
		return a.ExpiresAt.After(b.ExpiresAt)
	default:
		return a.BoughtAt.After(b.BoughtAt)
	}
}

// Available sums the non-expired stock of an ingredient. Expired lots stay
// visible in the pantry until explicitly wasted, but never satisfy a need.
func Available(lots []models.Lot, ingredientID string, now time.Time) float64 {
	total := 0.0
	for _, l := range lots {
		if l.IngredientID == ingredientID && !l.Expired(now) {
			total += l.Amount
		}
	}
	return total
}
