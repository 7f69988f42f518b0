// Package plan derives shopping requirements from the active meal plan and
// reconciles them into the shopping list.
package plan

import (
	"math"
	"sort"
	"time"

	"github.com/pantrybook/pantrybook/internal/models"
	"github.com/pantrybook/pantrybook/internal/pantry"
)

// Needs aggregates ingredient needs across the planned recipes, each scaled
// by portionsWanted over the recipe's base portions (floored to 1). Planned
// entries referencing a deleted recipe are skipped.
func Needs(planned []models.PlannedRecipe, recipes []models.Recipe) map[string]float64 {
	byID := make(map[string]models.Recipe, len(recipes))
	for _, r := range recipes {
		byID[r.ID] = r
	}

	needs := make(map[string]float64)
	for _, p := range planned {
		r, ok := byID[p.RecipeID]
		if !ok {
			continue
		}
		base := r.Portions
		if base < 1 {
			base = 1
		}
		multiplier := float64(p.PortionsWanted) / float64(base)
		for _, item := range r.Items {
			needs[item.IngredientID] += item.Amount * multiplier
		}
	}
	return needs
}

// Requirement is the per-ingredient plan summary: what the plan needs, what
// the pantry already covers, and how many packs remain to buy.
type Requirement struct {
	IngredientID  string
	Need          float64
	Have          float64
	Missing       float64
	RequiredPacks int
}

// Summary computes requirements for every ingredient the plan needs. Have
// counts non-expired pantry stock only. RequiredPacks is ceil(missing over
// pack size), 0 when nothing is missing or the pack size is unusable.
//
// Pass planned=nil to use s.PlannedRecipes, or an override list to preview a
// hypothetical plan without committing it.
func Summary(s *models.State, planned []models.PlannedRecipe, now time.Time) []Requirement {
	if planned == nil {
		planned = s.PlannedRecipes
	}
	needs := Needs(planned, s.Recipes)
	catalog := models.IngredientIndex(s.Ingredients)

	out := make([]Requirement, 0, len(needs))
	for ingredientID, need := range needs {
		if need <= 0 {
			continue
		}
		req := Requirement{IngredientID: ingredientID, Need: need}
		req.Have = pantry.Available(s.Pantry, ingredientID, now)
		req.Missing = math.Max(0, need-req.Have)
		if ing, ok := catalog[ingredientID]; ok && req.Missing > 0 {
			req.RequiredPacks, _ = PurchasePlan(req.Missing, ing.Amount)
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IngredientID < out[j].IngredientID })
	return out
}

// PurchasePlan sizes a purchase covering need: at least one pack, rounded up
// to whole packs. An unusable pack size yields a no-op plan.
func PurchasePlan(need, packSize float64) (packs int, buyAmount float64) {
	if packSize <= 0 || math.IsNaN(packSize) || need <= 0 {
		return 0, 0
	}
	packs = int(math.Ceil(need / packSize))
	if packs < 1 {
		packs = 1
	}
	return packs, float64(packs) * packSize
}

// Mode selects the reconciliation policy.
type Mode int

const (
	// ModeRaise only ever pushes the shopping list up to cover the plan; a
	// manually raised quantity is never reduced. Runs after every
	// stock-affecting action.
	ModeRaise Mode = iota
	// ModeExact recomputes the plan-driven part of the list: plan-tracked
	// entries are set to exactly the required packs and removed when the
	// requirement drops to zero. Destructive; callers must confirm first.
	ModeExact
)

// Reconcile syncs the shopping list with the plan requirements under the
// given mode and reports whether anything changed. Manual entries (no
// PlanMin) are never touched beyond raising.
func Reconcile(shopping []models.ShoppingEntry, reqs []Requirement, mode Mode, newID func() string) ([]models.ShoppingEntry, bool) {
	required := make(map[string]int, len(reqs))
	for _, r := range reqs {
		if r.RequiredPacks > 0 {
			required[r.IngredientID] = r.RequiredPacks
		}
	}

	changed := false
	out := make([]models.ShoppingEntry, 0, len(shopping))
	seen := make(map[string]bool, len(shopping))

	for _, e := range shopping {
		packs, needed := required[e.IngredientID]
		seen[e.IngredientID] = needed

		switch {
		case needed:
			if e.PlanMin == nil || *e.PlanMin != packs {
				e.PlanMin = intPtr(packs)
				changed = true
			}
			if mode == ModeExact {
				if e.Packs != packs {
					e.Packs = packs
					changed = true
				}
			} else if e.Packs < packs {
				e.Packs = packs
				changed = true
			}
		case e.PlanTracked():
			if mode == ModeExact {
				// Obsolete plan-driven entry: drop it.
				changed = true
				continue
			}
			if *e.PlanMin != 0 {
				e.PlanMin = intPtr(0)
				changed = true
			}
		}
		out = append(out, e)
	}

	// Plan needs with no shopping row yet.
	missing := make([]string, 0)
	for ingredientID := range required {
		if !seen[ingredientID] {
			missing = append(missing, ingredientID)
		}
	}
	sort.Strings(missing)
	for _, ingredientID := range missing {
		packs := required[ingredientID]
		out = append(out, models.ShoppingEntry{
			ID:           newID(),
			IngredientID: ingredientID,
			Packs:        packs,
			PlanMin:      intPtr(packs),
		})
		changed = true
	}

	return out, changed
}

func intPtr(v int) *int { return &v }
