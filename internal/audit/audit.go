// Package audit repairs referential integrity of the state document. It runs
// after every load and before every save, so persisted state never contains
// dangling references outside the history logs.
package audit

import (
	"github.com/pantrybook/pantrybook/internal/models"
)

// Options tune a repair run.
type Options struct {
	// PruneLogs also removes purchase/waste log entries whose ingredient was
	// deleted. Off by default: logs are history and may dangle; the UI falls
	// back to a placeholder name.
	PruneLogs bool
}

// Report counts what a repair run removed, plus warnings for orphaned log
// entries (counted, never deleted unless PruneLogs).
type Report struct {
	ShoppingRemoved    int `json:"shoppingRemoved"`
	LotsRemoved        int `json:"lotsRemoved"`
	RecipeItemsRemoved int `json:"recipeItemsRemoved"`
	PlannedRemoved     int `json:"plannedRemoved"`
	SessionKeysRemoved int `json:"sessionKeysRemoved"`

	OrphanedPurchaseLogs int `json:"orphanedPurchaseLogs"`
	OrphanedWasteLogs    int `json:"orphanedWasteLogs"`
	PurchaseLogsPruned   int `json:"purchaseLogsPruned"`
	WasteLogsPruned      int `json:"wasteLogsPruned"`
}

// Clean reports whether the run removed nothing and found no orphans.
func (r Report) Clean() bool {
	return r == Report{}
}

// Removed is the total number of entries removed across all collections.
func (r Report) Removed() int {
	return r.ShoppingRemoved + r.LotsRemoved + r.RecipeItemsRemoved +
		r.PlannedRemoved + r.SessionKeysRemoved + r.PurchaseLogsPruned + r.WasteLogsPruned
}

// Repair strips entries referencing deleted ingredients or recipes from the
// shopping list, pantry, recipe items, planned recipes and the shopping
// session, in place. History logs are only counted (see Options.PruneLogs).
func Repair(s *models.State, opts Options) Report {
	var rep Report

	validIngredient := make(map[string]bool, len(s.Ingredients))
	for _, ing := range s.Ingredients {
		validIngredient[ing.ID] = true
	}
	validRecipe := make(map[string]bool, len(s.Recipes))
	for _, r := range s.Recipes {
		validRecipe[r.ID] = true
	}

	shopping := s.Shopping[:0]
	for _, e := range s.Shopping {
		if !validIngredient[e.IngredientID] {
			rep.ShoppingRemoved++
			continue
		}
		shopping = append(shopping, e)
	}
	s.Shopping = shopping

	lots := s.Pantry[:0]
	for _, l := range s.Pantry {
		if !validIngredient[l.IngredientID] {
			rep.LotsRemoved++
			continue
		}
		lots = append(lots, l)
	}
	s.Pantry = lots

	for i := range s.Recipes {
		items := s.Recipes[i].Items[:0]
		for _, item := range s.Recipes[i].Items {
			if !validIngredient[item.IngredientID] {
				rep.RecipeItemsRemoved++
				continue
			}
			items = append(items, item)
		}
		s.Recipes[i].Items = items
	}

	planned := s.PlannedRecipes[:0]
	for _, p := range s.PlannedRecipes {
		if !validRecipe[p.RecipeID] {
			rep.PlannedRemoved++
			continue
		}
		planned = append(planned, p)
	}
	s.PlannedRecipes = planned

	// Session checked-keys must point at a live shopping entry.
	onList := make(map[string]bool, len(s.Shopping))
	for _, e := range s.Shopping {
		onList[e.IngredientID] = true
	}
	if s.Session.Checked == nil {
		s.Session.Checked = map[string]bool{}
	}
	for id := range s.Session.Checked {
		if !onList[id] {
			delete(s.Session.Checked, id)
			rep.SessionKeysRemoved++
		}
	}

	if opts.PruneLogs {
		purchases := s.PurchaseLog[:0]
		for _, e := range s.PurchaseLog {
			if !validIngredient[e.IngredientID] {
				rep.PurchaseLogsPruned++
				continue
			}
			purchases = append(purchases, e)
		}
		s.PurchaseLog = purchases

		wastes := s.WasteLog[:0]
		for _, e := range s.WasteLog {
			if !validIngredient[e.IngredientID] {
				rep.WasteLogsPruned++
				continue
			}
			wastes = append(wastes, e)
		}
		s.WasteLog = wastes
		return rep
	}

	for _, e := range s.PurchaseLog {
		if !validIngredient[e.IngredientID] {
			rep.OrphanedPurchaseLogs++
		}
	}
	for _, e := range s.WasteLog {
		if !validIngredient[e.IngredientID] {
			rep.OrphanedWasteLogs++
		}
	}
	return rep
}
