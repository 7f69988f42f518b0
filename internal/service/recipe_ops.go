package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pantrybook/pantrybook/internal/models"
	"github.com/pantrybook/pantrybook/internal/pantry"
)

// SaveRecipe creates or updates a recipe. Items referencing unknown
// ingredients are rejected here; the audit step would strip them anyway but
// the edit boundary should say so instead of silently dropping.
func (a *App) SaveRecipe(ctx context.Context, r models.Recipe) (models.Recipe, error) {
	if r.Name == "" {
		return models.Recipe{}, fmt.Errorf("%w: recipe name required", ErrInvalid)
	}
	if r.Portions < 1 {
		r.Portions = 1
	}
	for _, item := range r.Items {
		if item.Amount < 0 {
			return models.Recipe{}, fmt.Errorf("%w: item amount must not be negative", ErrInvalid)
		}
		if _, ok := a.state.IngredientByID(item.IngredientID); !ok {
			return models.Recipe{}, fmt.Errorf("%w: ingredient %s", ErrNotFound, item.IngredientID)
		}
	}

	if r.ID == "" {
		r.ID = a.ids.New()
		a.state.Recipes = append(a.state.Recipes, r)
	} else {
		found := false
		for i := range a.state.Recipes {
			if a.state.Recipes[i].ID == r.ID {
				// Cook history survives recipe edits.
				r.CookHistory = a.state.Recipes[i].CookHistory
				r.LastCookSeconds = a.state.Recipes[i].LastCookSeconds
				r.LastCookAt = a.state.Recipes[i].LastCookAt
				a.state.Recipes[i] = r
				found = true
				break
			}
		}
		if !found {
			return models.Recipe{}, fmt.Errorf("%w: recipe %s", ErrNotFound, r.ID)
		}
	}

	slog.Info("Recipe saved", "id", r.ID, "name", r.Name)
	return r, a.commit(ctx)
}

// DeleteRecipe removes a recipe; planned entries referencing it are cascaded
// away by the audit step.
func (a *App) DeleteRecipe(ctx context.Context, id string) error {
	for i, r := range a.state.Recipes {
		if r.ID == id {
			a.snapshotUndo(fmt.Sprintf("Deleted %s", r.Name))
			a.state.Recipes = append(a.state.Recipes[:i], a.state.Recipes[i+1:]...)
			if err := a.commit(ctx); err != nil {
				return err
			}
			slog.Info("Recipe deleted", "id", id, "planned_removed", a.lastAudit.PlannedRemoved)
			return nil
		}
	}
	return fmt.Errorf("%w: recipe %s", ErrNotFound, id)
}

// Cook consumes a recipe's ingredients for the wanted portions and records
// the cook time. Only non-expired stock is consumed, soonest expiry first;
// missing stock is taken as far as it goes without going negative.
func (a *App) Cook(ctx context.Context, recipeID string, portions int, seconds int) error {
	idx := -1
	for i, r := range a.state.Recipes {
		if r.ID == recipeID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: recipe %s", ErrNotFound, recipeID)
	}
	if portions < 1 {
		portions = 1
	}
	if seconds < 0 {
		seconds = 0
	}
	r := &a.state.Recipes[idx]

	a.snapshotUndo(fmt.Sprintf("Cooked %s", r.Name))

	base := r.Portions
	if base < 1 {
		base = 1
	}
	multiplier := float64(portions) / float64(base)

	now := a.now()
	catalog := models.IngredientIndex(a.state.Ingredients)
	for _, item := range r.Items {
		need := item.Amount * multiplier
		if need <= 0 {
			continue
		}
		a.state.Pantry, _ = pantry.Consume(a.state.Pantry, item.IngredientID, need, catalog, pantry.ConsumeOptions{
			OnlyUnexpired: true,
			Now:           now,
		})
	}

	r.CookHistory = append(r.CookHistory, models.CookEntry{
		ID:      a.ids.New(),
		At:      now,
		Seconds: seconds,
	})
	if len(r.CookHistory) > models.MaxCookHistory {
		r.CookHistory = r.CookHistory[len(r.CookHistory)-models.MaxCookHistory:]
	}
	r.LastCookSeconds = seconds
	r.LastCookAt = now

	slog.Info("Recipe cooked", "recipe", r.Name, "portions", portions, "seconds", seconds)
	return a.commit(ctx)
}

// PlanRecipe puts a recipe on the active meal plan, replacing any existing
// entry for the same recipe.
func (a *App) PlanRecipe(ctx context.Context, recipeID string, portionsWanted int) error {
	if _, ok := a.state.RecipeByID(recipeID); !ok {
		return fmt.Errorf("%w: recipe %s", ErrNotFound, recipeID)
	}
	if portionsWanted < 1 {
		portionsWanted = 1
	}

	replaced := false
	for i := range a.state.PlannedRecipes {
		if a.state.PlannedRecipes[i].RecipeID == recipeID {
			a.state.PlannedRecipes[i].PortionsWanted = portionsWanted
			replaced = true
			break
		}
	}
	if !replaced {
		a.state.PlannedRecipes = append(a.state.PlannedRecipes, models.PlannedRecipe{
			RecipeID:       recipeID,
			PortionsWanted: portionsWanted,
			AddedAt:        a.now(),
		})
	}

	slog.Info("Recipe planned", "recipe", recipeID, "portions", portionsWanted)
	return a.commit(ctx)
}

// UnplanRecipe takes a recipe off the meal plan. The shopping list keeps its
// quantities; only an explicit exact reconciliation cleans them up.
func (a *App) UnplanRecipe(ctx context.Context, recipeID string) error {
	for i, p := range a.state.PlannedRecipes {
		if p.RecipeID == recipeID {
			a.state.PlannedRecipes = append(a.state.PlannedRecipes[:i], a.state.PlannedRecipes[i+1:]...)
			return a.commit(ctx)
		}
	}
	return fmt.Errorf("%w: planned recipe %s", ErrNotFound, recipeID)
}
