package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pantrybook/pantrybook/internal/models"
	"github.com/pantrybook/pantrybook/internal/quantity"
)

// UpsertIngredient creates or updates a catalog entry. Pack size must be
// positive, price non-negative, and a barcode (when given) must normalize to
// 8-14 digits and be unique across the catalog. Editing price or pack size
// re-prices all of the ingredient's lots through the commit pipeline.
func (a *App) UpsertIngredient(ctx context.Context, ing models.Ingredient) (models.Ingredient, error) {
	if ing.Name == "" {
		return models.Ingredient{}, fmt.Errorf("%w: ingredient name required", ErrInvalid)
	}
	if ing.Amount <= 0 {
		return models.Ingredient{}, fmt.Errorf("%w: pack size must be positive", ErrInvalid)
	}
	if ing.Price < 0 {
		return models.Ingredient{}, fmt.Errorf("%w: pack price must not be negative", ErrInvalid)
	}
	if ing.ShelfLifeDays < 0 {
		ing.ShelfLifeDays = 0
	}
	if ing.Barcode != "" {
		normalized, ok := quantity.NormalizeBarcode(ing.Barcode)
		if !ok {
			return models.Ingredient{}, fmt.Errorf("%w: barcode must be 8-14 digits", ErrInvalid)
		}
		ing.Barcode = normalized
		for _, other := range a.state.Ingredients {
			if other.ID != ing.ID && other.Barcode == normalized {
				return models.Ingredient{}, fmt.Errorf("%w: barcode already used by %q", ErrInvalid, other.Name)
			}
		}
	}

	if ing.ID == "" {
		ing.ID = a.ids.New()
		a.state.Ingredients = append(a.state.Ingredients, ing)
	} else {
		found := false
		for i := range a.state.Ingredients {
			if a.state.Ingredients[i].ID == ing.ID {
				a.state.Ingredients[i] = ing
				found = true
				break
			}
		}
		if !found {
			return models.Ingredient{}, fmt.Errorf("%w: ingredient %s", ErrNotFound, ing.ID)
		}
	}

	slog.Info("Ingredient saved", "id", ing.ID, "name", ing.Name)
	return ing, a.commit(ctx)
}

// IngredientByBarcode looks up a catalog entry by normalized barcode.
func (a *App) IngredientByBarcode(code string) (models.Ingredient, bool) {
	normalized, ok := quantity.NormalizeBarcode(code)
	if !ok {
		return models.Ingredient{}, false
	}
	for _, ing := range a.state.Ingredients {
		if ing.Barcode == normalized {
			return ing, true
		}
	}
	return models.Ingredient{}, false
}

// DeleteIngredient removes a catalog entry. Pantry lots, shopping entries,
// recipe items and session keys referencing it are cascaded away by the
// audit step; purchase and waste logs keep their (now dangling) references.
func (a *App) DeleteIngredient(ctx context.Context, id string) error {
	idx := -1
	for i, ing := range a.state.Ingredients {
		if ing.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: ingredient %s", ErrNotFound, id)
	}

	a.snapshotUndo(fmt.Sprintf("Deleted %s", a.state.Ingredients[idx].Name))
	a.state.Ingredients = append(a.state.Ingredients[:idx], a.state.Ingredients[idx+1:]...)

	if err := a.commit(ctx); err != nil {
		return err
	}
	slog.Info("Ingredient deleted",
		"id", id,
		"lots_removed", a.lastAudit.LotsRemoved,
		"shopping_removed", a.lastAudit.ShoppingRemoved,
		"recipe_items_removed", a.lastAudit.RecipeItemsRemoved,
	)
	return nil
}
