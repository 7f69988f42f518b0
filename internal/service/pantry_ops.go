package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pantrybook/pantrybook/internal/models"
	"github.com/pantrybook/pantrybook/internal/pantry"
	"github.com/pantrybook/pantrybook/internal/quantity"
)

// AddLot enters stock into the pantry manually. A zero expiresAt falls back
// to the ingredient's shelf life (no expiry when that is 0).
func (a *App) AddLot(ctx context.Context, ingredientID string, amount float64, expiresAt time.Time) error {
	ing, ok := a.state.IngredientByID(ingredientID)
	if !ok {
		return fmt.Errorf("%w: ingredient %s", ErrNotFound, ingredientID)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalid)
	}

	now := a.now()
	if expiresAt.IsZero() && ing.ShelfLifeDays > 0 {
		expiresAt = now.AddDate(0, 0, ing.ShelfLifeDays)
	}

	lot := models.Lot{
		ID:           a.ids.New(),
		IngredientID: ingredientID,
		Amount:       amount,
		Unit:         ing.Unit,
		BoughtAt:     now,
		Source:       models.SourceManual,
		ExpiresAt:    expiresAt,
		PackSize:     ing.Amount,
	}
	if up, ok := quantity.UnitPrice(ing.Price, ing.Amount); ok {
		lot.UnitCost = up
		lot.Cost = quantity.RoundMoney(amount * up)
	}
	a.state.Pantry = append(a.state.Pantry, lot)

	slog.Info("Lot added", "ingredient", ing.Name, "amount", amount, "unit", ing.Unit)
	return a.commit(ctx)
}

// ConsumeInventory decrements stock of an ingredient, soonest expiry first.
// Taking more than is available drains the stock to zero; that is not an
// error, the caller decides whether to warn beforehand.
func (a *App) ConsumeInventory(ctx context.Context, ingredientID string, amount float64) (float64, error) {
	if _, ok := a.state.IngredientByID(ingredientID); !ok {
		return 0, fmt.Errorf("%w: ingredient %s", ErrNotFound, ingredientID)
	}
	if amount <= 0 {
		return 0, fmt.Errorf("%w: amount must be positive", ErrInvalid)
	}

	a.snapshotUndo("Stock consumed")
	catalog := models.IngredientIndex(a.state.Ingredients)
	lots, consumed := pantry.Consume(a.state.Pantry, ingredientID, amount, catalog, pantry.ConsumeOptions{})
	a.state.Pantry = lots

	slog.Info("Inventory consumed", "ingredient", ingredientID, "requested", amount, "consumed", consumed)
	return consumed, a.commit(ctx)
}

// AddBack returns a quantity to the newest lot of an ingredient. Meant for
// correcting an over-consumption; purchases go through Checkout.
func (a *App) AddBack(ctx context.Context, ingredientID string, amount float64) error {
	if _, ok := a.state.IngredientByID(ingredientID); !ok {
		return fmt.Errorf("%w: ingredient %s", ErrNotFound, ingredientID)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalid)
	}

	catalog := models.IngredientIndex(a.state.Ingredients)
	a.state.Pantry = pantry.AddBack(a.state.Pantry, ingredientID, amount, catalog, a.now(), a.ids.New)

	slog.Info("Stock added back", "ingredient", ingredientID, "amount", amount)
	return a.commit(ctx)
}

// WasteLot throws a lot away, recording its remaining amount and cost in the
// waste log.
func (a *App) WasteLot(ctx context.Context, lotID string) error {
	idx := -1
	for i, l := range a.state.Pantry {
		if l.ID == lotID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: lot %s", ErrNotFound, lotID)
	}
	lot := a.state.Pantry[idx]

	a.snapshotUndo("Lot marked as waste")
	a.state.WasteLog = append(a.state.WasteLog, models.WasteEntry{
		ID:           a.ids.New(),
		At:           a.now(),
		IngredientID: lot.IngredientID,
		Amount:       lot.Amount,
		Unit:         lot.Unit,
		Cost:         quantity.RoundMoney(lot.Cost),
	})
	a.state.Pantry = append(a.state.Pantry[:idx], a.state.Pantry[idx+1:]...)

	slog.Info("Lot wasted", "lot", lotID, "ingredient", lot.IngredientID, "amount", lot.Amount)
	return a.commit(ctx)
}

// DeleteLot removes a lot without logging waste.
func (a *App) DeleteLot(ctx context.Context, lotID string) error {
	for i, l := range a.state.Pantry {
		if l.ID == lotID {
			a.snapshotUndo("Lot deleted")
			a.state.Pantry = append(a.state.Pantry[:i], a.state.Pantry[i+1:]...)
			return a.commit(ctx)
		}
	}
	return fmt.Errorf("%w: lot %s", ErrNotFound, lotID)
}
