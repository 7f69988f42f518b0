package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pantrybook/pantrybook/internal/models"
	"github.com/pantrybook/pantrybook/internal/plan"
	"github.com/pantrybook/pantrybook/internal/quantity"
)

// AddShoppingEntry puts packs of an ingredient on the shopping list.
// Duplicates per ingredient are merged by summing packs.
func (a *App) AddShoppingEntry(ctx context.Context, ingredientID string, packs int) error {
	if _, ok := a.state.IngredientByID(ingredientID); !ok {
		return fmt.Errorf("%w: ingredient %s", ErrNotFound, ingredientID)
	}
	if packs < 1 {
		packs = 1
	}

	for i := range a.state.Shopping {
		if a.state.Shopping[i].IngredientID == ingredientID {
			a.state.Shopping[i].Packs += packs
			return a.commit(ctx)
		}
	}
	a.state.Shopping = append(a.state.Shopping, models.ShoppingEntry{
		ID:           a.ids.New(),
		IngredientID: ingredientID,
		Packs:        packs,
	})
	return a.commit(ctx)
}

// SetPacks sets the quantity of a shopping entry. Zero or less removes the
// entry. The raise reconciliation running on commit will push a plan-tracked
// entry back up to its plan minimum.
func (a *App) SetPacks(ctx context.Context, ingredientID string, packs int) error {
	for i := range a.state.Shopping {
		if a.state.Shopping[i].IngredientID != ingredientID {
			continue
		}
		if packs <= 0 {
			a.state.Shopping = append(a.state.Shopping[:i], a.state.Shopping[i+1:]...)
		} else {
			a.state.Shopping[i].Packs = packs
		}
		return a.commit(ctx)
	}
	return fmt.Errorf("%w: shopping entry for %s", ErrNotFound, ingredientID)
}

// RemoveShoppingEntry drops an entry entirely.
func (a *App) RemoveShoppingEntry(ctx context.Context, ingredientID string) error {
	return a.SetPacks(ctx, ingredientID, 0)
}

// ReconcileExact recomputes the plan-driven part of the shopping list,
// reducing and removing entries whose requirement dropped. Destructive;
// callers must confirm with the user first.
func (a *App) ReconcileExact(ctx context.Context) error {
	a.snapshotUndo("Shopping list recomputed")
	reqs := plan.Summary(a.state, nil, a.now())
	shopping, changed := plan.Reconcile(a.state.Shopping, reqs, plan.ModeExact, a.ids.New)
	a.state.Shopping = shopping
	if changed {
		slog.Info("Shopping list reconciled exactly", "entries", len(shopping))
	}
	return a.commit(ctx)
}

// StartSession begins a shopping trip.
func (a *App) StartSession(ctx context.Context) error {
	if a.state.Session.Active {
		return nil
	}
	a.state.Session = models.Session{
		Active:    true,
		Checked:   map[string]bool{},
		StartedAt: a.now(),
	}
	return a.commit(ctx)
}

// SetChecked marks an ingredient as bought (or not) in the current trip.
func (a *App) SetChecked(ctx context.Context, ingredientID string, checked bool) error {
	if !a.state.Session.Active {
		return fmt.Errorf("%w: no active shopping session", ErrInvalid)
	}
	onList := false
	for _, e := range a.state.Shopping {
		if e.IngredientID == ingredientID {
			onList = true
			break
		}
	}
	if !onList {
		return fmt.Errorf("%w: shopping entry for %s", ErrNotFound, ingredientID)
	}
	if checked {
		a.state.Session.Checked[ingredientID] = true
	} else {
		delete(a.state.Session.Checked, ingredientID)
	}
	return a.commit(ctx)
}

// CancelSession abandons the trip without buying anything.
func (a *App) CancelSession(ctx context.Context) error {
	a.state.Session = models.Session{Checked: map[string]bool{}}
	return a.commit(ctx)
}

// Checkout turns every checked shopping entry into a fresh pantry lot and a
// purchase log record, then ends the session. Unchecked entries stay on the
// list for the next trip.
func (a *App) Checkout(ctx context.Context) error {
	if !a.state.Session.Active {
		return fmt.Errorf("%w: no active shopping session", ErrInvalid)
	}

	a.snapshotUndo("Purchase recorded")
	now := a.now()
	bought := 0

	remaining := a.state.Shopping[:0]
	for _, e := range a.state.Shopping {
		if !a.state.Session.Checked[e.IngredientID] {
			remaining = append(remaining, e)
			continue
		}
		ing, ok := a.state.IngredientByID(e.IngredientID)
		if !ok {
			// Audit will clean the entry up; never buy the unknown.
			continue
		}

		buyAmount := float64(e.Packs) * ing.Amount
		total := quantity.RoundMoney(float64(e.Packs) * ing.Price)
		var expiresAt time.Time
		if ing.ShelfLifeDays > 0 {
			expiresAt = now.AddDate(0, 0, ing.ShelfLifeDays)
		}

		lot := models.Lot{
			ID:           a.ids.New(),
			IngredientID: ing.ID,
			Amount:       buyAmount,
			Unit:         ing.Unit,
			BoughtAt:     now,
			Source:       models.SourceCheckout,
			ExpiresAt:    expiresAt,
			PricePaid:    total,
			PackSize:     ing.Amount,
		}
		if up, ok := quantity.UnitPrice(ing.Price, ing.Amount); ok {
			lot.UnitCost = up
			lot.Cost = quantity.RoundMoney(buyAmount * up)
		}
		a.state.Pantry = append(a.state.Pantry, lot)

		a.state.PurchaseLog = append(a.state.PurchaseLog, models.PurchaseEntry{
			ID:           a.ids.New(),
			At:           now,
			Total:        total,
			IngredientID: ing.ID,
			Packs:        e.Packs,
			BuyAmount:    buyAmount,
			Unit:         ing.Unit,
		})
		bought++
	}
	a.state.Shopping = remaining
	a.state.Session = models.Session{Checked: map[string]bool{}}

	slog.Info("Checkout completed", "entries_bought", bought)
	return a.commit(ctx)
}
