package service

import (
	"context"
	"log/slog"

	"github.com/pantrybook/pantrybook/internal/models"
	"github.com/pantrybook/pantrybook/internal/quantity"
)

// LoadDemo replaces the state with a small demo data set. Like Import, a
// restore point of the current state is written first.
func (a *App) LoadDemo(ctx context.Context) error {
	if err := a.writeRestorePoint(ctx); err != nil {
		return err
	}

	a.state = a.demoState()
	a.undo = nil
	slog.Info("Demo data loaded")
	return a.commit(ctx)
}

func (a *App) demoState() *models.State {
	now := a.now()
	s := models.NewState()

	flour := models.Ingredient{
		ID: a.ids.New(), Name: "Flour", Amount: 1000, Unit: quantity.UnitGram,
		Price: 2.00, ShelfLifeDays: 180,
	}
	milk := models.Ingredient{
		ID: a.ids.New(), Name: "Milk", Amount: 1000, Unit: quantity.UnitMilliliter,
		Price: 1.20, ShelfLifeDays: 7,
	}
	eggs := models.Ingredient{
		ID: a.ids.New(), Name: "Eggs", Amount: 10, Unit: quantity.UnitPiece,
		Price: 3.50, ShelfLifeDays: 21,
	}
	s.Ingredients = []models.Ingredient{flour, milk, eggs}

	s.Pantry = []models.Lot{
		{
			ID: a.ids.New(), IngredientID: flour.ID, Amount: 500, Unit: flour.Unit,
			BoughtAt: now.AddDate(0, 0, -14), Source: models.SourceManual,
			ExpiresAt: now.AddDate(0, 0, 166),
		},
		{
			ID: a.ids.New(), IngredientID: milk.ID, Amount: 1000, Unit: milk.Unit,
			BoughtAt: now.AddDate(0, 0, -2), Source: models.SourceCheckout,
			ExpiresAt: now.AddDate(0, 0, 5), PricePaid: 1.20, PackSize: 1000,
		},
	}

	pancakes := models.Recipe{
		ID: a.ids.New(), Name: "Pancakes", Portions: 4,
		Items: []models.RecipeItem{
			{IngredientID: flour.ID, Amount: 250, Unit: flour.Unit},
			{IngredientID: milk.ID, Amount: 500, Unit: milk.Unit},
			{IngredientID: eggs.ID, Amount: 2, Unit: eggs.Unit},
		},
	}
	s.Recipes = []models.Recipe{pancakes}

	s.PlannedRecipes = []models.PlannedRecipe{
		{RecipeID: pancakes.ID, PortionsWanted: 4, AddedAt: now},
	}

	return s
}
