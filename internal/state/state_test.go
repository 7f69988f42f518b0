package state

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pantrybook/pantrybook/internal/models"
)

func TestDecodeCurrentSchema(t *testing.T) {
	raw := []byte(`{
		"schema": 2,
		"ingredients": [{"id": "i1", "name": "Flour", "amount": 1000, "unit": "g", "price": 2.0, "shelfLifeDays": 180}],
		"pantry": [{"id": "l1", "ingredientId": "i1", "amount": 500, "unit": "g", "unitCost": 0.002, "cost": 1.0}]
	}`)

	s, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchema, s.Schema)
	require.Len(t, s.Ingredients, 1)
	assert.Equal(t, "Flour", s.Ingredients[0].Name)
	assert.Equal(t, 1000.0, s.Ingredients[0].Amount)
	// Missing collections are filled in.
	assert.NotNil(t, s.Shopping)
	assert.NotNil(t, s.Session.Checked)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte(`{"ingredients": [`))
	require.Error(t, err)
}

func TestDecodeMigratesLegacyIngredientFields(t *testing.T) {
	raw := []byte(`{
		"ingredients": [{"id": "i1", "name": "Milk", "packAmount": 1000, "packUnit": "ml", "packPrice": 1.2, "shelfLife": 7}]
	}`)

	s, err := Decode(raw)
	require.NoError(t, err)
	require.Len(t, s.Ingredients, 1)
	ing := s.Ingredients[0]
	assert.Equal(t, 1000.0, ing.Amount, "packAmount should migrate to amount")
	assert.Equal(t, "ml", ing.Unit, "packUnit should migrate to unit")
	assert.Equal(t, 1.2, ing.Price, "packPrice should migrate to price")
	assert.Equal(t, 7, ing.ShelfLifeDays, "shelfLife should migrate to shelfLifeDays")
	assert.Equal(t, CurrentSchema, s.Schema)
}

func TestDecodeMigratesPlannedRecipeStrings(t *testing.T) {
	raw := []byte(`{
		"schema": 1,
		"recipes": [{"id": "r1", "name": "Curry", "portions": 2, "items": []}],
		"plannedRecipes": ["r1"]
	}`)

	s, err := Decode(raw)
	require.NoError(t, err)
	require.Len(t, s.PlannedRecipes, 1)
	assert.Equal(t, "r1", s.PlannedRecipes[0].RecipeID)
	assert.Equal(t, 1, s.PlannedRecipes[0].PortionsWanted)
}

func TestEnsureShapeClampsAndValidates(t *testing.T) {
	s := &models.State{
		Ingredients: []models.Ingredient{
			{ID: "i1", Name: "X", Amount: -5, Price: -1, ShelfLifeDays: -3},
		},
		Pantry:         []models.Lot{{ID: "l1", IngredientID: "i1", Amount: -2}},
		Recipes:        []models.Recipe{{ID: "r1", Name: "R", Portions: 0}},
		PlannedRecipes: []models.PlannedRecipe{{RecipeID: "", PortionsWanted: 3}, {RecipeID: "r1", PortionsWanted: 0}},
		Shopping:       []models.ShoppingEntry{{ID: "s1", IngredientID: "i1", Packs: 0}},
	}

	EnsureShape(s)

	assert.Equal(t, 0.0, s.Ingredients[0].Amount)
	assert.Equal(t, 0.0, s.Ingredients[0].Price)
	assert.Equal(t, 0, s.Ingredients[0].ShelfLifeDays)
	assert.Equal(t, 0.0, s.Pantry[0].Amount)
	assert.Equal(t, 1, s.Recipes[0].Portions)
	require.Len(t, s.PlannedRecipes, 1, "entry without recipe id is dropped")
	assert.Equal(t, 1, s.PlannedRecipes[0].PortionsWanted)
	assert.Equal(t, 1, s.Shopping[0].Packs)
}

func TestEnsureShapeTrimsCookHistory(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r := models.Recipe{ID: "r1", Name: "R", Portions: 2}
	for i := 0; i < models.MaxCookHistory+5; i++ {
		r.CookHistory = append(r.CookHistory, models.CookEntry{
			ID:      fmt.Sprintf("c%d", i),
			At:      base.AddDate(0, 0, i),
			Seconds: 100 + i,
		})
	}
	s := models.NewState()
	s.Recipes = []models.Recipe{r}

	EnsureShape(s)

	got := s.Recipes[0]
	require.Len(t, got.CookHistory, models.MaxCookHistory)
	// The 5 oldest entries fall off; the newest drives the summary fields.
	assert.Equal(t, "c5", got.CookHistory[0].ID)
	newest := got.CookHistory[len(got.CookHistory)-1]
	assert.Equal(t, newest.Seconds, got.LastCookSeconds)
	assert.Equal(t, newest.At, got.LastCookAt)
}

func TestExportImportRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s := models.NewState()
	s.Ingredients = []models.Ingredient{
		{ID: "i1", Name: "Flour", Amount: 1000, Unit: "g", Price: 2.0, ShelfLifeDays: 180},
	}
	s.Pantry = []models.Lot{
		{ID: "l1", IngredientID: "i1", Amount: 500, Unit: "g", BoughtAt: now.AddDate(0, 0, -3), UnitCost: 0.002, Cost: 1.0},
	}
	s.Recipes = []models.Recipe{
		{ID: "r1", Name: "Bread", Portions: 1, Items: []models.RecipeItem{{IngredientID: "i1", Amount: 500, Unit: "g"}}},
	}
	s.PurchaseLog = []models.PurchaseEntry{
		{ID: "p1", At: now.AddDate(0, 0, -3), Total: 2.0, IngredientID: "i1", Packs: 1, BuyAmount: 1000, Unit: "g"},
	}
	EnsureShape(s)

	raw, err := Export(s, now)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"app": "pantrybook"`)

	back, err := Import(raw)
	require.NoError(t, err)
	assert.Equal(t, s, back)
}

func TestImportAcceptsBareState(t *testing.T) {
	raw := []byte(`{"schema": 2, "ingredients": [{"id": "i1", "name": "Salt", "amount": 500, "unit": "g", "price": 0.5, "shelfLifeDays": 0}]}`)
	s, err := Import(raw)
	require.NoError(t, err)
	require.Len(t, s.Ingredients, 1)
	assert.Equal(t, "Salt", s.Ingredients[0].Name)
}
