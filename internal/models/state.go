package models

import (
	"encoding/json"
	"time"
)

// Ingredient is a catalog entry: the purchasable unit ("pack") of a grocery.
type Ingredient struct {
	// ID is the unique identifier (UUID format).
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// Amount is the pack size (e.g. 1000 for a 1000g bag). Must be > 0 for
	// unit-price math to work; 0 disables it.
	Amount float64 `json:"amount"`

	// Unit is a normalized unit id (pcs, g, ml) or a free-form custom string.
	Unit string `json:"unit"`

	// Price is the pack price, >= 0.
	Price float64 `json:"price"`

	// ShelfLifeDays drives the default expiry of new lots. 0 = no auto-expiry.
	ShelfLifeDays int `json:"shelfLifeDays"`

	// Barcode is a normalized digit string (8-14 digits), unique when present.
	Barcode string `json:"barcode,omitempty"`
}

// Lot source tags.
const (
	SourceManual   = "manual"
	SourceCheckout = "checkout"
)

// Lot is a discrete quantity of one ingredient currently in the pantry.
type Lot struct {
	ID           string `json:"id"`
	IngredientID string `json:"ingredientId"`

	// Amount is the remaining quantity, >= 0. Lots at or below the unit's
	// zero threshold are removed.
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`

	// BoughtAt is the acquisition time; Source tags manual entry vs checkout.
	BoughtAt time.Time `json:"boughtAt,omitzero"`
	Source   string    `json:"source,omitempty"`

	// ExpiresAt is zero for lots without expiry.
	ExpiresAt time.Time `json:"expiresAt,omitzero"`

	// UnitCost and Cost are caches re-derived from the current ingredient
	// price whenever that price is computable. Cost = Amount * UnitCost.
	UnitCost float64 `json:"unitCost"`
	Cost     float64 `json:"cost"`

	// PricePaid and PackSize record what was actually paid at acquisition and
	// the pack size at that time. Used as fallbacks when the catalog price is
	// unusable.
	PricePaid float64 `json:"pricePaid,omitempty"`
	PackSize  float64 `json:"packSize,omitempty"`
}

// Expired reports whether the lot has an expiry in the past relative to now.
func (l Lot) Expired(now time.Time) bool {
	return !l.ExpiresAt.IsZero() && l.ExpiresAt.Before(now)
}

// ShoppingEntry is one line on the shopping list. Entries are unique per
// ingredient; duplicates are merged by summing packs.
type ShoppingEntry struct {
	ID           string `json:"id"`
	IngredientID string `json:"ingredientId"`

	// Packs is how many pack-units to buy, integer >= 1.
	Packs int `json:"packs"`

	// PlanMin, when set, is the minimum packs required by the current meal
	// plan. nil means the entry is purely manual and plan reconciliation in
	// exact mode leaves it alone.
	PlanMin *int `json:"planMin,omitempty"`
}

// PlanTracked reports whether the entry is (or was) driven by the meal plan.
func (e ShoppingEntry) PlanTracked() bool {
	return e.PlanMin != nil
}

// PlannedRecipe is one recipe in the active meal plan, scaled independently
// of the recipe's base portion count.
type PlannedRecipe struct {
	RecipeID       string    `json:"recipeId"`
	PortionsWanted int       `json:"portionsWanted"`
	AddedAt        time.Time `json:"addedAt,omitzero"`
}

// RecipeItem is one ingredient requirement of a recipe, for the base portion
// count.
type RecipeItem struct {
	IngredientID string  `json:"ingredientId"`
	Amount       float64 `json:"amount"`
	Unit         string  `json:"unit"`
}

// CookEntry records one cooking of a recipe.
type CookEntry struct {
	ID      string    `json:"id"`
	At      time.Time `json:"at"`
	Seconds int       `json:"seconds"`
}

// MaxCookHistory caps how many cook entries a recipe keeps (newest win).
const MaxCookHistory = 30

// Recipe is a named ingredient list yielding Portions base portions.
type Recipe struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Portions int          `json:"portions"`
	Items    []RecipeItem `json:"items"`

	CookHistory     []CookEntry `json:"cookHistory,omitempty"`
	LastCookSeconds int         `json:"lastCookSeconds,omitempty"`
	LastCookAt      time.Time   `json:"lastCookAt,omitzero"`
}

// PurchaseEntry is an append-mostly purchase log record. Its IngredientID may
// dangle after the ingredient is deleted; the log is never auto-pruned.
type PurchaseEntry struct {
	ID           string    `json:"id"`
	At           time.Time `json:"at"`
	Total        float64   `json:"total"`
	IngredientID string    `json:"ingredientId"`
	Packs        int       `json:"packs"`
	BuyAmount    float64   `json:"buyAmount"`
	Unit         string    `json:"unit"`
}

// WasteEntry records thrown-away stock, with the cost at time of waste.
type WasteEntry struct {
	ID           string    `json:"id"`
	At           time.Time `json:"at"`
	IngredientID string    `json:"ingredientId"`
	Amount       float64   `json:"amount"`
	Unit         string    `json:"unit"`
	Cost         float64   `json:"cost"`
}

// Session is the in-progress shopping trip. Checked maps ingredient id to
// "marked bought in this trip".
type Session struct {
	Active    bool            `json:"active"`
	Checked   map[string]bool `json:"checked"`
	StartedAt time.Time       `json:"startedAt,omitzero"`
}

// Settings holds the small amount of user preference the engine cares about.
type Settings struct {
	Currency string `json:"currency"`
}

// State is the whole persisted document.
type State struct {
	Schema         int             `json:"schema"`
	Ingredients    []Ingredient    `json:"ingredients"`
	Pantry         []Lot           `json:"pantry"`
	Recipes        []Recipe        `json:"recipes"`
	PlannedRecipes []PlannedRecipe `json:"plannedRecipes"`
	Shopping       []ShoppingEntry `json:"shopping"`
	PurchaseLog    []PurchaseEntry `json:"purchaseLog"`
	WasteLog       []WasteEntry    `json:"wasteLog"`
	Session        Session         `json:"session"`
	Settings       Settings        `json:"settings"`
}

// NewState returns an empty state with all collections initialized.
func NewState() *State {
	return &State{
		Ingredients:    []Ingredient{},
		Pantry:         []Lot{},
		Recipes:        []Recipe{},
		PlannedRecipes: []PlannedRecipe{},
		Shopping:       []ShoppingEntry{},
		PurchaseLog:    []PurchaseEntry{},
		WasteLog:       []WasteEntry{},
		Session:        Session{Checked: map[string]bool{}},
		Settings:       Settings{Currency: "€"},
	}
}

// Clone deep-copies the state via a JSON round-trip. The document is plain
// data, so this is both correct and cheap enough for undo snapshots.
func (s *State) Clone() *State {
	raw, err := json.Marshal(s)
	if err != nil {
		// State is marshalable by construction; treat failure as empty.
		return NewState()
	}
	out := NewState()
	if err := json.Unmarshal(raw, out); err != nil {
		return NewState()
	}
	if out.Session.Checked == nil {
		out.Session.Checked = map[string]bool{}
	}
	return out
}

// IngredientByID returns the catalog entry for id, ok=false when missing.
func (s *State) IngredientByID(id string) (Ingredient, bool) {
	for _, ing := range s.Ingredients {
		if ing.ID == id {
			return ing, true
		}
	}
	return Ingredient{}, false
}

// RecipeByID returns the recipe for id, ok=false when missing.
func (s *State) RecipeByID(id string) (Recipe, bool) {
	for _, r := range s.Recipes {
		if r.ID == id {
			return r, true
		}
	}
	return Recipe{}, false
}

// IngredientIndex builds an id -> Ingredient lookup map.
func IngredientIndex(ings []Ingredient) map[string]Ingredient {
	idx := make(map[string]Ingredient, len(ings))
	for _, ing := range ings {
		idx[ing.ID] = ing
	}
	return idx
}
