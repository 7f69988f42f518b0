// Package state turns raw persisted documents into well-shaped current-schema
// state: versioned migrations, shape normalization, and the export/import
// envelope.
package state

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/pantrybook/pantrybook/internal/models"
)

// AppName tags exported documents.
const AppName = "pantrybook"

// CurrentSchema is the document version this build reads and writes.
const CurrentSchema = 2

// migration is one pure step of the schema chain. Step i migrates a document
// from schema i to schema i+1.
type migration func(doc map[string]any) map[string]any

var migrations = []migration{
	migrateV0toV1,
	migrateV1toV2,
}

// Decode parses a raw persisted payload into current-schema state. It accepts
// either a bare state document or the export envelope, runs the migration
// chain from the document's recorded schema, and normalizes the shape.
func Decode(raw []byte) (*models.State, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("state: unparsable document: %w", err)
	}
	if inner, ok := doc["state"].(map[string]any); ok {
		// Export envelope.
		doc = inner
	}

	version := 0
	if v, ok := doc["schema"].(float64); ok && v > 0 {
		version = int(v)
	}
	for ; version < len(migrations); version++ {
		doc = migrations[version](doc)
	}

	remarshaled, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("state: remarshal after migration: %w", err)
	}
	s := models.NewState()
	if err := json.Unmarshal(remarshaled, s); err != nil {
		return nil, fmt.Errorf("state: document does not fit schema: %w", err)
	}

	EnsureShape(s)
	return s, nil
}

// EnsureShape fills missing collections, clamps invalid numbers, validates
// planned-recipe entries and trims cook histories. Idempotent; runs on every
// decoded document and before every save.
func EnsureShape(s *models.State) {
	s.Schema = CurrentSchema
	if s.Ingredients == nil {
		s.Ingredients = []models.Ingredient{}
	}
	if s.Pantry == nil {
		s.Pantry = []models.Lot{}
	}
	if s.Recipes == nil {
		s.Recipes = []models.Recipe{}
	}
	if s.PlannedRecipes == nil {
		s.PlannedRecipes = []models.PlannedRecipe{}
	}
	if s.Shopping == nil {
		s.Shopping = []models.ShoppingEntry{}
	}
	if s.PurchaseLog == nil {
		s.PurchaseLog = []models.PurchaseEntry{}
	}
	if s.WasteLog == nil {
		s.WasteLog = []models.WasteEntry{}
	}
	if s.Session.Checked == nil {
		s.Session.Checked = map[string]bool{}
	}
	if s.Settings.Currency == "" {
		s.Settings.Currency = "€"
	}

	for i := range s.Ingredients {
		ing := &s.Ingredients[i]
		if ing.Amount < 0 {
			ing.Amount = 0
		}
		if ing.Price < 0 {
			ing.Price = 0
		}
		if ing.ShelfLifeDays < 0 {
			ing.ShelfLifeDays = 0
		}
	}

	for i := range s.Pantry {
		if s.Pantry[i].Amount < 0 {
			s.Pantry[i].Amount = 0
		}
	}

	planned := s.PlannedRecipes[:0]
	for _, p := range s.PlannedRecipes {
		if p.RecipeID == "" {
			continue
		}
		if p.PortionsWanted < 1 {
			p.PortionsWanted = 1
		}
		planned = append(planned, p)
	}
	s.PlannedRecipes = planned

	shopping := s.Shopping[:0]
	for _, e := range s.Shopping {
		if e.Packs < 1 {
			e.Packs = 1
		}
		if e.PlanMin != nil && *e.PlanMin < 0 {
			zero := 0
			e.PlanMin = &zero
		}
		shopping = append(shopping, e)
	}
	s.Shopping = shopping

	for i := range s.Recipes {
		r := &s.Recipes[i]
		if r.Portions < 1 {
			r.Portions = 1
		}
		trimCookHistory(r)
	}
}

// trimCookHistory keeps the most recent MaxCookHistory entries in
// chronological order and re-derives the last-cook summary fields.
func trimCookHistory(r *models.Recipe) {
	if len(r.CookHistory) == 0 {
		r.LastCookSeconds = 0
		r.LastCookAt = time.Time{}
		return
	}
	sort.SliceStable(r.CookHistory, func(i, j int) bool {
		return r.CookHistory[i].At.Before(r.CookHistory[j].At)
	})
	if len(r.CookHistory) > models.MaxCookHistory {
		r.CookHistory = r.CookHistory[len(r.CookHistory)-models.MaxCookHistory:]
	}
	last := r.CookHistory[len(r.CookHistory)-1]
	r.LastCookSeconds = last.Seconds
	r.LastCookAt = last.At
}

// Envelope is the export wrapper.
type Envelope struct {
	App        string        `json:"app"`
	Schema     int           `json:"schema"`
	ExportedAt time.Time     `json:"exportedAt"`
	State      *models.State `json:"state"`
}

// Export wraps the state for download: app name, schema version, timestamp,
// pretty-printed.
func Export(s *models.State, now time.Time) ([]byte, error) {
	env := Envelope{App: AppName, Schema: CurrentSchema, ExportedAt: now, State: s}
	raw, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("state: export: %w", err)
	}
	return raw, nil
}

// Import parses an exported envelope or a bare state document. The caller is
// expected to run the full repair pipeline on the result before use.
func Import(raw []byte) (*models.State, error) {
	return Decode(raw)
}
