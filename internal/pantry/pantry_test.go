package pantry

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/pantrybook/pantrybook/internal/models"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// metricEpsilon matches the zero threshold for weight/volume units.
const metricEpsilon = 0.5

func day(offset int) time.Time {
	return testNow.AddDate(0, 0, offset)
}

// flour: 1000g pack for 2.00 => unit price 0.002/g
func testCatalog() map[string]models.Ingredient {
	return map[string]models.Ingredient{
		"flour": {ID: "flour", Name: "Flour", Amount: 1000, Unit: "g", Price: 2.00},
		"eggs":  {ID: "eggs", Name: "Eggs", Amount: 10, Unit: "pcs", Price: 3.50},
	}
}

func totalAmount(lots []models.Lot, ingredientID string) float64 {
	total := 0.0
	for _, l := range lots {
		if l.IngredientID == ingredientID {
			total += l.Amount
		}
	}
	return total
}

func TestNormalizeMergesSameDayLots(t *testing.T) {
	lots := []models.Lot{
		{ID: "a", IngredientID: "flour", Amount: 1000, Unit: "g", BoughtAt: day(-3), ExpiresAt: day(30)},
		{ID: "b", IngredientID: "flour", Amount: 500, Unit: "g", BoughtAt: day(-3), ExpiresAt: day(30)},
	}

	got := Normalize(lots, testCatalog())
	if len(got) != 1 {
		t.Fatalf("expected 1 merged lot, got %d", len(got))
	}
	if math.Abs(got[0].Amount-1500) > 1e-9 {
		t.Errorf("merged amount = %v, want 1500", got[0].Amount)
	}
	// Live re-pricing wins: 1500g * 0.002 = 3.00
	if math.Abs(got[0].Cost-3.00) > 0.001 {
		t.Errorf("merged cost = %v, want 3.00", got[0].Cost)
	}
}

func TestNormalizeNeverMergesUndatedLots(t *testing.T) {
	// Both date fields empty => each lot keys on its own id.
	lots := []models.Lot{
		{ID: "a", IngredientID: "flour", Amount: 1000, Unit: "g"},
		{ID: "b", IngredientID: "flour", Amount: 500, Unit: "g"},
	}

	got := Normalize(lots, testCatalog())
	if len(got) != 2 {
		t.Fatalf("undated lots must not merge: expected 2 lots, got %d", len(got))
	}
	if math.Abs(totalAmount(got, "flour")-1500) > 1e-9 {
		t.Errorf("total amount = %v, want 1500", totalAmount(got, "flour"))
	}
}

func TestNormalizeDifferentDaysStaySeparate(t *testing.T) {
	lots := []models.Lot{
		{ID: "a", IngredientID: "flour", Amount: 1000, Unit: "g", BoughtAt: day(-3), ExpiresAt: day(30)},
		{ID: "b", IngredientID: "flour", Amount: 500, Unit: "g", BoughtAt: day(-1), ExpiresAt: day(30)},
	}
	if got := Normalize(lots, testCatalog()); len(got) != 2 {
		t.Fatalf("different purchase days must not merge: got %d lots", len(got))
	}
}

func TestNormalizeValuePriorityWithoutCatalogPrice(t *testing.T) {
	// No catalog entry: remaining value falls back to pricePaid scaled by
	// pack size (1.50 * 500/1000 = 0.75).
	lots := []models.Lot{
		{ID: "a", IngredientID: "ghost", Amount: 500, Unit: "g", BoughtAt: day(-1), ExpiresAt: day(5), PricePaid: 1.50, PackSize: 1000},
	}
	got := Normalize(lots, map[string]models.Ingredient{})
	if len(got) != 1 {
		t.Fatalf("expected 1 lot, got %d", len(got))
	}
	if math.Abs(got[0].Cost-0.75) > 0.001 {
		t.Errorf("cost = %v, want 0.75", got[0].Cost)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	lots := []models.Lot{
		{ID: "a", IngredientID: "flour", Amount: 1000, Unit: "g", BoughtAt: day(-3), ExpiresAt: day(30)},
		{ID: "b", IngredientID: "flour", Amount: 500, Unit: "g", BoughtAt: day(-3), ExpiresAt: day(30)},
		{ID: "c", IngredientID: "flour", Amount: 200, Unit: "g"},
		{ID: "d", IngredientID: "eggs", Amount: 6, Unit: "pcs", BoughtAt: day(-1)},
	}

	once := Normalize(lots, testCatalog())
	twice := Normalize(once, testCatalog())
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Normalize is not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestNormalizeSortsByExpiry(t *testing.T) {
	lots := []models.Lot{
		{ID: "none", IngredientID: "flour", Amount: 100, Unit: "g", BoughtAt: day(-9)},
		{ID: "late", IngredientID: "flour", Amount: 100, Unit: "g", BoughtAt: day(-1), ExpiresAt: day(20)},
		{ID: "soon", IngredientID: "flour", Amount: 100, Unit: "g", BoughtAt: day(-2), ExpiresAt: day(2)},
	}
	got := Normalize(lots, testCatalog())
	if len(got) != 3 {
		t.Fatalf("expected 3 lots, got %d", len(got))
	}
	if got[0].ID != "soon" || got[1].ID != "late" || got[2].ID != "none" {
		t.Errorf("wrong order: %s, %s, %s (want soon, late, none)", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestConsumeConservation(t *testing.T) {
	tests := []struct {
		name         string
		take         float64
		wantConsumed float64
		wantLeft     float64
	}{
		{"partial", 600, 600, 900},
		{"exact", 1500, 1500, 0},
		{"beyond stock", 2000, 1500, 0},
		{"zero", 0, 0, 1500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lots := []models.Lot{
				{ID: "soon", IngredientID: "flour", Amount: 1000, Unit: "g", BoughtAt: day(-3), ExpiresAt: day(2)},
				{ID: "late", IngredientID: "flour", Amount: 500, Unit: "g", BoughtAt: day(-1), ExpiresAt: day(20)},
			}
			got, consumed := Consume(lots, "flour", tt.take, testCatalog(), ConsumeOptions{})
			if math.Abs(consumed-tt.wantConsumed) > 1e-9 {
				t.Errorf("consumed = %v, want %v", consumed, tt.wantConsumed)
			}
			left := totalAmount(got, "flour")
			if math.Abs(left-tt.wantLeft) > metricEpsilon {
				t.Errorf("remaining = %v, want %v", left, tt.wantLeft)
			}
			if left < 0 {
				t.Error("stock must never go negative")
			}
		})
	}
}


func TestConsumeTakesSoonestExpiryFirst(t *testing.T) {
	lots := []models.Lot{
		{ID: "late", IngredientID: "flour", Amount: 500, Unit: "g", BoughtAt: day(-1), ExpiresAt: day(20)},
		{ID: "soon", IngredientID: "flour", Amount: 1000, Unit: "g", BoughtAt: day(-3), ExpiresAt: day(2)},
	}
	got, _ := Consume(lots, "flour", 1000, testCatalog(), ConsumeOptions{})
	if len(got) != 1 {
		t.Fatalf("expected the soon lot fully drained, got %d lots", len(got))
	}
	if got[0].ID != "late" {
		t.Errorf("surviving lot = %s, want late", got[0].ID)
	}
}

func TestConsumeRepricesFromLivePrice(t *testing.T) {
	lots := []models.Lot{
		{ID: "a", IngredientID: "flour", Amount: 1000, Unit: "g", BoughtAt: day(-3), ExpiresAt: day(2), Cost: 99},
	}
	got, _ := Consume(lots, "flour", 400, testCatalog(), ConsumeOptions{})
	if len(got) != 1 {
		t.Fatalf("expected 1 lot, got %d", len(got))
	}
	// 600g * 0.002 = 1.20; the stale stored cost must not survive.
	if math.Abs(got[0].Cost-1.20) > 0.001 {
		t.Errorf("cost = %v, want 1.20", got[0].Cost)
	}
}

func TestConsumeSkipsExpiredWhenCooking(t *testing.T) {
	lots := []models.Lot{
		{ID: "expired", IngredientID: "flour", Amount: 800, Unit: "g", BoughtAt: day(-30), ExpiresAt: day(-1)},
		{ID: "fresh", IngredientID: "flour", Amount: 300, Unit: "g", BoughtAt: day(-2), ExpiresAt: day(5)},
	}
	got, consumed := Consume(lots, "flour", 500, testCatalog(), ConsumeOptions{OnlyUnexpired: true, Now: testNow})
	if math.Abs(consumed-300) > 1e-9 {
		t.Errorf("consumed = %v, want 300 (only the fresh lot)", consumed)
	}
	if math.Abs(totalAmount(got, "flour")-800) > 1e-9 {
		t.Errorf("expired lot must stay untouched, total = %v, want 800", totalAmount(got, "flour"))
	}
}

func TestConsumeRemovesResidue(t *testing.T) {
	lots := []models.Lot{
		{ID: "a", IngredientID: "flour", Amount: 500, Unit: "g", BoughtAt: day(-3), ExpiresAt: day(2)},
	}
	got, _ := Consume(lots, "flour", 499.7, testCatalog(), ConsumeOptions{})
	if len(got) != 0 {
		t.Errorf("0.3g residue should be cleaned up, got %d lots", len(got))
	}
}

func TestRepriceInvariant(t *testing.T) {
	catalog := testCatalog()
	lots := []models.Lot{
		{ID: "a", IngredientID: "flour", Amount: 750, Unit: "g", Cost: 5.00, UnitCost: 1},
		{ID: "b", IngredientID: "flour", Amount: 250, Unit: "g"},
		{ID: "c", IngredientID: "eggs", Amount: 4, Unit: "pcs"},
	}

	if !Reprice(lots, catalog["flour"]) {
		t.Error("expected Reprice to report a change")
	}
	for _, l := range lots {
		ing := catalog[l.IngredientID]
		want := math.Round(l.Amount*(ing.Price/ing.Amount)*100) / 100
		if l.IngredientID == "flour" && math.Abs(l.Cost-want) > 0.001 {
			t.Errorf("lot %s cost = %v, want %v", l.ID, l.Cost, want)
		}
	}
	if Reprice(lots, catalog["flour"]) {
		t.Error("second Reprice must be a no-op")
	}
}

func TestAddBackPrefersNewestLot(t *testing.T) {
	lots := []models.Lot{
		{ID: "soon", IngredientID: "flour", Amount: 100, Unit: "g", BoughtAt: day(-5), ExpiresAt: day(2)},
		{ID: "late", IngredientID: "flour", Amount: 100, Unit: "g", BoughtAt: day(-1), ExpiresAt: day(20)},
	}
	got := AddBack(lots, "flour", 50, testCatalog(), testNow, func() string { return "new" })
	for _, l := range got {
		if l.ID == "late" && math.Abs(l.Amount-150) > 1e-9 {
			t.Errorf("newest lot amount = %v, want 150", l.Amount)
		}
		if l.ID == "soon" && math.Abs(l.Amount-100) > 1e-9 {
			t.Errorf("older lot must stay at 100, got %v", l.Amount)
		}
	}
}

func TestAddBackCreatesLotWhenNoneLeft(t *testing.T) {
	got := AddBack(nil, "flour", 200, testCatalog(), testNow, func() string { return "new" })
	if len(got) != 1 {
		t.Fatalf("expected a new lot, got %d", len(got))
	}
	if got[0].Source != models.SourceManual || got[0].Amount != 200 {
		t.Errorf("unexpected lot: %+v", got[0])
	}
}

func TestAvailableIgnoresExpired(t *testing.T) {
	lots := []models.Lot{
		{ID: "expired", IngredientID: "flour", Amount: 500, Unit: "g", ExpiresAt: day(-1)},
		{ID: "fresh", IngredientID: "flour", Amount: 200, Unit: "g", ExpiresAt: day(5)},
		{ID: "nodate", IngredientID: "flour", Amount: 100, Unit: "g"},
	}
	if got := Available(lots, "flour", testNow); math.Abs(got-300) > 1e-9 {
		t.Errorf("Available = %v, want 300 (fresh + undated)", got)
	}
}

func TestGroup(t *testing.T) {
	lots := []models.Lot{
		{ID: "a", IngredientID: "flour", Amount: 1000, Unit: "g", ExpiresAt: day(2)},
		{ID: "b", IngredientID: "flour", Amount: 500, Unit: "g", ExpiresAt: day(10)},
		{ID: "c", IngredientID: "ghost", Amount: 3, Unit: "pcs", ExpiresAt: day(1)},
	}
	got := Group(lots, testCatalog(), testNow)
	if len(got) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(got))
	}

	var flour, ghost *Grouped
	for i := range got {
		switch got[i].IngredientID {
		case "flour":
			flour = &got[i]
		case "ghost":
			ghost = &got[i]
		}
	}
	if flour == nil || ghost == nil {
		t.Fatal("missing group")
	}

	if math.Abs(flour.TotalAmount-1500) > 1e-9 {
		t.Errorf("flour total = %v, want 1500", flour.TotalAmount)
	}
	// 1500g * 0.002
	if math.Abs(flour.TotalCost-3.00) > 0.001 {
		t.Errorf("flour cost = %v, want 3.00", flour.TotalCost)
	}
	if flour.Bucket != BucketThreeDays {
		t.Errorf("flour bucket = %v, want <=3d", flour.Bucket)
	}

	if ghost.Name != FallbackName {
		t.Errorf("ghost name = %q, want fallback", ghost.Name)
	}
	if ghost.CostKnown || ghost.TotalCost != 0 {
		t.Errorf("deleted ingredient must be excluded from cost: %+v", ghost)
	}
	if ghost.Bucket != BucketNone {
		t.Errorf("deleted ingredient must be excluded from expiry: %v", ghost.Bucket)
	}
}

func TestBucketFor(t *testing.T) {
	tests := []struct {
		expiry time.Time
		want   ExpiryBucket
	}{
		{time.Time{}, BucketNone},
		{testNow.Add(6 * time.Hour), BucketTomorrow},
		{day(-2), BucketTomorrow}, // already expired still shows most urgent
		{day(2), BucketThreeDays},
		{day(6), BucketWeek},
		{day(30), BucketWeekPlus},
	}
	for _, tt := range tests {
		if got := bucketFor(tt.expiry, testNow); got != tt.want {
			t.Errorf("bucketFor(%v) = %v, want %v", tt.expiry, got, tt.want)
		}
	}
}
