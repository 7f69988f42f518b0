package pantry

import (
	"sort"
	"time"

	"github.com/pantrybook/pantrybook/internal/models"
	"github.com/pantrybook/pantrybook/internal/quantity"
)

// ExpiryBucket is the ordinal days-left scale used by the pantry overview.
type ExpiryBucket int

const (
	BucketNone ExpiryBucket = iota // no lot with an expiry
	BucketWeekPlus
	BucketWeek
	BucketThreeDays
	BucketTomorrow
)

func (b ExpiryBucket) String() string {
	switch b {
	case BucketTomorrow:
		return "<=1d"
	case BucketThreeDays:
		return "<=3d"
	case BucketWeek:
		return "<=7d"
	case BucketWeekPlus:
		return ">7d"
	default:
		return "none"
	}
}

// Grouped is the per-ingredient pantry summary.
type Grouped struct {
	IngredientID   string
	Name           string
	TotalAmount    float64
	Unit           string
	TotalCost      float64
	CostKnown      bool
	EarliestExpiry time.Time
	Bucket         ExpiryBucket
}

// Group aggregates all lots per ingredient: total amount, total cost under
// the same live-repricing rule as Normalize, earliest expiry across lots and
// its bucket. Lots of a deleted ingredient render with a fallback name and
// are excluded from cost and expiry computations.
func Group(lots []models.Lot, catalog map[string]models.Ingredient, now time.Time) []Grouped {
	byIng := make(map[string]*Grouped)
	order := []string{}

	for _, l := range lots {
		g, ok := byIng[l.IngredientID]
		if !ok {
			g = &Grouped{IngredientID: l.IngredientID, Name: FallbackName, Unit: l.Unit}
			if ing, found := catalog[l.IngredientID]; found {
				g.Name = ing.Name
				g.Unit = ing.Unit
				g.CostKnown = true
			}
			byIng[l.IngredientID] = g
			order = append(order, l.IngredientID)
		}
		g.TotalAmount += l.Amount
		if !g.CostKnown {
			continue
		}
		if up, ok := unitPriceFor(l.IngredientID, catalog); ok {
			g.TotalCost += l.Amount * up
		} else {
			g.TotalCost += l.Cost
		}
		if !l.ExpiresAt.IsZero() && (g.EarliestExpiry.IsZero() || l.ExpiresAt.Before(g.EarliestExpiry)) {
			g.EarliestExpiry = l.ExpiresAt
		}
	}

	out := make([]Grouped, 0, len(order))
	for _, id := range order {
		g := *byIng[id]
		g.TotalCost = quantity.RoundMoney(g.TotalCost)
		g.Bucket = bucketFor(g.EarliestExpiry, now)
		out = append(out, g)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func bucketFor(expiry time.Time, now time.Time) ExpiryBucket {
	if expiry.IsZero() {
		return BucketNone
	}
	days := expiry.Sub(now).Hours() / 24
	switch {
	case days <= 1:
		return BucketTomorrow
	case days <= 3:
		return BucketThreeDays
	case days <= 7:
		return BucketWeek
	default:
		return BucketWeekPlus
	}
}
