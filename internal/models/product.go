package models

import "slices"

// ProductGroup is one tracked product. There is exactly one group per
// barcode in a catalog.
type ProductGroup struct {
	// ID is the creation time in Unix milliseconds. It is unique among live
	// groups and never changes once assigned.
	ID int64 `json:"id"`

	// Name is the display name. Several groups may share a name.
	Name string `json:"name"`

	// Barcode is the lookup key of the group.
	Barcode string `json:"barcode" validate:"required"`

	// LastModified is the Unix millisecond timestamp of the last change to
	// the group or any of its batches. Zero when unknown.
	LastModified int64 `json:"lastModified,omitempty"`

	// Expiries holds one batch per expiry day, ordered by date.
	Expiries []ExpiryBatch `json:"expiries" validate:"required,min=1,dive"`
}

// ExpiryBatch is the quantity of a product that expires on one day.
type ExpiryBatch struct {
	ExpiryDate Date `json:"expiryDate"`
	Quantity   int  `json:"quantity" validate:"min=1"`
}

// Batch returns the index of the batch expiring on date, or -1.
func (g *ProductGroup) Batch(date Date) int {
	return slices.IndexFunc(g.Expiries, func(b ExpiryBatch) bool {
		return b.ExpiryDate == date
	})
}

// SortExpiries orders the batches by ascending expiry date.
func (g *ProductGroup) SortExpiries() {
	slices.SortStableFunc(g.Expiries, func(a, b ExpiryBatch) int {
		return a.ExpiryDate.Compare(b.ExpiryDate)
	})
}

// Soonest returns the earliest expiry date of the group.
// The second result is false when the group has no batches.
func (g ProductGroup) Soonest() (Date, bool) {
	if len(g.Expiries) == 0 {
		return Date{}, false
	}
	soonest := g.Expiries[0].ExpiryDate
	for _, b := range g.Expiries[1:] {
		if b.ExpiryDate.Before(soonest) {
			soonest = b.ExpiryDate
		}
	}
	return soonest, true
}

// TotalQuantity sums the quantities of all batches.
func (g ProductGroup) TotalQuantity() int {
	total := 0
	for _, b := range g.Expiries {
		total += b.Quantity
	}
	return total
}

// Clone returns a deep copy of g.
func (g ProductGroup) Clone() ProductGroup {
	g.Expiries = slices.Clone(g.Expiries)
	return g
}
