package projection

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mmynk/pantry/internal/models"
)

// DefaultSoonDays is how many days ahead a batch counts as expiring soon.
const DefaultSoonDays = 7

// SortKey selects the ordering of projected groups.
type SortKey string

const (
	SortCatalog      SortKey = ""
	SortExpiry       SortKey = "expiryDate"
	SortLastModified SortKey = "lastModified"
	SortName         SortKey = "name"
	SortRegistered   SortKey = "registrationDate"
)

// ParseSortKey maps user input to a SortKey. Unknown keys keep catalog order.
func ParseSortKey(s string) SortKey {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "expiry", "expirydate", "expiry_date":
		return SortExpiry
	case "modified", "lastmodified", "last_modified", "recent":
		return SortLastModified
	case "name":
		return SortName
	case "registered", "registrationdate", "registration_date", "created":
		return SortRegistered
	default:
		return SortCatalog
	}
}

// Status classifies a batch by how close it is to expiry.
type Status int

const (
	Normal Status = iota
	ExpiringSoon
	Expired
)

func (s Status) String() string {
	switch s {
	case Expired:
		return "expired"
	case ExpiringSoon:
		return "expiring-soon"
	default:
		return "normal"
	}
}

// View holds the user's list preferences.
type View struct {
	Search      string
	Sort        SortKey
	ExpiredOnly bool

	// Locale drives name collation. The zero value collates by root order.
	Locale language.Tag

	// SoonDays overrides DefaultSoonDays when positive.
	SoonDays int
}

// AnnotatedBatch is a batch with its expiry status relative to today.
type AnnotatedBatch struct {
	models.ExpiryBatch
	Status   Status
	DaysLeft int
}

// AnnotatedGroup is a group ready for display.
type AnnotatedGroup struct {
	Group         models.ProductGroup
	Batches       []AnnotatedBatch // ascending by date
	TotalQuantity int
	Status        Status // most urgent batch status
}

// Project filters, sorts and annotates groups for display.
// It does not modify groups and depends only on its arguments.
//
// Steps:
//   - keep groups whose name or barcode contains view.Search (case-folded)
//   - with ExpiredOnly, keep groups holding a batch dated before today
//   - stable-sort by view.Sort
//   - classify every batch as expired, expiring soon or normal
func Project(groups []models.ProductGroup, view View, today models.Date) []AnnotatedGroup {
	fold := cases.Fold()
	term := fold.String(strings.TrimSpace(view.Search))

	filtered := make([]models.ProductGroup, 0, len(groups))
	for _, g := range groups {
		if term != "" &&
			!strings.Contains(fold.String(g.Name), term) &&
			!strings.Contains(fold.String(g.Barcode), term) {
			continue
		}
		if view.ExpiredOnly && !hasExpired(g, today) {
			continue
		}
		filtered = append(filtered, g)
	}

	sortGroups(filtered, view)

	soon := view.SoonDays
	if soon <= 0 {
		soon = DefaultSoonDays
	}

	out := make([]AnnotatedGroup, len(filtered))
	for i, g := range filtered {
		out[i] = annotate(g, today, soon)
	}
	return out
}

// Classify returns the status of a batch expiring on expiry, seen from today.
func Classify(expiry, today models.Date, soonDays int) (Status, int) {
	days := today.DaysUntil(expiry)
	switch {
	case days < 0:
		return Expired, days
	case days <= soonDays:
		return ExpiringSoon, days
	default:
		return Normal, days
	}
}

func hasExpired(g models.ProductGroup, today models.Date) bool {
	for _, b := range g.Expiries {
		if b.ExpiryDate.Before(today) {
			return true
		}
	}
	return false
}

func sortGroups(groups []models.ProductGroup, view View) {
	switch view.Sort {
	case SortExpiry:
		slices.SortStableFunc(groups, func(a, b models.ProductGroup) int {
			sa, okA := a.Soonest()
			sb, okB := b.Soonest()
			if !okA || !okB {
				// groups without batches sort last
				return cmp.Compare(boolRank(okA), boolRank(okB))
			}
			return sa.Compare(sb)
		})
	case SortLastModified:
		slices.SortStableFunc(groups, func(a, b models.ProductGroup) int {
			return cmp.Compare(touched(b), touched(a))
		})
	case SortName:
		col := collate.New(view.Locale)
		slices.SortStableFunc(groups, func(a, b models.ProductGroup) int {
			return col.CompareString(a.Name, b.Name)
		})
	case SortRegistered:
		slices.SortStableFunc(groups, func(a, b models.ProductGroup) int {
			return cmp.Compare(a.ID, b.ID)
		})
	}
}

func boolRank(ok bool) int {
	if ok {
		return 0
	}
	return 1
}

func touched(g models.ProductGroup) int64 {
	if g.LastModified != 0 {
		return g.LastModified
	}
	return g.ID
}

func annotate(g models.ProductGroup, today models.Date, soonDays int) AnnotatedGroup {
	g = g.Clone()
	g.SortExpiries()

	ag := AnnotatedGroup{
		Group:   g,
		Batches: make([]AnnotatedBatch, len(g.Expiries)),
		Status:  Normal,
	}
	for i, b := range g.Expiries {
		status, days := Classify(b.ExpiryDate, today, soonDays)
		ag.Batches[i] = AnnotatedBatch{ExpiryBatch: b, Status: status, DaysLeft: days}
		ag.TotalQuantity += b.Quantity
		ag.Status = max(ag.Status, status)
	}
	return ag
}
