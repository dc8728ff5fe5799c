// Package catalog owns the in-memory collection of product groups and
// enforces its invariants: one group per barcode, one batch per expiry day
// within a group, every batch holding at least one unit, and no empty groups.
package catalog

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mmynk/pantry/internal/models"
)

var (
	ErrNotFound         = errors.New("product or batch not found")
	ErrStaleReference   = errors.New("the product or batch to merge into no longer exists")
	ErrMinimumReached   = errors.New("quantity cannot go below 1")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
	ErrEmptyBarcode     = errors.New("barcode is required")
	ErrBarcodeCollision = errors.New("another product already uses this barcode")
	ErrDuplicateExpiry  = errors.New("two batches share the same expiry date")
)

// RegistrationKind tells the caller what Register did.
type RegistrationKind int

const (
	// Created means a new product group was added.
	Created RegistrationKind = iota
	// BatchAdded means a new expiry batch was added to an existing group.
	BatchAdded
	// MergePending means a batch with the same date exists. Nothing was
	// changed; the caller must pass the pending merge to ConfirmMerge.
	MergePending
)

func (k RegistrationKind) String() string {
	switch k {
	case Created:
		return "created"
	case BatchAdded:
		return "batch_added"
	case MergePending:
		return "merge_pending"
	default:
		return "unknown"
	}
}

// PendingMerge carries a quantity waiting for confirmation before it is
// added to an existing batch.
type PendingMerge struct {
	GroupID       int64
	Barcode       string
	Name          string
	ExpiryDate    models.Date
	CurrentQty    int
	QuantityToAdd int
}

// Registration is the result of Register.
type Registration struct {
	Kind    RegistrationKind
	GroupID int64
	Pending *PendingMerge // set only when Kind is MergePending
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithClock replaces time.Now as the source of ids and modification times.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) {
		c.now = now
	}
}

// Catalog is the single source of truth for product groups.
// It is safe for concurrent use.
type Catalog struct {
	mu     sync.RWMutex
	groups []*models.ProductGroup
	lastID int64
	now    func() time.Time
}

// New creates a catalog holding copies of groups. The groups are trusted to
// satisfy the catalog invariants; validate untrusted input first.
func New(groups []models.ProductGroup, opts ...Option) *Catalog {
	c := &Catalog{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	c.load(groups)
	return c
}

func (c *Catalog) load(groups []models.ProductGroup) {
	c.groups = make([]*models.ProductGroup, 0, len(groups))
	for _, g := range groups {
		g = g.Clone()
		g.SortExpiries()
		c.groups = append(c.groups, &g)
		c.lastID = max(c.lastID, g.ID)
	}
}

// Register records qty units of the product with the given barcode expiring
// on date. See RegistrationKind for the possible outcomes.
func (c *Catalog) Register(barcode, name string, date models.Date, qty int) (Registration, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return Registration{}, ErrEmptyBarcode
	}
	if qty < 1 {
		return Registration{}, ErrInvalidQuantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	g := c.byBarcode(barcode)
	if g == nil {
		now := c.millis()
		g = &models.ProductGroup{
			ID:           c.nextID(now),
			Name:         strings.TrimSpace(name),
			Barcode:      barcode,
			LastModified: now,
			Expiries:     []models.ExpiryBatch{{ExpiryDate: date, Quantity: qty}},
		}
		c.groups = append(c.groups, g)
		return Registration{Kind: Created, GroupID: g.ID}, nil
	}

	if i := g.Batch(date); i >= 0 {
		return Registration{
			Kind:    MergePending,
			GroupID: g.ID,
			Pending: &PendingMerge{
				GroupID:       g.ID,
				Barcode:       g.Barcode,
				Name:          g.Name,
				ExpiryDate:    date,
				CurrentQty:    g.Expiries[i].Quantity,
				QuantityToAdd: qty,
			},
		}, nil
	}

	g.Expiries = append(g.Expiries, models.ExpiryBatch{ExpiryDate: date, Quantity: qty})
	g.SortExpiries()
	g.LastModified = c.millis()
	return Registration{Kind: BatchAdded, GroupID: g.ID}, nil
}

// ConfirmMerge adds the pending quantity to its batch. It fails with
// ErrStaleReference when the group or batch was removed in the meantime.
func (c *Catalog) ConfirmMerge(p PendingMerge) error {
	if p.QuantityToAdd < 1 {
		return ErrInvalidQuantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	g := c.byID(p.GroupID)
	if g == nil {
		return ErrStaleReference
	}
	i := g.Batch(p.ExpiryDate)
	if i < 0 {
		return ErrStaleReference
	}
	g.Expiries[i].Quantity += p.QuantityToAdd
	g.LastModified = c.millis()
	return nil
}

// AdjustQuantity adds delta to a batch and returns the new quantity.
// A result below 1 is refused with ErrMinimumReached and nothing changes;
// emptying a batch takes an explicit RemoveBatch.
func (c *Catalog) AdjustQuantity(groupID int64, date models.Date, delta int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g := c.byID(groupID)
	if g == nil {
		return 0, ErrNotFound
	}
	i := g.Batch(date)
	if i < 0 {
		return 0, ErrNotFound
	}

	b := &g.Expiries[i]
	if b.Quantity+delta < 1 {
		return b.Quantity, ErrMinimumReached
	}
	if delta == 0 {
		return b.Quantity, nil
	}
	b.Quantity += delta
	g.LastModified = c.millis()
	return b.Quantity, nil
}

// RemoveBatch deletes one batch. When it was the group's last batch the
// group is deleted as well and groupRemoved is true.
func (c *Catalog) RemoveBatch(groupID int64, date models.Date) (groupRemoved bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g := c.byID(groupID)
	if g == nil {
		return false, ErrNotFound
	}
	i := g.Batch(date)
	if i < 0 {
		return false, ErrNotFound
	}

	g.Expiries = slices.Delete(g.Expiries, i, i+1)
	g.LastModified = c.millis()
	if len(g.Expiries) == 0 {
		c.removeGroup(groupID)
		return true, nil
	}
	return false, nil
}

// EditGroup replaces the name, barcode and batches of a group.
// An empty expiries slice deletes the group, the same as removing its last
// batch. A barcode held by another group is rejected with
// ErrBarcodeCollision.
func (c *Catalog) EditGroup(groupID int64, name, barcode string, expiries []models.ExpiryBatch) (groupRemoved bool, err error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return false, ErrEmptyBarcode
	}
	seen := make(map[models.Date]bool, len(expiries))
	for _, b := range expiries {
		if b.Quantity < 1 {
			return false, ErrInvalidQuantity
		}
		if seen[b.ExpiryDate] {
			return false, ErrDuplicateExpiry
		}
		seen[b.ExpiryDate] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	g := c.byID(groupID)
	if g == nil {
		return false, ErrNotFound
	}
	if len(expiries) == 0 {
		c.removeGroup(groupID)
		return true, nil
	}
	if other := c.byBarcode(barcode); other != nil && other.ID != groupID {
		return false, ErrBarcodeCollision
	}

	g.Name = strings.TrimSpace(name)
	g.Barcode = barcode
	g.Expiries = slices.Clone(expiries)
	g.SortExpiries()
	g.LastModified = c.millis()
	return false, nil
}

// ClearAll removes every group.
func (c *Catalog) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groups = nil
}

// Replace discards the current contents and loads groups in their place.
// This is the destructive overwrite behind import and sync pull.
func (c *Catalog) Replace(groups []models.ProductGroup) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastID = 0
	c.load(groups)
}

// Groups returns a deep copy of all groups in catalog order.
func (c *Catalog) Groups() []models.ProductGroup {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.ProductGroup, len(c.groups))
	for i, g := range c.groups {
		out[i] = g.Clone()
	}
	return out
}

// Len returns the number of groups.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.groups)
}

// Find returns a copy of the group with the given id.
func (c *Catalog) Find(groupID int64) (models.ProductGroup, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if g := c.byID(groupID); g != nil {
		return g.Clone(), true
	}
	return models.ProductGroup{}, false
}

// FindByBarcode returns a copy of the group with the given barcode.
func (c *Catalog) FindByBarcode(barcode string) (models.ProductGroup, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if g := c.byBarcode(strings.TrimSpace(barcode)); g != nil {
		return g.Clone(), true
	}
	return models.ProductGroup{}, false
}

func (c *Catalog) byID(id int64) *models.ProductGroup {
	for _, g := range c.groups {
		if g.ID == id {
			return g
		}
	}
	return nil
}

func (c *Catalog) byBarcode(barcode string) *models.ProductGroup {
	for _, g := range c.groups {
		if g.Barcode == barcode {
			return g
		}
	}
	return nil
}

func (c *Catalog) removeGroup(id int64) {
	c.groups = slices.DeleteFunc(c.groups, func(g *models.ProductGroup) bool {
		return g.ID == id
	})
}

func (c *Catalog) millis() int64 {
	return c.now().UnixMilli()
}

// nextID returns a creation-ordered id that no live group holds.
func (c *Catalog) nextID(now int64) int64 {
	id := max(now, c.lastID+1)
	c.lastID = id
	return id
}
