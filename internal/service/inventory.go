// Package service glues the catalog, its persistence, import/export, sync
// and the reference lookup into the operations the CLI offers.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/mmynk/pantry/internal/catalog"
	"github.com/mmynk/pantry/internal/export"
	"github.com/mmynk/pantry/internal/lookup"
	"github.com/mmynk/pantry/internal/migrate"
	"github.com/mmynk/pantry/internal/models"
	"github.com/mmynk/pantry/internal/projection"
	"github.com/mmynk/pantry/internal/storage"
	"github.com/mmynk/pantry/internal/syncer"
)

var (
	ErrNoData               = errors.New("there is no data to export")
	ErrEmptyImport          = errors.New("nothing to import")
	ErrClipboardUnavailable = errors.New("clipboard is unavailable")
	ErrSyncNotConfigured    = errors.New("sync is not configured")
)

// Clipboard receives exported text.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// Option configures an Inventory.
type Option func(*Inventory)

// WithSyncer enables sync push and pull.
func WithSyncer(s *syncer.Syncer) Option {
	return func(inv *Inventory) { inv.syncer = s }
}

// WithLookup sets the reference table used to pre-fill product names.
func WithLookup(t *lookup.Table) Option {
	return func(inv *Inventory) { inv.refs = t }
}

// WithClock replaces time.Now for ids, modification times and "today".
func WithClock(now func() time.Time) Option {
	return func(inv *Inventory) { inv.now = now }
}

// WithLocale sets the collation used when sorting by name.
func WithLocale(tag language.Tag) Option {
	return func(inv *Inventory) { inv.locale = tag }
}

// WithSoonDays sets the "expiring soon" window.
func WithSoonDays(days int) Option {
	return func(inv *Inventory) { inv.soonDays = days }
}

// Inventory owns the catalog and writes it back to the store after every
// change.
type Inventory struct {
	store    storage.Store
	catalog  *catalog.Catalog
	syncer   *syncer.Syncer
	refs     *lookup.Table
	now      func() time.Time
	locale   language.Tag
	soonDays int
}

// Open loads the persisted products from store. Legacy flat records are
// migrated and written back in grouped form straight away.
func Open(ctx context.Context, store storage.Store, opts ...Option) (*Inventory, error) {
	inv := &Inventory{
		store:  store,
		now:    time.Now,
		locale: language.English,
	}
	for _, opt := range opts {
		opt(inv)
	}

	raw, ok, err := store.Get(ctx, storage.ProductsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	var groups []models.ProductGroup
	migrated := false
	if ok {
		groups, migrated, err = migrate.Decode([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to load products: %w", err)
		}
		if err := migrate.Validate(groups); err != nil {
			return nil, fmt.Errorf("stored products are inconsistent: %w", err)
		}
	}

	inv.catalog = catalog.New(groups, catalog.WithClock(inv.now))

	if migrated {
		slog.Info("Migrated legacy products", "groups", len(groups))
		if err := inv.persist(ctx); err != nil {
			return nil, err
		}
	}
	return inv, nil
}

// Groups returns a copy of the catalog in catalog order.
func (inv *Inventory) Groups() []models.ProductGroup {
	return inv.catalog.Groups()
}

// Find returns a copy of one group.
func (inv *Inventory) Find(groupID int64) (models.ProductGroup, bool) {
	return inv.catalog.Find(groupID)
}

// Today is the current local calendar day.
func (inv *Inventory) Today() models.Date {
	return models.DateOf(inv.now())
}

// View projects the catalog for display. Locale and SoonDays default to
// the inventory's settings when unset.
func (inv *Inventory) View(view projection.View) []projection.AnnotatedGroup {
	if view.Locale == language.Und {
		view.Locale = inv.locale
	}
	if view.SoonDays <= 0 {
		view.SoonDays = inv.soonDays
	}
	return projection.Project(inv.catalog.Groups(), view, inv.Today())
}

// LookupName returns the reference title for a barcode.
func (inv *Inventory) LookupName(barcode string) (string, bool) {
	return inv.refs.Name(barcode)
}

// Register records a new batch. A blank name is filled from the reference
// table when the barcode is not in the catalog yet. A MergePending result
// changes nothing until ConfirmMerge.
func (inv *Inventory) Register(ctx context.Context, barcode, name string, date models.Date, qty int) (catalog.Registration, error) {
	slog.Info("Register request received", "barcode", barcode, "expiry", date, "quantity", qty)

	if strings.TrimSpace(name) == "" {
		if _, exists := inv.catalog.FindByBarcode(barcode); !exists {
			if title, ok := inv.refs.Name(barcode); ok {
				slog.Debug("Name pre-filled from reference list", "barcode", barcode, "name", title)
				name = title
			}
		}
	}

	reg, err := inv.catalog.Register(barcode, name, date, qty)
	if err != nil {
		slog.Error("Register failed", "barcode", barcode, "error", err)
		return reg, err
	}
	if reg.Kind == catalog.MergePending {
		slog.Info("Register needs confirmation", "group_id", reg.GroupID, "current", reg.Pending.CurrentQty)
		return reg, nil
	}
	if err := inv.persist(ctx); err != nil {
		return reg, err
	}

	slog.Info("Register successful", "group_id", reg.GroupID, "kind", reg.Kind)
	return reg, nil
}

// ConfirmMerge applies a pending merge returned by Register.
func (inv *Inventory) ConfirmMerge(ctx context.Context, p catalog.PendingMerge) error {
	slog.Info("ConfirmMerge request received", "group_id", p.GroupID, "expiry", p.ExpiryDate, "add", p.QuantityToAdd)

	if err := inv.catalog.ConfirmMerge(p); err != nil {
		slog.Error("ConfirmMerge failed", "group_id", p.GroupID, "error", err)
		return err
	}
	return inv.persist(ctx)
}

// Adjust changes a batch quantity by delta and returns the new quantity.
func (inv *Inventory) Adjust(ctx context.Context, groupID int64, date models.Date, delta int) (int, error) {
	slog.Info("Adjust request received", "group_id", groupID, "expiry", date, "delta", delta)

	qty, err := inv.catalog.AdjustQuantity(groupID, date, delta)
	if err != nil {
		slog.Warn("Adjust refused", "group_id", groupID, "quantity", qty, "error", err)
		return qty, err
	}
	if err := inv.persist(ctx); err != nil {
		return qty, err
	}
	return qty, nil
}

// RemoveBatch deletes one batch, and the group with it when it was the last.
func (inv *Inventory) RemoveBatch(ctx context.Context, groupID int64, date models.Date) (bool, error) {
	slog.Info("RemoveBatch request received", "group_id", groupID, "expiry", date)

	removed, err := inv.catalog.RemoveBatch(groupID, date)
	if err != nil {
		slog.Error("RemoveBatch failed", "group_id", groupID, "error", err)
		return false, err
	}
	if err := inv.persist(ctx); err != nil {
		return removed, err
	}

	slog.Info("RemoveBatch successful", "group_id", groupID, "group_removed", removed)
	return removed, nil
}

// Edit replaces a group's name, barcode and batches.
func (inv *Inventory) Edit(ctx context.Context, groupID int64, name, barcode string, expiries []models.ExpiryBatch) (bool, error) {
	slog.Info("Edit request received", "group_id", groupID, "barcode", barcode, "batches", len(expiries))

	removed, err := inv.catalog.EditGroup(groupID, name, barcode, expiries)
	if err != nil {
		slog.Error("Edit failed", "group_id", groupID, "error", err)
		return false, err
	}
	if err := inv.persist(ctx); err != nil {
		return removed, err
	}
	return removed, nil
}

// Clear removes every product.
func (inv *Inventory) Clear(ctx context.Context) error {
	slog.Info("Clear request received", "groups", inv.catalog.Len())
	inv.catalog.ClearAll()
	return inv.persist(ctx)
}

// PrepareImport decodes and validates pasted JSON without touching the
// catalog. Pass the result to Replace once the user has confirmed.
func (inv *Inventory) PrepareImport(text string) ([]models.ProductGroup, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyImport
	}
	return decodeSnapshot([]byte(text))
}

// Replace overwrites the catalog with groups that came out of
// PrepareImport or SyncPull.
func (inv *Inventory) Replace(ctx context.Context, groups []models.ProductGroup) error {
	slog.Info("Replace request received", "old_groups", inv.catalog.Len(), "new_groups", len(groups))
	inv.catalog.Replace(groups)
	return inv.persist(ctx)
}

// Export writes the catalog as indented JSON to clip and returns the
// number of groups written. An empty catalog is refused with ErrNoData and
// clip is not touched.
func (inv *Inventory) Export(ctx context.Context, clip Clipboard) (int, error) {
	groups := inv.catalog.Groups()
	if len(groups) == 0 {
		return 0, ErrNoData
	}
	data, err := export.JSON(groups)
	if err != nil {
		return 0, err
	}
	if err := clip.WriteText(ctx, string(data)); err != nil {
		slog.Error("Export failed", "error", err)
		return 0, fmt.Errorf("%w: %v", ErrClipboardUnavailable, err)
	}
	return len(groups), nil
}

// ExportXLSX writes every batch to w as a spreadsheet.
func (inv *Inventory) ExportXLSX(w io.Writer) error {
	groups := inv.catalog.Groups()
	if len(groups) == 0 {
		return ErrNoData
	}
	return export.WriteXLSX(w, groups, inv.Today())
}

// SyncPush uploads the catalog and returns the code to type on the other
// device.
func (inv *Inventory) SyncPush(ctx context.Context) (string, time.Time, error) {
	if inv.syncer == nil {
		return "", time.Time{}, ErrSyncNotConfigured
	}
	groups := inv.catalog.Groups()
	if len(groups) == 0 {
		return "", time.Time{}, ErrNoData
	}

	slog.Info("SyncPush request received", "groups", len(groups))
	code, expiresAt, err := inv.syncer.Push(ctx, groups)
	if err != nil {
		slog.Error("SyncPush failed", "error", err)
		return "", time.Time{}, err
	}
	return code, expiresAt, nil
}

// SyncPull downloads the snapshot behind code and returns it decoded and
// validated. The catalog is not changed; pass the result to Replace once
// the user has confirmed.
func (inv *Inventory) SyncPull(ctx context.Context, code string) ([]models.ProductGroup, error) {
	if inv.syncer == nil {
		return nil, ErrSyncNotConfigured
	}

	slog.Info("SyncPull request received")
	payload, err := inv.syncer.Pull(ctx, strings.TrimSpace(code))
	if err != nil {
		slog.Error("SyncPull failed", "error", err)
		return nil, err
	}
	groups, err := decodeSnapshot(payload.Products)
	if err != nil {
		slog.Error("SyncPull payload rejected", "error", err)
		return nil, err
	}
	return groups, nil
}

func decodeSnapshot(data []byte) ([]models.ProductGroup, error) {
	groups, migrated, err := migrate.Decode(data)
	if err != nil {
		return nil, err
	}
	if migrated {
		slog.Info("Snapshot migrated from legacy format", "groups", len(groups))
	}
	if err := migrate.Validate(groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (inv *Inventory) persist(ctx context.Context) error {
	data, err := json.Marshal(inv.catalog.Groups())
	if err != nil {
		return fmt.Errorf("failed to encode products: %w", err)
	}
	if err := inv.store.Set(ctx, storage.ProductsKey, string(data)); err != nil {
		slog.Error("Persist failed", "error", err)
		return fmt.Errorf("failed to save products: %w", err)
	}
	return nil
}
