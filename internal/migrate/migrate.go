// Package migrate decodes persisted and imported product data, upgrading the
// flat one-record-per-batch format to product groups, and validates
// snapshots before they replace a catalog.
package migrate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mmynk/pantry/internal/models"
)

var (
	ErrParse         = errors.New("data is not valid JSON")
	ErrInvalidFormat = errors.New("data is not a valid product list")
)

// Decode parses a JSON array of products. Empty input decodes to an empty
// list. When the first element has no "expiries" key the array is treated as
// legacy flat records and migrated; migrated reports whether that happened.
// Decoding already-grouped data is a plain pass-through, so Decode can be
// applied repeatedly.
func Decode(data []byte) (groups []models.ProductGroup, migrated bool, err error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []models.ProductGroup{}, false, nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if _, ok := raw.([]any); !ok {
		return nil, false, ErrInvalidFormat
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if len(elems) == 0 {
		return []models.ProductGroup{}, false, nil
	}

	legacy, err := isLegacy(elems[0])
	if err != nil {
		return nil, false, err
	}

	if legacy {
		var records []models.LegacyRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
		return MigrateLegacy(records), true, nil
	}

	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return groups, false, nil
}

// isLegacy reports whether elem is a flat record, i.e. an object without an
// "expiries" key.
func isLegacy(elem json.RawMessage) (bool, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(elem, &fields); err != nil {
		return false, fmt.Errorf("%w: elements must be objects", ErrInvalidFormat)
	}
	_, grouped := fields["expiries"]
	return !grouped, nil
}

// MigrateLegacy groups flat records by barcode, keeping first-seen order.
// The first record of each barcode supplies the group's id and name, and its
// id doubles as LastModified since the flat format used creation timestamps
// as ids. Records sharing barcode and date are summed into one batch.
func MigrateLegacy(records []models.LegacyRecord) []models.ProductGroup {
	groups := make([]models.ProductGroup, 0, len(records))
	index := make(map[string]int, len(records))

	for _, r := range records {
		batch := models.ExpiryBatch{ExpiryDate: r.ExpiryDate, Quantity: int(r.Quantity)}

		i, ok := index[r.Barcode]
		if !ok {
			index[r.Barcode] = len(groups)
			groups = append(groups, models.ProductGroup{
				ID:           int64(r.ID),
				Name:         r.Name,
				Barcode:      r.Barcode,
				LastModified: int64(r.ID),
				Expiries:     []models.ExpiryBatch{batch},
			})
			continue
		}

		g := &groups[i]
		if j := g.Batch(batch.ExpiryDate); j >= 0 {
			g.Expiries[j].Quantity += batch.Quantity
			continue
		}
		g.Expiries = append(g.Expiries, batch)
	}

	for i := range groups {
		groups[i].SortExpiries()
	}
	return groups
}
