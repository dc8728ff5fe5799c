package migrate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/pantry/internal/models"
)

const legacyExample = `[
	{"id":1,"name":"A","barcode":"X","expiryDate":"2025-01-01","quantity":3},
	{"id":2,"name":"A","barcode":"X","expiryDate":"2025-02-01","quantity":5}
]`

func TestDecode_MigratesLegacyRecords(t *testing.T) {
	groups, migrated, err := Decode([]byte(legacyExample))
	require.NoError(t, err)
	assert.True(t, migrated)

	require.Len(t, groups, 1)
	g := groups[0]
	assert.Equal(t, int64(1), g.ID)
	assert.Equal(t, "A", g.Name)
	assert.Equal(t, "X", g.Barcode)
	assert.Equal(t, int64(1), g.LastModified)
	require.Len(t, g.Expiries, 2)
	assert.Equal(t, models.NewDate(2025, time.January, 1), g.Expiries[0].ExpiryDate)
	assert.Equal(t, 3, g.Expiries[0].Quantity)
	assert.Equal(t, models.NewDate(2025, time.February, 1), g.Expiries[1].ExpiryDate)
	assert.Equal(t, 5, g.Expiries[1].Quantity)
}

func TestDecode_Idempotent(t *testing.T) {
	once, migrated, err := Decode([]byte(legacyExample))
	require.NoError(t, err)
	require.True(t, migrated)

	encoded, err := json.Marshal(once)
	require.NoError(t, err)

	twice, migrated, err := Decode(encoded)
	require.NoError(t, err)
	assert.False(t, migrated, "grouped data must pass through")
	assert.Equal(t, once, twice)
}

func TestDecode_Shapes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantErr  error
		wantLen  int
		migrated bool
	}{
		{name: "empty input", input: "", wantLen: 0},
		{name: "null", input: "null", wantLen: 0},
		{name: "empty array", input: "[]", wantLen: 0},
		{name: "object is not a list", input: `{"not":"an array"}`, wantErr: ErrInvalidFormat},
		{name: "string is not a list", input: `"hello"`, wantErr: ErrInvalidFormat},
		{name: "invalid json", input: `[{"id":`, wantErr: ErrParse},
		{name: "array of numbers", input: `[1,2,3]`, wantErr: ErrInvalidFormat},
		{
			name:    "grouped",
			input:   `[{"id":5,"name":"Tea","barcode":"T","lastModified":9,"expiries":[{"expiryDate":"2026-01-01","quantity":2}]}]`,
			wantLen: 1,
		},
		{
			name:     "legacy with string quantity and id",
			input:    `[{"id":"1700000000000","name":"Tea","barcode":"T","expiryDate":"2026-01-01","quantity":"4"}]`,
			wantLen:  1,
			migrated: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups, migrated, err := Decode([]byte(tt.input))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, groups)
			assert.Len(t, groups, tt.wantLen)
			assert.Equal(t, tt.migrated, migrated)
		})
	}
}

func TestMigrateLegacy(t *testing.T) {
	d := func(m time.Month, day int) models.Date { return models.NewDate(2025, m, day) }

	records := []models.LegacyRecord{
		{ID: 10, Name: "Milk", Barcode: "M", ExpiryDate: d(3, 1), Quantity: 1},
		{ID: 11, Name: "Eggs", Barcode: "E", ExpiryDate: d(2, 1), Quantity: 12},
		{ID: 12, Name: "Milk (renamed)", Barcode: "M", ExpiryDate: d(1, 15), Quantity: 2},
		{ID: 13, Name: "Milk", Barcode: "M", ExpiryDate: d(3, 1), Quantity: 4},
	}

	groups := MigrateLegacy(records)
	require.Len(t, groups, 2)

	milk := groups[0]
	assert.Equal(t, "M", milk.Barcode, "first-seen order is kept")
	assert.Equal(t, int64(10), milk.ID)
	assert.Equal(t, "Milk", milk.Name, "first record names the group")
	require.Len(t, milk.Expiries, 2)
	assert.Equal(t, d(1, 15), milk.Expiries[0].ExpiryDate)
	assert.Equal(t, 2, milk.Expiries[0].Quantity)
	assert.Equal(t, 5, milk.Expiries[1].Quantity, "same barcode and date are summed")

	assert.Equal(t, "E", groups[1].Barcode)
	assert.Equal(t, 12, groups[1].TotalQuantity())
}

func TestValidate(t *testing.T) {
	batch := func(day, qty int) models.ExpiryBatch {
		return models.ExpiryBatch{ExpiryDate: models.NewDate(2025, time.June, day), Quantity: qty}
	}

	tests := []struct {
		name    string
		groups  []models.ProductGroup
		wantErr bool
	}{
		{
			name: "valid",
			groups: []models.ProductGroup{
				{ID: 1, Name: "A", Barcode: "A", Expiries: []models.ExpiryBatch{batch(1, 1), batch(2, 3)}},
				{ID: 2, Name: "A", Barcode: "B", Expiries: []models.ExpiryBatch{batch(1, 1)}},
			},
		},
		{name: "empty catalog", groups: []models.ProductGroup{}},
		{
			name:    "missing barcode",
			groups:  []models.ProductGroup{{ID: 1, Expiries: []models.ExpiryBatch{batch(1, 1)}}},
			wantErr: true,
		},
		{
			name:    "no batches",
			groups:  []models.ProductGroup{{ID: 1, Barcode: "A"}},
			wantErr: true,
		},
		{
			name:    "zero quantity",
			groups:  []models.ProductGroup{{ID: 1, Barcode: "A", Expiries: []models.ExpiryBatch{batch(1, 0)}}},
			wantErr: true,
		},
		{
			name: "duplicate barcode",
			groups: []models.ProductGroup{
				{ID: 1, Barcode: "A", Expiries: []models.ExpiryBatch{batch(1, 1)}},
				{ID: 2, Barcode: "A", Expiries: []models.ExpiryBatch{batch(2, 1)}},
			},
			wantErr: true,
		},
		{
			name: "duplicate id",
			groups: []models.ProductGroup{
				{ID: 1, Barcode: "A", Expiries: []models.ExpiryBatch{batch(1, 1)}},
				{ID: 1, Barcode: "B", Expiries: []models.ExpiryBatch{batch(2, 1)}},
			},
			wantErr: true,
		},
		{
			name:    "duplicate date",
			groups:  []models.ProductGroup{{ID: 1, Barcode: "A", Expiries: []models.ExpiryBatch{batch(1, 1), batch(1, 2)}}},
			wantErr: true,
		},
		{
			name:    "missing date",
			groups:  []models.ProductGroup{{ID: 1, Barcode: "A", Expiries: []models.ExpiryBatch{{Quantity: 1}}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.groups)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFormat)
				return
			}
			assert.NoError(t, err)
		})
	}
}
