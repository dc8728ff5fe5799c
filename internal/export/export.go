// Package export renders product snapshots for the user to take elsewhere:
// the pretty-printed JSON accepted by import, and a spreadsheet.
package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/mmynk/pantry/internal/models"
	"github.com/mmynk/pantry/internal/projection"
)

// JSON returns groups as a two-space indented JSON array.
func JSON(groups []models.ProductGroup) ([]byte, error) {
	if groups == nil {
		groups = []models.ProductGroup{}
	}
	data, err := json.MarshalIndent(groups, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode products: %w", err)
	}
	return data, nil
}

var xlsxHeader = []any{"Barcode", "Name", "Expiry date", "Quantity", "Days left", "Status"}

// WriteXLSX writes one row per batch, soonest expiry first within each
// product, to w as an .xlsx workbook.
func WriteXLSX(w io.Writer, groups []models.ProductGroup, today models.Date) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Products"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A1", &xlsxHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := 2
	for _, ag := range projection.Project(groups, projection.View{}, today) {
		for _, b := range ag.Batches {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			values := []any{
				ag.Group.Barcode,
				ag.Group.Name,
				b.ExpiryDate.String(),
				b.Quantity,
				b.DaysLeft,
				b.Status.String(),
			}
			if err := f.SetSheetRow(sheet, cell, &values); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row, err)
			}
			row++
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
