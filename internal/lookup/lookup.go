// Package lookup loads the auxiliary barcode reference table used to
// pre-fill product names.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mmynk/pantry/internal/models"
)

var ErrNetworkFailure = errors.New("could not fetch the product reference list")

// Table maps barcodes to reference titles.
type Table struct {
	titles map[string]string
}

// NewTable builds a table from reference rows. Later rows win on duplicate
// barcodes; rows without barcode or title are skipped.
func NewTable(refs []models.Reference) *Table {
	t := &Table{titles: make(map[string]string, len(refs))}
	for _, r := range refs {
		ibn := strings.TrimSpace(r.IBN)
		title := strings.TrimSpace(r.Title)
		if ibn == "" || title == "" {
			continue
		}
		t.titles[ibn] = title
	}
	return t
}

// Name returns the reference title for barcode. A nil table knows nothing.
func (t *Table) Name(barcode string) (string, bool) {
	if t == nil {
		return "", false
	}
	name, ok := t.titles[strings.TrimSpace(barcode)]
	return name, ok
}

// Len returns the number of known barcodes.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.titles)
}

// Load reads the reference table from source: an http(s) URL serving a JSON
// array, a .xlsx workbook, or a JSON file. An empty source yields an empty
// table.
func Load(ctx context.Context, client *http.Client, source string) (*Table, error) {
	switch {
	case source == "":
		return NewTable(nil), nil
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return fetch(ctx, client, source)
	case strings.EqualFold(filepath.Ext(source), ".xlsx"):
		return readXLSX(source)
	default:
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("failed to read reference file: %w", err)
		}
		return decodeJSON(data)
	}
}

func fetch(ctx context.Context, client *http.Client, url string) (*Table, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %s", ErrNetworkFailure, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}
	return decodeJSON(data)
}

func decodeJSON(data []byte) (*Table, error) {
	var refs []models.Reference
	if err := json.Unmarshal(data, &refs); err != nil {
		return nil, fmt.Errorf("failed to decode reference list: %w", err)
	}
	return NewTable(refs), nil
}

// readXLSX reads the first sheet of a workbook. Column A holds the barcode
// and column B the title; a first row whose column A reads "IBN" is a header.
func readXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	refs := make([]models.Reference, 0, len(rows))
	for i, row := range rows {
		if len(row) < 2 {
			continue
		}
		if i == 0 && strings.EqualFold(strings.TrimSpace(row[0]), "IBN") {
			continue
		}
		refs = append(refs, models.Reference{IBN: row[0], Title: row[1]})
	}
	return NewTable(refs), nil
}
