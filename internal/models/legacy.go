package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// LegacyRecord is one entry of the flat format written before products were
// grouped by barcode: every batch was its own record.
type LegacyRecord struct {
	ID         LooseInt `json:"id"`
	Name       string   `json:"name"`
	Barcode    string   `json:"barcode"`
	ExpiryDate Date     `json:"expiryDate"`
	Quantity   LooseInt `json:"quantity"`
}

// LooseInt decodes from a JSON number or a string holding a number.
// The flat format stored form input values verbatim, so quantities were
// often strings.
type LooseInt int64

// UnmarshalJSON implements json.Unmarshaler.
func (n *LooseInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}

	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
	}

	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*n = LooseInt(i)
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", data)
	}
	*n = LooseInt(f)
	return nil
}
