package migrate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mmynk/pantry/internal/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a decoded snapshot before it replaces a catalog: every
// group needs a barcode and at least one batch, every batch a date and a
// quantity of at least 1; barcodes and ids are unique across groups and
// dates are unique within a group. All violations wrap ErrInvalidFormat.
func Validate(groups []models.ProductGroup) error {
	var problems []string

	barcodes := make(map[string]int, len(groups))
	ids := make(map[int64]int, len(groups))
	for i, g := range groups {
		if err := validate.Struct(g); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				for _, fe := range verrs {
					problems = append(problems, fmt.Sprintf("product %d: %s failed %q", i+1, fe.Namespace(), fe.Tag()))
				}
			} else {
				problems = append(problems, fmt.Sprintf("product %d: %v", i+1, err))
			}
		}

		if prev, ok := barcodes[g.Barcode]; ok && g.Barcode != "" {
			problems = append(problems, fmt.Sprintf("product %d: barcode %q already used by product %d", i+1, g.Barcode, prev+1))
		} else {
			barcodes[g.Barcode] = i
		}
		if prev, ok := ids[g.ID]; ok {
			problems = append(problems, fmt.Sprintf("product %d: id %d already used by product %d", i+1, g.ID, prev+1))
		} else {
			ids[g.ID] = i
		}

		dates := make(map[models.Date]bool, len(g.Expiries))
		for _, b := range g.Expiries {
			if b.ExpiryDate.IsZero() {
				problems = append(problems, fmt.Sprintf("product %d: batch without expiry date", i+1))
				continue
			}
			if dates[b.ExpiryDate] {
				problems = append(problems, fmt.Sprintf("product %d: expiry date %s listed twice", i+1, b.ExpiryDate))
			}
			dates[b.ExpiryDate] = true
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidFormat, strings.Join(problems, "; "))
	}
	return nil
}
