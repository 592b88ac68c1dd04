package collection

import (
	"encoding/json"

	apperrors "github.com/linkmeir/linkvault/internal/errors"
	"github.com/linkmeir/linkvault/internal/models"
)

// ExportJSON encodes the active items as a JSON array. The trash is
// deliberately excluded from backups.
func (c *Collection) ExportJSON() ([]byte, error) {
	data, err := json.Marshal(c.items)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to encode items", err)
	}
	return data, nil
}

// ParseImport decodes an import payload into a list of candidate items.
// Malformed JSON or a non-array payload is a parse error; the caller
// performs no mutation in that case.
func ParseImport(data []byte) ([]models.Item, error) {
	var items []models.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrParse, "import payload is not a JSON item array", err)
	}
	return items, nil
}
