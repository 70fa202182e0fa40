package chunker

import (
	"fmt"
	"strings"

	"github.com/UnknownOlympus/meridian/internal/models"
)

// ValidationError reports a row that lacks required address fields.
type ValidationError struct {
	Row     int                // Row is the zero-based input row index.
	ID      models.SyntheticID // ID is the row's synthetic ID.
	Missing []string           // Missing lists the empty fields.
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("row %d (id %d): missing %s", e.Row, e.ID, strings.Join(e.Missing, ", "))
}
