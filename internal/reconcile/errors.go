package reconcile

import (
	"fmt"

	"github.com/UnknownOlympus/meridian/internal/models"
)

// ReconciliationError is reported for a result whose ID matches no row.
type ReconciliationError struct {
	ID     models.SyntheticID
	Source string
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("%s result for unknown id %d", e.Source, e.ID)
}
