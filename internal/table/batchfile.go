package table

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/UnknownOlympus/meridian/internal/bulk"
	"github.com/UnknownOlympus/meridian/internal/models"
)

// BatchFileName returns census_batch_[tag_]<minID>_<maxID>.csv.
func BatchFileName(tag string, batch models.Batch) string {
	lo, hi := batch.IDRange()
	if tag != "" {
		return fmt.Sprintf("census_batch_%s_%d_%d.csv", tag, lo, hi)
	}
	return fmt.Sprintf("census_batch_%d_%d.csv", lo, hi)
}

// WriteBatchFiles writes every batch to dir in the bulk submission format and
// returns the file paths in batch order.
func WriteBatchFiles(dir, tag string, batches []models.Batch) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "failed to create %s", dir)
	}

	paths := make([]string, 0, len(batches))
	for _, b := range batches {
		path := filepath.Join(dir, BatchFileName(tag, b))
		if err := writeBatchFile(path, b); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeBatchFile(path string, batch models.Batch) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "failed to create %s", path)
	}
	if err = bulk.EncodeBatch(f, batch); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "failed to write %s", path)
	}
	if err = f.Close(); err != nil {
		return eris.Wrapf(err, "failed to close %s", path)
	}
	return nil
}
