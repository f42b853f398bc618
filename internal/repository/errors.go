// Package repository implements the gorm-backed stores for judgments, statute articles
// and their vectors.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/mesopotato/enrich-justice/internal/search"
)

// storageErr tags a driver failure as search.ErrStorageUnavailable. Context errors pass
// through unchanged so the caller can tell a timeout from an outage.
func storageErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, search.ErrStorageUnavailable, err)
}
