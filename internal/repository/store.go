package repository

import (
	"context"
	"sort"

	"github.com/qaydhq/qayd/internal/entity"
)

// ReceiptRepository is the document-store surface the rest of the system
// depends on. Records are keyed by receipt_id and scoped by user_id; the
// store itself guarantees no ordering, so ListByUser sorts on the way out.
type ReceiptRepository interface {
	// Add persists a new record under its receipt_id.
	Add(ctx context.Context, rec *entity.ReceiptRecord) error
	// Get returns the record with the given id, or common.ErrNotFound.
	Get(ctx context.Context, id string) (*entity.ReceiptRecord, error)
	// Set fully replaces the record with the given id.
	Set(ctx context.Context, id string, rec *entity.ReceiptRecord) error
	// Merge applies a partial update; unnamed fields keep their values.
	Merge(ctx context.Context, id string, fields map[string]any) error
	// Delete removes the record with the given id.
	Delete(ctx context.Context, id string) error
	// ListByUser returns the user's records, newest first; legacy records
	// without a creation time sort last.
	ListByUser(ctx context.Context, userID string) ([]*entity.ReceiptRecord, error)
	// Health pings the backing store.
	Health(ctx context.Context) error
	Close() error
}

// sortByCreatedAt orders records newest first. Records without a creation
// time (written before the field existed) keep their relative order at the
// end of the list.
func sortByCreatedAt(recs []*entity.ReceiptRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i].CreatedAt, recs[j].CreatedAt
		if a.IsZero() {
			return false
		}
		if b.IsZero() {
			return true
		}
		return a.After(b)
	})
}
