package syncer

import (
	"context"
	"fmt"
	"time"
)

// RetentionDays is how long a soft-deleted installment stays restorable
// before the sweep purges it.
const RetentionDays = 30

// SweepExpired purges installments whose soft delete is older than the
// retention window, locally and via a queued remote purge. Returns the
// number of installments purged.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -RetentionDays)
	expired, err := s.installments.ListSoftDeletedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, inst := range expired {
		if err := s.HardDelete(ctx, inst.ID); err != nil {
			return purged, fmt.Errorf("sweep installment %q: %w", inst.ID, err)
		}
		purged++
	}
	return purged, nil
}

// ExpiresAt reports when a soft-deleted installment falls out of the
// retention window.
func ExpiresAt(deletedAt time.Time) time.Time {
	return deletedAt.AddDate(0, 0, RetentionDays)
}
