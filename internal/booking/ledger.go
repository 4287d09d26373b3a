package booking

import (
	"context"
	"strconv"
)

// capacityKey namespaces the advisory remaining-capacity cache.
func capacityKey(day string) string { return "capacity:" + day }

// RemainingCapacity is the advisory read of the capacity ledger: how
// many tickets remain for a night, for display only.  The value may be
// slightly stale (it is served from a short-TTL Redis cache when one is
// configured) and must never be used to gate a commit; only the
// authoritative computation inside Book's transaction decides.
func (s *Service) RemainingCapacity(ctx context.Context, day string) (int, error) {
	if s.cache != nil {
		if v, err := s.cache.Get(ctx, capacityKey(day)).Result(); err == nil {
			if n, convErr := strconv.Atoi(v); convErr == nil {
				return n, nil
			}
		}
	}
	n, err := s.store.RemainingByDay(ctx, day)
	if err != nil {
		if IsRejection(err) {
			return 0, err
		}
		return 0, &StorageError{Op: "remaining capacity", Err: err}
	}
	if s.cache != nil {
		// Cache failures only cost freshness; ignore them.
		_ = s.cache.SetEx(ctx, capacityKey(day), strconv.Itoa(n), s.cacheTTL).Err()
	}
	return n, nil
}

// invalidateCapacity drops the cached advisory value after a commit so
// the next display read converges quickly.  Best effort.
func (s *Service) invalidateCapacity(ctx context.Context, day string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, capacityKey(day)).Err(); err != nil {
		s.log.Warn().Err(err).Str("day", day).Msg("capacity cache invalidation failed")
	}
}
