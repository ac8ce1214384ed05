package redis

import (
	"context"
	"fmt"
	"strconv"
)

// OutcomeStats returns how many passes ended with each outcome, all
// replicas included
func (s *Store) OutcomeStats(ctx context.Context) (map[string]int64, error) {
	raw, err := s.client.HGetAll(ctx, KeyOutcomes).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get outcome stats: %w", err)
	}

	stats := make(map[string]int64, len(raw))
	for outcome, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid counter for %s: %w", outcome, err)
		}
		stats[outcome] = n
	}
	return stats, nil
}
