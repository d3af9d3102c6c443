package service

import (
	"time"

	"github.com/amit9129/automated-parking-system/internal/repository"
)

// stalePurgeFilter is the single place that decides which sessions are old
// enough to delete: exited sessions whose entry is older than thresholdDays.
func stalePurgeFilter(now time.Time, thresholdDays int) repository.PurgeFilter {
	return repository.PurgeFilter{
		RequireExited: true,
		EnteredBefore: retentionCutoff(now, thresholdDays),
	}
}

func retentionCutoff(now time.Time, thresholdDays int) time.Time {
	return now.UTC().Add(-time.Duration(thresholdDays) * 24 * time.Hour)
}
