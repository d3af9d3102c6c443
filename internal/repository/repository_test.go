package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"

	"github.com/amit9129/automated-parking-system/internal/domain"
)

func TestPurgeFilter_Matches(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cutoff := now.AddDate(0, 0, -5)

	oldExited := &domain.ParkingSession{EntryTime: now.AddDate(0, 0, -6), ExitTime: null.TimeFrom(now.Add(-time.Hour))}
	oldParked := &domain.ParkingSession{EntryTime: now.AddDate(0, 0, -6)}
	freshExited := &domain.ParkingSession{EntryTime: now.Add(-2 * time.Hour), ExitTime: null.TimeFrom(now.Add(-time.Hour))}

	t.Run("entered before with exit required", func(t *testing.T) {
		f := PurgeFilter{RequireExited: true, EnteredBefore: cutoff}
		require.True(t, f.Matches(oldExited))
		require.False(t, f.Matches(oldParked))
		require.False(t, f.Matches(freshExited))
	})

	t.Run("exited before", func(t *testing.T) {
		f := PurgeFilter{RequireExited: true, ExitedBefore: cutoff}
		require.False(t, f.Matches(oldExited))
		require.False(t, f.Matches(oldParked))
	})

	t.Run("empty filter matches everything", func(t *testing.T) {
		f := PurgeFilter{}
		require.True(t, f.Matches(oldParked))
		require.True(t, f.Matches(freshExited))
	})
}
