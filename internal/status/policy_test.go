package status_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ms-booking/internal/models"
	"ms-booking/internal/status"
)

func TestEffectiveStatusPrecedence(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(48 * time.Hour)
	past := now.Add(-48 * time.Hour)

	tests := []struct {
		name      string
		flag      string
		startTime time.Time
		remaining int
		want      status.Status
	}{
		{"open with inventory", models.EventStatusOpen, future, 25, status.Open},
		{"sold out when inventory exhausted", models.EventStatusOpen, future, 0, status.SoldOut},
		{"inactive once start time passed", models.EventStatusOpen, past, 25, status.Inactive},
		{"cancelled beats inventory and time", models.EventStatusCancelled, future, 25, status.Cancelled},
		{"cancelled beats sold out", models.EventStatusCancelled, future, 0, status.Cancelled},
		{"completed beats inactive", models.EventStatusCompleted, past, 0, status.Completed},
		{"inactive beats sold out", models.EventStatusOpen, past, 0, status.Inactive},
		{"stale sold-out flag is ignored when inventory is back", models.EventStatusSoldOut, future, 3, status.Open},
		{"stale sold-out flag with no inventory", models.EventStatusSoldOut, future, 0, status.SoldOut},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := status.Effective(tt.flag, tt.startTime, tt.remaining, now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBookable(t *testing.T) {
	assert.True(t, status.Bookable(status.Open))
	assert.False(t, status.Bookable(status.SoldOut))
	assert.False(t, status.Bookable(status.Cancelled))
	assert.False(t, status.Bookable(status.Completed))
	assert.False(t, status.Bookable(status.Inactive))
}
