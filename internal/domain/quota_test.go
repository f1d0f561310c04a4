package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaExceeded(t *testing.T) {
	err := QuotaExceeded("guard.check", ActionCustomAgents, 3, 3)

	assert.Equal(t, EQUOTA, ErrorCode(err))
	assert.Equal(t, ActionCustomAgents, err.Action)
	assert.Equal(t, int64(3), err.Used)
	assert.Equal(t, int64(3), err.Limit)
	assert.Equal(t, UpgradeURL, err.UpgradeURL)
	assert.Equal(t, "Agent limit reached", err.Title)
	assert.Contains(t, err.Message, "custom agent limit")
}

func TestQuotaExceeded_UnknownActionFallsBack(t *testing.T) {
	err := QuotaExceeded("guard.check", Action("mystery"), 1, 1)

	assert.Equal(t, "Plan limit reached", err.Title)
	assert.NotEmpty(t, err.Message)
}

func TestQuotaExceeded_EveryActionHasMessage(t *testing.T) {
	for _, action := range Actions {
		err := QuotaExceeded("guard.check", action, 10, 10)
		assert.NotEmpty(t, err.Title, "action %s", action)
		assert.NotEqual(t, genericQuotaMessage.Title, err.Title, "action %s should have its own message", action)
	}
}

func TestQuotaError_ImplementsError(t *testing.T) {
	qerr := QuotaExceeded("guard.check", ActionSwipes, 50, 50)

	// Must satisfy the error interface directly, not only through Unwrap.
	var err error = qerr
	assert.Equal(t, "guard.check: "+qerr.Message, err.Error())
	assert.Equal(t, EQUOTA, qerr.Code)
}

func TestQuotaError_UnwrapsToError(t *testing.T) {
	qerr := QuotaExceeded("guard.check", ActionConversations, 20, 20)

	var e *Error
	require.True(t, errors.As(qerr, &e))
	assert.Equal(t, EQUOTA, e.Code)
}

func TestStartOfDayUTC(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			"midday utc",
			time.Date(2025, 3, 15, 13, 45, 9, 0, time.UTC),
			time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			"just before midnight",
			time.Date(2025, 3, 15, 23, 59, 59, 0, time.UTC),
			time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			"non-utc zone converts first",
			time.Date(2025, 3, 15, 1, 0, 0, 0, time.FixedZone("UTC+5", 5*3600)),
			time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StartOfDayUTC(tt.in))
		})
	}
}
