package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUrgencyFor(t *testing.T) {
	assert.Equal(t, UrgencyRed, UrgencyFor(-2))
	assert.Equal(t, UrgencyRed, UrgencyFor(0))
	assert.Equal(t, UrgencyYellow, UrgencyFor(1))
	assert.Equal(t, UrgencyYellow, UrgencyFor(3))
	assert.Equal(t, UrgencyGreen, UrgencyFor(4))
}

func TestDaysUntilUsesCalendarDays(t *testing.T) {
	now := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, 1, DaysUntil(now, time.Date(2024, 3, 2, 0, 15, 0, 0, time.UTC)))
	assert.Equal(t, 0, DaysUntil(now, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)))
	assert.Equal(t, -1, DaysUntil(now, time.Date(2024, 2, 29, 8, 0, 0, 0, time.UTC)))
}
