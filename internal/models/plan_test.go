package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeeklyPlanOmitsCreatedAtUntilStored(t *testing.T) {
	out, err := json.Marshal(WeeklyPlan{Days: []DailyPlan{}})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "createdAt")

	created := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	out, err = json.Marshal(WeeklyPlan{ID: "p1", CreatedAt: &created, Days: []DailyPlan{}})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"createdAt":"2026-03-02T10:00:00Z"`)
}
