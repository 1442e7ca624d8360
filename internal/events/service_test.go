package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reporthere/reporthere/internal/models"
	memorystore "github.com/reporthere/reporthere/internal/store/memory"
)

func TestLogAppendsEvent(t *testing.T) {
	ctx := context.Background()
	st := memorystore.NewEventStore()
	svc := New(st)

	userID := models.NewID()
	event, err := svc.Log(ctx, models.EventComplaintCreated, map[string]any{"title": "Broken widget"}, &userID)
	require.NoError(t, err)

	assert.NotEqual(t, [16]byte{}, [16]byte(event.EventID))
	assert.Equal(t, models.EventComplaintCreated, event.Type)
	require.NotNil(t, event.UserID)
	assert.Equal(t, userID, *event.UserID)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.Equal(t, "Broken widget", payload["title"])
}

func TestLogNeverDeduplicates(t *testing.T) {
	ctx := context.Background()
	st := memorystore.NewEventStore()
	svc := New(st)

	for range 3 {
		_, err := svc.Log(ctx, models.EventComplaintShared, map[string]any{"channel": "twitter"}, nil)
		require.NoError(t, err)
	}

	logged, err := svc.Recent(ctx, 10, nil)
	require.NoError(t, err)
	assert.Len(t, logged, 3)
}

func TestRecentFiltersAndLimits(t *testing.T) {
	ctx := context.Background()
	st := memorystore.NewEventStore()
	svc := New(st)

	for range 5 {
		_, err := svc.Log(ctx, models.EventComplaintCreated, nil, nil)
		require.NoError(t, err)
	}
	_, err := svc.Log(ctx, models.EventCompanyReplied, nil, nil)
	require.NoError(t, err)

	created := models.EventComplaintCreated
	filtered, err := svc.Recent(ctx, 3, &created)
	require.NoError(t, err)
	require.Len(t, filtered, 3)
	for _, e := range filtered {
		assert.Equal(t, created, e.Type)
	}
}

func TestStatsGroupsByType(t *testing.T) {
	ctx := context.Background()
	st := memorystore.NewEventStore()
	svc := New(st)

	for range 2 {
		_, err := svc.Log(ctx, models.EventComplaintCreated, nil, nil)
		require.NoError(t, err)
	}
	_, err := svc.Log(ctx, models.EventComplaintResolved, nil, nil)
	require.NoError(t, err)

	// An event outside the window must not count.
	old := &models.PlatformEvent{
		EventID:   models.NewID(),
		Type:      models.EventComplaintCreated,
		CreatedAt: time.Now().AddDate(0, 0, -30),
	}
	require.NoError(t, st.Append(ctx, old))

	stats, err := svc.Stats(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, stats[models.EventComplaintCreated])
	assert.Equal(t, 1, stats[models.EventComplaintResolved])
	assert.Zero(t, stats[models.EventCompanyReplied])
}
