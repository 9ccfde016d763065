package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parsarad/konkurbot/internal/models"
)

type stubEventRepo struct {
	events   map[string]*models.ExamEvent
	getCalls int
	allCalls int
}

func (s *stubEventRepo) GetByKey(ctx context.Context, key string) (*models.ExamEvent, error) {
	s.getCalls++
	return s.events[key], nil
}

func (s *stubEventRepo) ListAll(ctx context.Context) ([]*models.ExamEvent, error) {
	s.allCalls++
	var out []*models.ExamEvent
	for _, e := range s.events {
		out = append(out, e)
	}
	return out, nil
}

func riaziEvent() *models.ExamEvent {
	return &models.ExamEvent{
		Key:  "konkur-riazi",
		Name: "کنکور ریاضی",
		Dates: []time.Time{
			time.Date(2026, time.May, 6, 0, 0, 0, 0, time.UTC),
			time.Date(2026, time.May, 7, 0, 0, 0, 0, time.UTC),
		},
		AtTime:      "08:00",
		DisplayDate: "۱۶ و ۱۷ اردیبهشت ۱۴۰۵",
	}
}

func TestGetCachesRepositoryReads(t *testing.T) {
	repo := &stubEventRepo{events: map[string]*models.ExamEvent{"konkur-riazi": riaziEvent()}}
	registry := NewRegistry(repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		event, err := registry.Get(ctx, "konkur-riazi")
		require.NoError(t, err)
		require.NotNil(t, event)
		assert.Equal(t, "کنکور ریاضی", event.Name)
	}
	assert.Equal(t, 1, repo.getCalls, "repeated reads served from cache")
}

func TestGetUnknownKeyReturnsNil(t *testing.T) {
	repo := &stubEventRepo{events: map[string]*models.ExamEvent{}}
	registry := NewRegistry(repo)

	event, err := registry.Get(context.Background(), "no-such-exam")
	require.NoError(t, err)
	assert.Nil(t, event)

	// Misses are not cached, so the key is re-checked next time.
	_, err = registry.Get(context.Background(), "no-such-exam")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.getCalls)
}

func TestDatesUnknownKeyResolvesToNoDates(t *testing.T) {
	registry := NewRegistry(&stubEventRepo{events: map[string]*models.ExamEvent{}})

	dates, err := registry.Dates("no-such-exam")
	require.NoError(t, err)
	assert.Empty(t, dates)
}

func TestDaysUntilPicksNextSitting(t *testing.T) {
	event := riaziEvent()

	assert.Equal(t, 1, DaysUntil(event, time.Date(2026, time.May, 5, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, DaysUntil(event, time.Date(2026, time.May, 6, 12, 0, 0, 0, time.UTC)))
	// Between sittings the second one is next.
	assert.Equal(t, 0, DaysUntil(event, time.Date(2026, time.May, 7, 1, 0, 0, 0, time.UTC)))
	assert.Equal(t, -1, DaysUntil(event, time.Date(2026, time.May, 8, 0, 0, 0, 0, time.UTC)))
}

func TestCountdownLine(t *testing.T) {
	event := riaziEvent()

	before := CountdownLine(event, time.Date(2026, time.May, 1, 10, 0, 0, 0, time.UTC))
	assert.Contains(t, before, "5 روز مانده")

	today := CountdownLine(event, time.Date(2026, time.May, 6, 6, 0, 0, 0, time.UTC))
	assert.Contains(t, today, "امروز")
	assert.Contains(t, today, "08:00")

	past := CountdownLine(event, time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC))
	assert.Contains(t, past, "برگزار شد")
}
