package events

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/parsarad/konkurbot/internal/models"
	"github.com/parsarad/konkurbot/internal/repository"
)

const (
	cacheTTL     = 10 * time.Minute
	cacheSweep   = 30 * time.Minute
	allEventsKey = "__all__"
)

// Registry serves the fixed exam table. The table changes rarely but is read
// on every countdown tick, so reads go through an owned TTL cache instead of
// hitting Postgres each time.
type Registry struct {
	repo  repository.EventRepository
	cache *gocache.Cache
}

// NewRegistry creates a Registry over the given event repository.
func NewRegistry(repo repository.EventRepository) *Registry {
	return &Registry{
		repo:  repo,
		cache: gocache.New(cacheTTL, cacheSweep),
	}
}

// Get returns the exam event for key, or (nil, nil) if no such exam exists.
func (r *Registry) Get(ctx context.Context, key string) (*models.ExamEvent, error) {
	if cached, ok := r.cache.Get(key); ok {
		return cached.(*models.ExamEvent), nil
	}

	event, err := r.repo.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if event != nil {
		r.cache.Set(key, event, gocache.DefaultExpiration)
	}
	return event, nil
}

// All returns every exam in the registry.
func (r *Registry) All(ctx context.Context) ([]*models.ExamEvent, error) {
	if cached, ok := r.cache.Get(allEventsKey); ok {
		return cached.([]*models.ExamEvent), nil
	}

	events, err := r.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	r.cache.Set(allEventsKey, events, gocache.DefaultExpiration)
	return events, nil
}

// Dates implements recurrence.EventDates. Unknown keys resolve to no dates,
// so a rule pointing at a removed exam simply never fires.
func (r *Registry) Dates(key string) ([]time.Time, error) {
	event, err := r.Get(context.Background(), key)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, nil
	}
	return event.Dates, nil
}

// DaysUntil returns the number of whole days from now's date to the first
// sitting that has not passed yet, or -1 when all sittings are over.
func DaysUntil(event *models.ExamEvent, now time.Time) int {
	nowDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for _, d := range event.Dates {
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		if diff := int(day.Sub(nowDay) / (24 * time.Hour)); diff >= 0 {
			return diff
		}
	}
	return -1
}

// CountdownLine renders one exam's countdown row for user display.
func CountdownLine(event *models.ExamEvent, now time.Time) string {
	switch days := DaysUntil(event, now); {
	case days < 0:
		return fmt.Sprintf("%s — برگزار شد (%s)", event.Name, event.DisplayDate)
	case days == 0:
		return fmt.Sprintf("%s — امروز! ساعت %s", event.Name, event.AtTime)
	default:
		return fmt.Sprintf("%s — %d روز مانده (%s)", event.Name, days, event.DisplayDate)
	}
}
