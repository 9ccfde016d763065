package service

import (
	"context"
	"sync"
	"time"

	"github.com/parsarad/konkurbot/internal/models"
	"github.com/parsarad/konkurbot/internal/repository"
)

type sentMessage struct {
	ChatID int64
	Text   string
}

// fakeSender records sends and can fail per chat id. Errors pop in order,
// so a rate-limit error followed by nil models "slow down, then accept".
type fakeSender struct {
	mu       sync.Mutex
	sent     []sentMessage
	failures map[int64][]error
}

func newFakeSender() *fakeSender {
	return &fakeSender{failures: make(map[int64][]error)}
}

func (f *fakeSender) failWith(chatID int64, errs ...error) {
	f.failures[chatID] = append(f.failures[chatID], errs...)
}

func (f *fakeSender) Send(_ context.Context, chatID int64, text string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if queue := f.failures[chatID]; len(queue) > 0 {
		err := queue[0]
		f.failures[chatID] = queue[1:]
		if err != nil {
			return err
		}
	}
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text})
	return nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[int64]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	m := make(map[int64]*models.User)
	for _, u := range users {
		m[u.ID] = u
	}
	return &fakeUserRepo{users: m}
}

func (f *fakeUserRepo) Upsert(_ context.Context, telegramID int64, username, firstName string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.TelegramID == telegramID {
			u.TelegramUsername = username
			u.FirstName = firstName
			u.IsActive = true
			return u, nil
		}
	}
	u := &models.User{ID: int64(len(f.users) + 1), TelegramID: telegramID, TelegramUsername: username, FirstName: firstName, IsActive: true}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id], nil
}

func (f *fakeUserRepo) GetByTelegramID(_ context.Context, telegramID int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.TelegramID == telegramID {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) ListActive(_ context.Context) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.User
	for i := int64(1); i <= int64(len(f.users)); i++ {
		if u, ok := f.users[i]; ok && u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) SetActive(_ context.Context, id int64, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.IsActive = active
	}
	return nil
}

func (f *fakeUserRepo) SetAdmin(_ context.Context, telegramID int64, admin bool) error {
	return nil
}

type fakeOptOutRepo struct {
	mu   sync.Mutex
	outs map[int64][]int64 // reminderID -> user ids
}

func newFakeOptOutRepo() *fakeOptOutRepo {
	return &fakeOptOutRepo{outs: make(map[int64][]int64)}
}

func (f *fakeOptOutRepo) SetOptIn(_ context.Context, userID, reminderID int64, optedIn bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []int64
	for _, id := range f.outs[reminderID] {
		if id != userID {
			kept = append(kept, id)
		}
	}
	if !optedIn {
		kept = append(kept, userID)
	}
	f.outs[reminderID] = kept
	return nil
}

func (f *fakeOptOutRepo) ListOptedOutUsers(_ context.Context, reminderID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outs[reminderID], nil
}

func (f *fakeOptOutRepo) ListForUser(_ context.Context, userID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int64
	for rid, users := range f.outs {
		for _, id := range users {
			if id == userID {
				out = append(out, rid)
			}
		}
	}
	return out, nil
}

type firedRecord struct {
	ID        int64
	At        time.Time
	CountSend bool
}

type fakeReminderRepo struct {
	mu    sync.Mutex
	items map[int64]*models.Reminder
	fired []firedRecord
}

func newFakeReminderRepo(items ...*models.Reminder) *fakeReminderRepo {
	m := make(map[int64]*models.Reminder)
	for _, r := range items {
		m[r.ID] = r
	}
	return &fakeReminderRepo{items: m}
}

func (f *fakeReminderRepo) Create(_ context.Context, r *models.Reminder) (*models.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = int64(len(f.items) + 1)
	r.IsActive = true
	f.items[r.ID] = r
	return r, nil
}

func (f *fakeReminderRepo) GetByID(_ context.Context, id int64) (*models.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id], nil
}

func (f *fakeReminderRepo) ListByOwner(_ context.Context, ownerID int64) ([]*models.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Reminder
	for _, r := range f.items {
		if r.OwnerID != nil && *r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReminderRepo) ListByKind(_ context.Context, kind models.ReminderKind) ([]*models.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Reminder
	for _, r := range f.items {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReminderRepo) GetDueCandidates(_ context.Context, kind models.ReminderKind, _ time.Time) ([]*models.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Reminder
	for i := int64(1); i <= int64(len(f.items)); i++ {
		if r, ok := f.items[i]; ok && r.Kind == kind && r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReminderRepo) Update(_ context.Context, id int64, upd *models.ReminderUpdate) (*models.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.items[id]
	if r == nil {
		return nil, nil
	}
	if upd.Title != nil {
		r.Title = *upd.Title
	}
	if upd.Body != nil {
		r.Body = *upd.Body
	}
	if upd.Schedule != nil {
		r.Schedule = upd.Schedule
	}
	if upd.RepeatCount != nil {
		r.RepeatCount = *upd.RepeatCount
	}
	if upd.RepeatIntervalSec != nil {
		r.RepeatIntervalSec = *upd.RepeatIntervalSec
	}
	if upd.IsActive != nil {
		r.IsActive = *upd.IsActive
	}
	return r, nil
}

func (f *fakeReminderRepo) SetActive(_ context.Context, id int64, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.items[id]; ok {
		r.IsActive = active
	}
	return nil
}

func (f *fakeReminderRepo) Delete(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.items[id]
	delete(f.items, id)
	return ok, nil
}

func (f *fakeReminderRepo) MarkFired(_ context.Context, id int64, at time.Time, countSend bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fired = append(f.fired, firedRecord{ID: id, At: at, CountSend: countSend})
	if r, ok := f.items[id]; ok {
		t := at
		r.LastSentAt = &t
		if countSend {
			r.TotalSent++
		}
	}
	return nil
}

type fakeLogRepo struct {
	mu      sync.Mutex
	entries []*models.DeliveryLog
}

func (f *fakeLogRepo) Append(_ context.Context, entry *models.DeliveryLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeLogRepo) ListRecent(_ context.Context, limit int) ([]*models.DeliveryLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > len(f.entries) {
		limit = len(f.entries)
	}
	out := make([]*models.DeliveryLog, 0, limit)
	for i := len(f.entries) - 1; i >= len(f.entries)-limit; i-- {
		out = append(out, f.entries[i])
	}
	return out, nil
}

func (f *fakeLogRepo) Stats(_ context.Context) ([]repository.DeliveryStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[models.ReminderKind]map[models.DeliveryStatus]int64)
	for _, e := range f.entries {
		if counts[e.ReminderKind] == nil {
			counts[e.ReminderKind] = make(map[models.DeliveryStatus]int64)
		}
		counts[e.ReminderKind][e.Status]++
	}
	var out []repository.DeliveryStat
	for kind, byStatus := range counts {
		for status, n := range byStatus {
			out = append(out, repository.DeliveryStat{Kind: kind, Status: status, Count: n})
		}
	}
	return out, nil
}
