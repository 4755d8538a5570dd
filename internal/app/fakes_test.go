package app

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"quest_notifier/internal/domain/notification"
	"quest_notifier/internal/domain/push"
	"quest_notifier/internal/domain/quest"
	"quest_notifier/internal/domain/timetable"
	"quest_notifier/internal/domain/user"
	idb "quest_notifier/internal/infra/database"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type fakeUsers struct {
	users   map[string]*user.User
	errs    map[string]error
	listErr error
}

func newFakeUsers(users ...*user.User) *fakeUsers {
	f := &fakeUsers{users: map[string]*user.User{}, errs: map[string]error{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*user.User, error) {
	if err, ok := f.errs[id]; ok {
		return nil, err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, idb.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) sorted(keep func(*user.User) bool) []*user.User {
	var out []*user.User
	for _, u := range f.users {
		if keep(u) {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeUsers) ListWithToken(context.Context) ([]*user.User, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.sorted(func(u *user.User) bool { return u.FCMToken != "" }), nil
}

func (f *fakeUsers) ListWithCalendar(context.Context) ([]*user.User, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.sorted(func(u *user.User) bool { return u.CalendarURL != "" }), nil
}

type fakeQuests struct {
	mu        sync.Mutex
	quests    map[string]quest.Quest
	listErr   error
	getErr    error
	notifyErr error
	attempts  int
	clears    int
}

func newFakeQuests(quests ...quest.Quest) *fakeQuests {
	f := &fakeQuests{quests: map[string]quest.Quest{}}
	for _, q := range quests {
		f.quests[q.ID] = q
	}
	return f
}

func (f *fakeQuests) GetByID(_ context.Context, id string) (*quest.Quest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	q, ok := f.quests[id]
	if !ok {
		return nil, idb.ErrQuestNotFound
	}
	return &q, nil
}

func (f *fakeQuests) ListDeadlineBetween(_ context.Context, from, to time.Time) ([]*quest.Quest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*quest.Quest
	for _, q := range f.quests {
		if q.Deadline.Before(from) || q.Deadline.After(to) {
			continue
		}
		cp := q
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeQuests) MarkDeadlineDispatchAttempted(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := f.quests[id]
	q.DeadlineDispatchAttemptedAt = sql.NullTime{Time: time.Now(), Valid: true}
	f.quests[id] = q
	f.attempts++
	return nil
}

func (f *fakeQuests) ClearDeadlineDispatchAttempt(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := f.quests[id]
	q.DeadlineDispatchAttemptedAt = sql.NullTime{}
	f.quests[id] = q
	f.clears++
	return nil
}

func (f *fakeQuests) MarkDeadlineNotified(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notifyErr != nil {
		return f.notifyErr
	}
	q := f.quests[id]
	q.DeadlineNotificationSent = true
	q.DeadlineNotificationSentAt = sql.NullTime{Time: time.Now(), Valid: true}
	f.quests[id] = q
	return nil
}

func (f *fakeQuests) get(id string) quest.Quest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quests[id]
}

type fakeNotifications struct {
	records map[string]*notification.Notification // key userID/notificationID
	err     error
}

func (f *fakeNotifications) GetByID(_ context.Context, userID, notificationID string) (*notification.Notification, error) {
	if f.err != nil {
		return nil, f.err
	}
	n, ok := f.records[userID+"/"+notificationID]
	if !ok {
		return nil, idb.ErrNotificationNotFound
	}
	return n, nil
}

type fakeTimetables struct {
	mu        sync.Mutex
	saved     map[string]*timetable.DaySchedule // key userID/date
	upsertErr error
}

func newFakeTimetables() *fakeTimetables {
	return &fakeTimetables{saved: map[string]*timetable.DaySchedule{}}
}

func (f *fakeTimetables) Upsert(_ context.Context, s *timetable.DaySchedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	cp := *s
	f.saved[s.UserID+"/"+s.Date] = &cp
	return nil
}

func (f *fakeTimetables) Get(_ context.Context, userID, date string) (*timetable.DaySchedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.saved[userID+"/"+date]
	if !ok {
		return nil, idb.ErrTimetableNotFound
	}
	return s, nil
}

type fakeFeed struct {
	events map[string][]timetable.Event
	errs   map[string]error
}

func (f *fakeFeed) Events(_ context.Context, url string) ([]timetable.Event, error) {
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	return f.events[url], nil
}

type sentBatch struct {
	tokens  []string
	payload push.Payload
}

type fakeGateway struct {
	mu         sync.Mutex
	calls      []sentBatch
	failTokens map[string]bool
	err        error
	errOnCall  int // 1-based; 0 fails every call when err is set
}

func (g *fakeGateway) SendToDevices(_ context.Context, tokens []string, payload push.Payload) (*push.BatchResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, sentBatch{tokens: append([]string(nil), tokens...), payload: payload})
	if g.err != nil && (g.errOnCall == 0 || g.errOnCall == len(g.calls)) {
		return nil, g.err
	}

	resp := &push.BatchResponse{Results: make([]push.SendResult, len(tokens))}
	for i, tok := range tokens {
		if g.failTokens[tok] {
			resp.FailureCount++
			resp.Results[i] = push.SendResult{Error: errInvalidToken}
			continue
		}
		resp.SuccessCount++
		resp.Results[i] = push.SendResult{Success: true}
	}
	return resp, nil
}

func (g *fakeGateway) sent() []sentBatch {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]sentBatch(nil), g.calls...)
}

type gatewayError string

func (e gatewayError) Error() string { return string(e) }

const errInvalidToken = gatewayError("registration-token-not-registered")

func newTestLogger() (*logrus.Entry, *test.Hook) {
	log, hook := test.NewNullLogger()
	return logrus.NewEntry(log), hook
}

var tokyo = mustLoadLocation("Asia/Tokyo")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("JST", 9*60*60)
	}
	return loc
}

// entriesWithMessage returns the hook entries logged with msg.
func entriesWithMessage(hook *test.Hook, msg string) []*logrus.Entry {
	var out []*logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Message == msg {
			out = append(out, e)
		}
	}
	return out
}
