package accounts_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/memstore"
	"github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testAccessSecret  = "access-secret"
	testRefreshSecret = "refresh-secret"
)

// MockNotifier implements accounts.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, msg accounts.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockRefreshTokens implements accounts.RefreshTokens
type MockRefreshTokens struct {
	mock.Mock
}

func (m *MockRefreshTokens) Save(ctx context.Context, userID uuid.UUID, token string) error {
	args := m.Called(ctx, userID, token)
	return args.Error(0)
}

func (m *MockRefreshTokens) FindByToken(ctx context.Context, token string) (*accounts.RefreshToken, error) {
	args := m.Called(ctx, token)
	rec, _ := args.Get(0).(*accounts.RefreshToken)
	return rec, args.Error(1)
}

func (m *MockRefreshTokens) DeleteByToken(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockRefreshTokens) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// recordingQueue runs tasks inline when Drain is called
type recordingQueue struct {
	mu    sync.Mutex
	names []string
	tasks []accounts.Task
	err   error
}

func (q *recordingQueue) Enqueue(name string, task accounts.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.names = append(q.names, name)
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *recordingQueue) Drain(ctx context.Context) []error {
	q.mu.Lock()
	tasks := q.tasks
	q.tasks = nil
	q.mu.Unlock()

	errs := make([]error, 0, len(tasks))
	for _, task := range tasks {
		errs = append(errs, task(ctx))
	}
	return errs
}

func discardLogger() glog.Logger {
	return glog.NewLogger(
		glog.WithName("accounts.test"),
		glog.WithLevel(glog.Error),
		glog.WithAddSource(false),
	).GetLogger("test")
}

type fixture struct {
	users    *memstore.Users
	tokens   *memstore.RefreshTokens
	issuer   *accounts.TokenIssuer
	sessions *accounts.SessionService
	clock    *testClock
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &testClock{now: time.Now()}
	users := memstore.NewUsers()
	tokens := memstore.NewRefreshTokens(memstore.WithClock(clock.Now))
	issuer := accounts.NewTokenIssuer(testAccessSecret, testRefreshSecret, tokens,
		accounts.WithClock(clock.Now),
		accounts.WithTokenLogger(discardLogger()),
	)

	return &fixture{
		users:    users,
		tokens:   tokens,
		issuer:   issuer,
		sessions: accounts.NewSessionService(users, tokens, issuer, accounts.WithSessionLogger(discardLogger())),
		clock:    clock,
	}
}

func seedUser(t *testing.T, users accounts.Users, email, password string, role accounts.UserRole) *accounts.User {
	t.Helper()

	hash, err := accounts.HashPassword(password)
	require.NoError(t, err)

	user, err := users.Create(context.Background(), &accounts.User{
		Name:         "Test User",
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	})
	require.NoError(t, err)
	return user
}

type logEntry struct {
	level string
	msg   string
	args  []any
}

// recordLogger keeps every entry so tests can assert on logged fields
type recordLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
	l.mu.Unlock()
}

func (l *recordLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *recordLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *recordLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *recordLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *recordLogger) find(level, msg string) (map[string]any, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level != level || e.msg != msg {
			continue
		}
		fields := map[string]any{}
		for i := 0; i+1 < len(e.args); i += 2 {
			if key, ok := e.args[i].(string); ok {
				fields[key] = e.args[i+1]
			}
		}
		return fields, true
	}
	return nil, false
}
