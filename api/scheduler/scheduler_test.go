package scheduler

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/linesmerrill/sos-dispatch-api/databases/memory"
	"github.com/linesmerrill/sos-dispatch-api/models"
)

type recordingEngine struct {
	mu       sync.Mutex
	timedOut []string
	resumed  []string
	fail     map[string]bool
}

func (e *recordingEngine) Timeout(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail[id] {
		return errors.New("store unavailable")
	}
	e.timedOut = append(e.timedOut, id)
	return nil
}

func (e *recordingEngine) ResumeReassignment(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail[id] {
		return errors.New("store unavailable")
	}
	e.resumed = append(e.resumed, id)
	return nil
}

func seed(t *testing.T, store *memory.Store, id string, status models.RequestStatus, expiresAt, updatedAt time.Time) {
	t.Helper()
	require.NoError(t, store.Create(context.Background(), &models.DispatchRequest{
		ID:             id,
		ChainID:        id,
		ServiceType:    models.ServicePolice,
		ResponderKind:  models.KindOfficer,
		ResponderPhone: "+15550000001",
		Status:         status,
		CreatedAt:      updatedAt,
		UpdatedAt:      updatedAt,
		ExpiresAt:      expiresAt,
	}))
}

func TestRunOnce(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	seed(t, store, "overdue", models.StatusPending, now.Add(-time.Second), now.Add(-5*time.Minute))
	seed(t, store, "fresh", models.StatusPending, now.Add(time.Minute), now)
	seed(t, store, "stuck", models.StatusDeclined, now, now.Add(-time.Minute))
	seed(t, store, "in-flight", models.StatusExpired, now, now.Add(-time.Second))

	engine := &recordingEngine{}
	s := NewScheduler(engine, store, nil, "@every 15s", 30*time.Second)
	s.now = func() time.Time { return now }

	res, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Expired: 1, Resumed: 1}, res)
	assert.Equal(t, []string{"overdue"}, engine.timedOut)
	assert.Equal(t, []string{"stuck"}, engine.resumed)
}

func TestRunOnceCountsFailures(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	seed(t, store, "a", models.StatusPending, now.Add(-time.Minute), now.Add(-time.Hour))
	seed(t, store, "b", models.StatusPending, now.Add(-time.Second), now.Add(-time.Hour))

	engine := &recordingEngine{fail: map[string]bool{"a": true}}
	s := NewScheduler(engine, store, nil, "@every 15s", 30*time.Second)
	s.now = func() time.Time { return now }

	res, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Expired)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{"b"}, engine.timedOut)
}

func TestRunOnceSkipsWhenLocked(t *testing.T) {
	lock := NewLocalLock()
	ok, err := lock.TryAcquireLock(context.Background(), LockName, "other-instance", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	engine := &recordingEngine{}
	s := NewScheduler(engine, memory.NewStore(), lock, "@every 15s", time.Second)

	res, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
}

type brokenFinder struct{}

func (brokenFinder) FindOverdue(context.Context, time.Time, int) ([]models.DispatchRequest, error) {
	return nil, errors.New("mocked-error")
}

func (brokenFinder) FindUnresolved(context.Context, time.Time, int) ([]models.DispatchRequest, error) {
	return nil, nil
}

func TestRunOnceFinderError(t *testing.T) {
	lock := NewLocalLock()
	s := NewScheduler(&recordingEngine{}, brokenFinder{}, lock, "@every 15s", time.Second)

	_, err := s.RunOnce(context.Background())
	assert.ErrorContains(t, err, "mocked-error")

	// the lock is released even when the pass fails
	ok, err := lock.TryAcquireLock(context.Background(), LockName, "someone-else", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(&recordingEngine{}, memory.NewStore(), nil, "every now and then", time.Second)
	assert.Error(t, s.Start())
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(&recordingEngine{}, memory.NewStore(), nil, "@every 1h", time.Second)
	require.NoError(t, s.Start())
	s.Stop()
}

func TestLocalLock(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	lock := NewLocalLock()
	lock.clock = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := lock.TryAcquireLock(ctx, "job", "a", time.Minute)
	assert.True(t, ok)
	ok, _ = lock.TryAcquireLock(ctx, "job", "b", time.Minute)
	assert.False(t, ok)
	ok, _ = lock.TryAcquireLock(ctx, "job", "a", time.Minute)
	assert.True(t, ok, "owner may re-acquire")

	require.NoError(t, lock.ReleaseLock(ctx, "job", "b"))
	ok, _ = lock.TryAcquireLock(ctx, "job", "b", time.Minute)
	assert.False(t, ok, "release by a non-owner is ignored")

	now = now.Add(2 * time.Minute)
	ok, _ = lock.TryAcquireLock(ctx, "job", "b", time.Minute)
	assert.True(t, ok, "expired lock is free")
}

func TestRedisLockIntegration(t *testing.T) {
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: endpoint})
	defer client.Close()

	lock := NewRedisLock(client)
	ok, err := lock.TryAcquireLock(ctx, LockName, "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lock.TryAcquireLock(ctx, LockName, "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lock.ReleaseLock(ctx, LockName, "b"))
	ok, err = lock.TryAcquireLock(ctx, LockName, "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "only the owner can release")

	require.NoError(t, lock.ReleaseLock(ctx, LockName, "a"))
	ok, err = lock.TryAcquireLock(ctx, LockName, "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
