package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatherbot/internal/model"
	"gatherbot/internal/scheduling"
	"gatherbot/internal/store"
)

type fakeNotifier struct {
	mu    sync.Mutex
	names []string
	fail  map[string]bool
}

func (n *fakeNotifier) Remind(_ context.Context, ev *model.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail[ev.Name] {
		return errors.New("channel gone")
	}
	n.names = append(n.names, ev.Name)
	return nil
}

func TestRunOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.November, 14, 19, 0, 0, 0, time.UTC)

	s, err := store.Open(store.NewMemoryBackend())
	require.NoError(t, err)
	c := scheduling.NewController(s, scheduling.WithClock(func() time.Time { return now.Add(-24 * time.Hour) }), scheduling.WithLocation(time.UTC))
	for _, name := range []string{"dinner", "drinks", "brunch"} {
		clock := map[string]string{"dinner": "19:20", "drinks": "19:25", "brunch": "23:00"}[name]
		_, err := c.CreateScheduled(ctx, scheduling.CreateScheduledRequest{Name: name, CreatorID: "u1", Date: "2025-11-14", Time: clock})
		require.NoError(t, err)
	}

	notifier := &fakeNotifier{fail: map[string]bool{"drinks": true}}
	sched, err := New(ctx, "*/5 * * * *", 30*time.Minute, c, notifier)
	require.NoError(t, err)
	sched.now = func() time.Time { return now }

	sent, err := sched.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"dinner"}, notifier.names)

	sent, err = sched.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent, "claimed events are not reminded twice")
}

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New(context.Background(), "every minute", time.Minute, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schedule")
}

type failingClaimer struct{}

func (failingClaimer) ClaimDueReminders(context.Context, time.Time, time.Duration) ([]*model.Event, error) {
	return nil, errors.New("store unavailable")
}

func TestRunOnceClaimError(t *testing.T) {
	sched, err := New(context.Background(), "", 0, failingClaimer{}, &fakeNotifier{})
	require.NoError(t, err)
	assert.Equal(t, DefaultLead, sched.lead)

	_, err = sched.RunOnce(context.Background())
	assert.Error(t, err)
}
