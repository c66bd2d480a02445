package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatherbot/internal/store"
)

func TestClaimDueReminders(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemoryBackend()
	s, err := store.Open(backend)
	require.NoError(t, err)
	c := NewController(s, WithClock(func() time.Time { return now }), WithLocation(time.UTC))

	for name, at := range map[string][2]string{
		"soon":  {"2025-10-18", "12:45"},
		"later": {"2025-10-19", "12:00"},
		"past":  {"2025-10-18", "11:00"},
	} {
		_, err := c.CreateScheduled(ctx, CreateScheduledRequest{Name: name, CreatorID: "u1", Date: at[0], Time: at[1]})
		require.NoError(t, err)
	}
	createPoll(t, c, "trip", "2025-10")

	saves := backend.Saves()
	claimed, err := c.ClaimDueReminders(ctx, now, time.Hour)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, "soon", claimed[0].Name)
	assert.Equal(t, saves+1, backend.Saves())

	claimed, err = c.ClaimDueReminders(ctx, now.Add(time.Minute), time.Hour)
	require.NoError(t, err)
	assert.Empty(t, claimed)
	assert.Equal(t, saves+1, backend.Saves(), "nothing due means no write")

	claimed, err = c.ClaimDueReminders(ctx, now.Add(23*time.Hour), time.Hour)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, "later", claimed[0].Name)
}
