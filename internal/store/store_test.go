package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatherbot/internal/errdef"
	"gatherbot/internal/model"
)

var now = time.Date(2025, time.October, 18, 9, 0, 0, 0, time.UTC)

func availability(t *testing.T, name, month string) *model.Event {
	t.Helper()
	ev, err := model.NewAvailabilityEvent(name, "creator", "desc of "+name, month, now)
	require.NoError(t, err)
	return ev
}

func scheduled(t *testing.T, name string) *model.Event {
	t.Helper()
	ev, err := model.NewScheduledEvent(name, "creator", "", "2025-11-14", "19:30", time.UTC, now)
	require.NoError(t, err)
	return ev
}

func dates(t *testing.T, values ...string) []model.Date {
	t.Helper()
	out, err := model.ParseDates(values)
	require.NoError(t, err)
	return out
}

func backends(t *testing.T) map[string]func() Backend {
	dir := t.TempDir()
	return map[string]func() Backend{
		"file": func() Backend {
			return NewFileBackend(filepath.Join(dir, "events.yaml"))
		},
		"sqlite": func() Backend {
			b, err := OpenSQLite(filepath.Join(dir, "events.db"))
			require.NoError(t, err)
			t.Cleanup(func() { b.Close() })
			return b
		},
	}
}

func TestRoundTrip(t *testing.T) {
	for name, newBackend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s, err := Open(newBackend())
			require.NoError(t, err)
			assert.Equal(t, 0, s.Len())

			empty := availability(t, "empty poll", "2025-11")
			many := availability(t, "trip", "2025-11")
			p, _ := many.Poll()
			require.NoError(t, p.Replace("Alice", dates(t, "2025-11-11", "2025-11-10", "2025-11-12")))
			require.NoError(t, p.Replace("Bob", dates(t, "2025-11-11", "2025-11-12")))
			require.NoError(t, p.Replace("Carol", dates(t, "2025-11-11")))
			many.ChannelID, many.MessageID = "c1", "m1"

			noRSVP := scheduled(t, "quiet dinner")
			dinner := scheduled(t, "dinner")
			r, _ := dinner.RSVP()
			r.Add("u2")
			r.Add("u1")
			r.Reminded = true

			err = s.Update(func(tx *Tx) error {
				for _, ev := range []*model.Event{empty, many, noRSVP, dinner} {
					if err := tx.Create(ev); err != nil {
						return err
					}
				}
				return nil
			})
			require.NoError(t, err)

			reopened, err := Open(newBackend())
			require.NoError(t, err)
			assert.Equal(t, []string{"empty poll", "trip", "quiet dinner", "dinner"}, reopened.List())

			for _, want := range []*model.Event{empty, many, noRSVP, dinner} {
				got, ok := reopened.Get(want.Name)
				require.True(t, ok, want.Name)
				assert.Equal(t, want.Kind(), got.Kind())
				assert.Equal(t, want.CreatorID, got.CreatorID)
				assert.Equal(t, want.Description, got.Description)
				assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
				assert.Equal(t, want.ChannelID, got.ChannelID)
				assert.Equal(t, want.MessageID, got.MessageID)

				switch want.Kind() {
				case model.KindAvailability:
					wp, _ := want.Poll()
					gp, _ := got.Poll()
					assert.Equal(t, wp.Month, gp.Month)
					assert.Equal(t, len(wp.Participants), len(gp.Participants))
					for k, v := range wp.Participants {
						assert.Equal(t, v, gp.Participants[k], k)
					}
				case model.KindScheduled:
					wr, _ := want.RSVP()
					gr, _ := got.RSVP()
					assert.True(t, wr.At.Equal(gr.At))
					assert.Equal(t, wr.Participants, gr.Participants)
					assert.Equal(t, wr.Reminded, gr.Reminded)
				}
			}
		})
	}
}

func TestCreateDuplicateName(t *testing.T) {
	s, err := Open(NewMemoryBackend())
	require.NoError(t, err)

	require.NoError(t, s.Update(func(tx *Tx) error {
		return tx.Create(availability(t, "trip", "2025-11"))
	}))

	err = s.Update(func(tx *Tx) error {
		return tx.Create(scheduled(t, "trip"))
	})
	assert.True(t, errdef.IsDuplicateName(err))

	ev, ok := s.Get("trip")
	require.True(t, ok)
	assert.Equal(t, model.KindAvailability, ev.Kind())
	assert.Equal(t, 1, s.Len())
}

func TestDelete(t *testing.T) {
	s, err := Open(NewMemoryBackend(availability(t, "a", ""), availability(t, "b", ""), availability(t, "c", "")))
	require.NoError(t, err)

	var removed *model.Event
	require.NoError(t, s.Update(func(tx *Tx) error {
		removed, err = tx.Delete("b")
		return err
	}))
	assert.Equal(t, "b", removed.Name)
	assert.Equal(t, []string{"a", "c"}, s.List())

	err = s.Update(func(tx *Tx) error {
		_, err := tx.Delete("b")
		return err
	})
	assert.True(t, errdef.IsNotFound(err))
}

type failingBackend struct {
	*MemoryBackend
	fail bool
}

func (b *failingBackend) Save(events []*model.Event) error {
	if b.fail {
		return errors.New("disk full")
	}
	return b.MemoryBackend.Save(events)
}

func TestUpdateRollsBackOnSaveFailure(t *testing.T) {
	backend := &failingBackend{MemoryBackend: NewMemoryBackend(availability(t, "trip", "2025-11"))}
	s, err := Open(backend)
	require.NoError(t, err)

	backend.fail = true
	err = s.Update(func(tx *Tx) error {
		ev, err := tx.Get("trip")
		if err != nil {
			return err
		}
		p, _ := ev.Poll()
		if err := p.Replace("Alice", dates(t, "2025-11-03")); err != nil {
			return err
		}
		return tx.Create(scheduled(t, "dinner"))
	})
	require.Error(t, err)
	assert.True(t, errdef.IsStorage(err))
	assert.Contains(t, err.Error(), "disk full")

	ev, _ := s.Get("trip")
	p, _ := ev.Poll()
	assert.Empty(t, p.Participants)
	assert.Equal(t, []string{"trip"}, s.List())
}

func TestUpdateCallbackErrorSkipsSave(t *testing.T) {
	backend := NewMemoryBackend()
	s, err := Open(backend)
	require.NoError(t, err)

	err = s.Update(func(tx *Tx) error {
		if err := tx.Create(availability(t, "trip", "")); err != nil {
			return err
		}
		return errdef.NewForbidden("nope")
	})
	assert.True(t, errdef.IsForbidden(err))
	assert.Equal(t, 0, backend.Saves())
	assert.Equal(t, 0, s.Len())
}

func TestReadersGetCopies(t *testing.T) {
	s, err := Open(NewMemoryBackend(scheduled(t, "dinner")))
	require.NoError(t, err)

	ev, _ := s.Get("dinner")
	r, _ := ev.RSVP()
	r.Add("intruder")

	again, _ := s.Get("dinner")
	r, _ = again.RSVP()
	assert.Empty(t, r.Participants)
}

func TestConcurrentUpdatesKeepEveryWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.yaml")
	s, err := Open(NewFileBackend(path))
	require.NoError(t, err)
	require.NoError(t, s.Update(func(tx *Tx) error {
		if err := tx.Create(availability(t, "trip", "2025-11")); err != nil {
			return err
		}
		return tx.Create(scheduled(t, "dinner"))
	}))

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.Update(func(tx *Tx) error {
				ev, err := tx.Get("trip")
				if err != nil {
					return err
				}
				p, _ := ev.Poll()
				day := model.NewDate(2025, time.November, i%28+1)
				return p.Replace(fmt.Sprintf("user-%02d", i), []model.Date{day})
			})
			assert.NoError(t, err)

			err = s.Update(func(tx *Tx) error {
				ev, err := tx.Get("dinner")
				if err != nil {
					return err
				}
				r, _ := ev.RSVP()
				r.Add(fmt.Sprintf("id-%02d", i))
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	reopened, err := Open(NewFileBackend(path))
	require.NoError(t, err)

	trip, _ := reopened.Get("trip")
	p, _ := trip.Poll()
	assert.Len(t, p.Participants, workers)

	dinner, _ := reopened.Get("dinner")
	r, _ := dinner.RSVP()
	assert.Len(t, r.Participants, workers)
}

func TestOpenRejectsBrokenFile(t *testing.T) {
	cases := map[string]string{
		"syntax":              "events: [\n",
		"unknown field":       "events:\n  - name: x\n    kind: scheduled\n    color: red\n",
		"bad kind":            "events:\n  - name: x\n    kind: party\n    created_at: 2025-10-18T09:00:00Z\n",
		"kind mismatch":       "events:\n  - name: x\n    kind: scheduled\n    created_at: 2025-10-18T09:00:00Z\n    scheduled_at: 2025-11-14T19:30:00Z\n    availability:\n      Alice: [2025-11-01]\n",
		"bad date":            "events:\n  - name: x\n    kind: availability\n    created_at: 2025-10-18T09:00:00Z\n    target_month: 2025-11\n    availability:\n      Alice: [2025-11-40]\n",
		"date outside month":  "events:\n  - name: x\n    kind: availability\n    created_at: 2025-10-18T09:00:00Z\n    target_month: 2025-11\n    availability:\n      Alice: [2025-12-25]\n",
		"dates without month": "events:\n  - name: x\n    kind: availability\n    created_at: 2025-10-18T09:00:00Z\n    availability:\n      Alice: [2025-11-01]\n",
		"duplicate":           "events:\n" +
			"  - {name: x, kind: availability, created_at: 2025-10-18T09:00:00Z, target_month: 2025-11}\n" +
			"  - {name: x, kind: availability, created_at: 2025-10-18T09:00:00Z, target_month: 2025-11}\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "events.yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

			_, err := Open(NewFileBackend(path))
			require.Error(t, err)
			assert.True(t, errdef.IsStorage(err))
		})
	}
}

func TestFileBackendEmptyOrMissing(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(NewFileBackend(filepath.Join(dir, "missing.yaml")))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())

	path := filepath.Join(dir, "blank.yaml")
	require.NoError(t, os.WriteFile(path, []byte("\n\n"), 0o600))
	s, err = Open(NewFileBackend(path))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestFileBackendPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.yaml")
	b := NewFileBackend(path)
	require.NoError(t, b.Save([]*model.Event{scheduled(t, "dinner")}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
