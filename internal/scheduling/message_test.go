package scheduling

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"gatherbot/internal/errdef"
)

func TestMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{errdef.NewDuplicateName("an event named %q already exists", "trip"), "Name taken"},
		{errdef.NewNotFound("event %q not found", "trip"), "Not found"},
		{errdef.NewWrongKind("%q is a scheduled event", "trip"), "Wrong event type"},
		{errdef.NewInvalidFormat("expected YYYY-MM-DD"), "YYYY-MM-DD"},
		{errdef.NewForbidden("only the creator can delete"), "Not allowed"},
		{errdef.NewNoParticipants("nobody yet"), "No participants"},
		{errdef.NewNoTargetMonth("no month"), "No target month"},
		{errdef.NewStorage("save events: %w", errors.New("disk full")), "Could not save"},
		{fmt.Errorf("wrapped: %w", errdef.NewNotFound("x")), "Not found"},
		{errors.New("boom"), "Something went wrong"},
	}
	for _, tc := range cases {
		msg := Message(tc.err)
		assert.True(t, strings.HasPrefix(msg, "❌"), msg)
		assert.Contains(t, msg, tc.want)
	}
	assert.Empty(t, Message(nil))
	assert.NotContains(t, Message(errdef.NewStorage("save: %w", errors.New("disk full"))), "disk full")
}
