package scheduling

import (
	"gatherbot/internal/errdef"
)

// Message turns an operation error into the line shown to the user. Internal
// details of storage failures are not exposed.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errdef.IsDuplicateName(err):
		return "❌ Name taken: " + err.Error() + ". Choose a different name."
	case errdef.IsNotFound(err):
		return "❌ Not found: " + err.Error() + ". Use /event_list to see existing events."
	case errdef.IsWrongKind(err):
		return "❌ Wrong event type: " + err.Error() + "."
	case errdef.IsInvalidFormat(err):
		return "❌ Invalid input: " + err.Error() + "."
	case errdef.IsForbidden(err):
		return "❌ Not allowed: " + err.Error() + "."
	case errdef.IsNoParticipants(err):
		return "❌ No participants: " + err.Error() + ". Pick some dates first."
	case errdef.IsNoTargetMonth(err):
		return "❌ No target month: " + err.Error() + ". Recreate the poll with a month (YYYY-MM)."
	case errdef.IsStorage(err):
		return "❌ Could not save the change, nothing was modified. Please try again."
	default:
		return "❌ Something went wrong. Please try again."
	}
}
