package bot

import (
	"strconv"
	"strings"
)

// Component operations. A control's custom ID is "op|eventName" and nothing
// else, so every click re-reads the event from the store.
const (
	opPick         = "pick"
	opStats        = "stats"
	opRecommend    = "recommend"
	opDelete       = "delete"
	opJoin         = "join"
	opLeave        = "leave"
	opParticipants = "participants"
	opICS          = "ics"
	opClear        = "clear"
	// opDays is followed by the selector index: "days0", "days1".
	opDays = "days"

	modalPoll  = "modal_poll"
	modalEvent = "modal_event"
)

const idSeparator = "|"

// maxCustomID is the platform limit on component and modal IDs.
const maxCustomID = 100

func encodeID(op, name string) string {
	return op + idSeparator + name
}

// decodeID splits a custom ID. The name may itself contain the separator.
func decodeID(id string) (op, name string, ok bool) {
	op, name, ok = strings.Cut(id, idSeparator)
	if !ok || op == "" {
		return "", "", false
	}
	return op, name, true
}

func daysOp(index int) string {
	return opDays + strconv.Itoa(index)
}

// parseDaysOp returns the selector index of a "daysN" op.
func parseDaysOp(op string) (int, bool) {
	rest, ok := strings.CutPrefix(op, opDays)
	if !ok || rest == "" {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
