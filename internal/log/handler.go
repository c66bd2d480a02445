package log

import (
	"context"
	"log/slog"
)

const (
	KeyInteractionID = "interaction_id"
	KeyUserID        = "user_id"
)

type ctxKey int

const interactionKey ctxKey = iota

type interaction struct {
	id     string
	userID string
}

// WithInteraction returns a context whose log records carry the given
// interaction and user identifiers.
func WithInteraction(ctx context.Context, id, userID string) context.Context {
	return context.WithValue(ctx, interactionKey, interaction{id: id, userID: userID})
}

// InteractionID returns the interaction identifier stored by WithInteraction.
func InteractionID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(interactionKey).(interaction)
	if !ok || v.id == "" {
		return "", false
	}
	return v.id, true
}

// ContextHandler adds values from the [context.Context] to the [slog.Record].
// Not every log call happens inside an interaction (startup, the reminder job),
// so missing values are simply skipped.
type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(handler slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: handler}
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if v, ok := ctx.Value(interactionKey).(interaction); ok {
		if v.id != "" {
			r.AddAttrs(slog.String(KeyInteractionID, v.id))
		}
		if v.userID != "" {
			r.AddAttrs(slog.String(KeyUserID, v.userID))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewContextHandler(h.Handler.WithAttrs(attrs))
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return NewContextHandler(h.Handler.WithGroup(name))
}
