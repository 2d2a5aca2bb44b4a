package history

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cutline/internal/logging"
	"cutline/internal/readiness"
	"cutline/internal/services"
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

const defaultMaxEntries = 100

// Options configures a History.
type Options struct {
	MaxEntries int
	Logger     *slog.Logger
	Tracer     trace.Tracer
}

// Entry describes a command on one of the stacks.
type Entry struct {
	ID          string
	Description string
}

// History is the undo/redo stack. It owns the commands it holds and
// disposes them when they are evicted or truncated.
type History struct {
	undo     []Command
	redo     []Command
	limit    int
	inflight Command
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New returns an empty history.
func New(opts Options) *History {
	limit := opts.MaxEntries
	if limit < 1 {
		limit = defaultMaxEntries
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("cutline/history")
	}
	return &History{
		limit:  limit,
		logger: logging.NewComponentLogger(opts.Logger, "history"),
		tracer: tracer,
	}
}

// Execute runs cmd and records it. A failed command is disposed and the
// stacks are left as they were.
func (h *History) Execute(ctx context.Context, cmd Command) error {
	if cmd == nil || cmd.IsDisposed() {
		return services.Wrap(services.ErrValidation, "history", "execute", "command is nil or disposed", nil)
	}
	ctx = services.WithCommandID(ctx, cmd.ID())
	ctx, span := h.tracer.Start(ctx, "history.execute", trace.WithAttributes(
		attribute.String("command.id", cmd.ID()),
		attribute.String("command.description", cmd.Description()),
	))
	defer span.End()

	if err := h.run(ctx, cmd, cmd.Execute); err != nil {
		cmd.Dispose()
		recordError(span, err)
		return err
	}
	h.undo = append(h.undo, cmd)
	h.truncateRedo()
	h.evict()
	span.SetStatus(codes.Ok, "")
	h.logger.Info("command executed",
		logging.String(logging.FieldCommandID, cmd.ID()),
		logging.String("description", cmd.Description()),
	)
	return nil
}

// Undo reverts the most recent command. On failure the command stays on
// the undo stack.
func (h *History) Undo(ctx context.Context) error {
	if len(h.undo) == 0 {
		return ErrNothingToUndo
	}
	cmd := h.undo[len(h.undo)-1]
	ctx = services.WithCommandID(ctx, cmd.ID())
	ctx, span := h.tracer.Start(ctx, "history.undo", trace.WithAttributes(attribute.String("command.id", cmd.ID())))
	defer span.End()

	if err := cmd.Undo(ctx); err != nil {
		recordError(span, err)
		return err
	}
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, cmd)
	span.SetStatus(codes.Ok, "")
	h.logger.Info("command undone", logging.String(logging.FieldCommandID, cmd.ID()), logging.String("description", cmd.Description()))
	return nil
}

// Redo re-executes the most recently undone command.
func (h *History) Redo(ctx context.Context) error {
	if len(h.redo) == 0 {
		return ErrNothingToRedo
	}
	cmd := h.redo[len(h.redo)-1]
	ctx = services.WithCommandID(ctx, cmd.ID())
	ctx, span := h.tracer.Start(ctx, "history.redo", trace.WithAttributes(attribute.String("command.id", cmd.ID())))
	defer span.End()

	if err := h.run(ctx, cmd, cmd.Execute); err != nil {
		recordError(span, err)
		return err
	}
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, cmd)
	span.SetStatus(codes.Ok, "")
	h.logger.Info("command redone", logging.String(logging.FieldCommandID, cmd.ID()), logging.String("description", cmd.Description()))
	return nil
}

// run keeps cmd resolvable by Lookup while it executes.
func (h *History) run(ctx context.Context, cmd Command, fn func(context.Context) error) error {
	h.inflight = cmd
	defer func() { h.inflight = nil }()
	return fn(ctx)
}

// GetCommand finds a command on either stack, or the one executing.
func (h *History) GetCommand(id string) (Command, bool) {
	if h.inflight != nil && h.inflight.ID() == id {
		return h.inflight, true
	}
	for _, stack := range [][]Command{h.undo, h.redo} {
		for _, cmd := range stack {
			if cmd.ID() == id {
				return cmd, true
			}
		}
	}
	return nil, false
}

// Lookup adapts GetCommand for readiness synchronizers.
func (h *History) Lookup(id string) (readiness.Updater, bool) {
	cmd, ok := h.GetCommand(id)
	if !ok || cmd.IsDisposed() {
		return nil, false
	}
	return cmd, true
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// UndoEntries lists the undo stack, most recent last.
func (h *History) UndoEntries() []Entry { return entries(h.undo) }

// RedoEntries lists the redo stack, next to redo last.
func (h *History) RedoEntries() []Entry { return entries(h.redo) }

// Clear disposes every command and empties both stacks.
func (h *History) Clear() {
	for _, cmd := range h.undo {
		cmd.Dispose()
	}
	for _, cmd := range h.redo {
		cmd.Dispose()
	}
	h.undo, h.redo = nil, nil
}

func (h *History) truncateRedo() {
	for _, cmd := range h.redo {
		cmd.Dispose()
	}
	h.redo = nil
}

func (h *History) evict() {
	for len(h.undo) > h.limit {
		oldest := h.undo[0]
		h.undo = h.undo[1:]
		oldest.Dispose()
		h.logger.Debug("command evicted", logging.String(logging.FieldCommandID, oldest.ID()))
	}
}

func entries(stack []Command) []Entry {
	out := make([]Entry, 0, len(stack))
	for _, cmd := range stack {
		out = append(out, Entry{ID: cmd.ID(), Description: cmd.Description()})
	}
	return out
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
