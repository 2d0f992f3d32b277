package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrQueueFull is returned when a deferred handler has no room left.
var ErrQueueFull = errors.New("dispatcher: queue full")

// Event is one command line, e.g. ":COG:RADIUS: rear 4.5".
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// ParseLine splits a command line into an Event. The command is the first
// field and must be wrapped in colons.
func ParseLine(line string) (Event, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Event{}, errors.New("empty command")
	}
	cmd := strings.ToUpper(fields[0])
	if len(cmd) < 3 || !strings.HasPrefix(cmd, ":") || !strings.HasSuffix(cmd, ":") {
		return Event{}, fmt.Errorf("malformed command %q", fields[0])
	}
	return Event{Command: cmd, Args: fields[1:], Timestamp: time.Now()}, nil
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger is satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	queueSize int
	logged    bool
}

// Deferred holds events for the handler until the owner calls Drain, with
// room for size events. Used for commands that must run on the simulation
// goroutine.
func Deferred(size int) Option {
	return func(c *config) {
		c.queueSize = size
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Outcome is the result of a deferred event, reported by Drain.
type Outcome struct {
	Event  Event
	Result any
	Err    error
}

type pending struct {
	event   Event
	handler HandlerFunc
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	limits   map[string]int
	logger   Logger

	queue  []pending
	queued map[string]int

	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter
}

// New creates a Dispatcher. Metrics go to the global OTel meter.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		limits:   make(map[string]int),
		queued:   make(map[string]int),
		logger:   logger,
	}

	m := meter()

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Deferred events waiting for the step loop"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for cmd, n := range d.queued {
				o.ObserveInt64(d.queueSize, int64(n),
					metric.WithAttributes(attribute.String("command", cmd)))
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total events processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.events.dropped",
		metric.WithDescription("Total events dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given command.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h
	if cfg.logged {
		handler = d.withLogging(command, handler)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[command] = handler
	if cfg.queueSize > 0 {
		d.limits[command] = cfg.queueSize
	} else {
		delete(d.limits, command)
	}
}

// Dispatch runs the handler, or queues the event for a deferred handler and
// returns "queued".
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	d.mu.Lock()
	h, ok := d.handlers[e.Command]
	if !ok {
		d.mu.Unlock()
		return nil, fmt.Errorf("unknown command: %s", e.Command)
	}

	limit, deferred := d.limits[e.Command]
	if !deferred {
		d.mu.Unlock()
		result, err := h(e)
		d.processed.Add(context.Background(), 1, metric.WithAttributes(attribute.String("command", e.Command)))
		return result, err
	}
	defer d.mu.Unlock()

	if d.queued[e.Command] >= limit {
		d.dropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("command", e.Command)))
		return nil, fmt.Errorf("%w: %s", ErrQueueFull, e.Command)
	}
	d.queue = append(d.queue, pending{event: e, handler: h})
	d.queued[e.Command]++
	return "queued", nil
}

// Drain runs every deferred event queued so far, in arrival order, on the
// calling goroutine.
func (d *Dispatcher) Drain(ctx context.Context) []Outcome {
	d.mu.Lock()
	batch := d.queue
	d.queue = nil
	for _, p := range batch {
		d.queued[p.event.Command]--
	}
	d.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	outcomes := make([]Outcome, 0, len(batch))
	for _, p := range batch {
		result, err := p.handler(p.event)
		d.processed.Add(ctx, 1, metric.WithAttributes(attribute.String("command", p.event.Command)))
		outcomes = append(outcomes, Outcome{Event: p.event, Result: result, Err: err})
	}
	return outcomes
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[command]
	return ok
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "command", command, "args", len(e.Args))

		result, err := h(e)

		if err != nil {
			d.logger.Error("event failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "command", command, "duration", time.Since(start))
		}

		return result, err
	}
}
