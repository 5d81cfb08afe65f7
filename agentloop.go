// Package agentloop is a small agent orchestration core: it runs
// conversation turns against a language model, dispatches tool calls through
// a validated registry and persists per-thread history in a pluggable store.
package agentloop

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/flow"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/session"
	"github.com/hupe1980/agentloop/tool"
)

// DefaultThreadID is used when the caller passes an empty thread identifier.
const DefaultThreadID = "default"

// InvalidInputError signals bad caller arguments. It is surfaced immediately
// and never retried.
type InvalidInputError struct {
	Message string
}

// Error implements the error interface.
func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Message)
}

// Options configures an Orchestrator.
type Options struct {
	// Config is the turn configuration. Defaults to core.DefaultTurnConfig.
	Config core.TurnConfig
	// Store is the conversation store. Defaults to an in-memory store.
	Store session.Store
	// Registry is the tool registry. When nil, a registry preloaded with the
	// built-in tools is created from the config.
	Registry *tool.Registry
	// Logger receives orchestration events. Defaults to NoOpLogger.
	Logger logging.Logger
	// MaxToolRounds bounds tool dispatch rounds per turn.
	MaxToolRounds int
}

// WithConfig sets the turn configuration.
func WithConfig(cfg core.TurnConfig) func(o *Options) {
	return func(o *Options) { o.Config = cfg }
}

// WithStore sets the conversation store.
func WithStore(store session.Store) func(o *Options) {
	return func(o *Options) { o.Store = store }
}

// WithRegistry sets a custom tool registry, replacing the built-in tools.
func WithRegistry(registry *tool.Registry) func(o *Options) {
	return func(o *Options) { o.Registry = registry }
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = logger }
}

// WithMaxToolRounds bounds the tool dispatch rounds per turn.
func WithMaxToolRounds(max int) func(o *Options) {
	return func(o *Options) { o.MaxToolRounds = max }
}

// Orchestrator runs conversation turns. Turns on different threads execute
// concurrently; turns on the same thread are serialized so history appends
// never interleave.
type Orchestrator struct {
	machine *flow.Machine
	store   session.Store
	logger  logging.Logger

	mu    sync.Mutex
	inUse map[string]*threadLock
}

// threadLock serializes turns on one thread. Entries are refcounted so the
// map only holds threads with a turn in flight or waiting.
type threadLock struct {
	sync.Mutex
	refs int
}

// New creates an Orchestrator for the given model. The configuration is
// validated up front; an invalid configuration fails construction.
func New(m model.Model, optFns ...func(o *Options)) (*Orchestrator, error) {
	opts := Options{
		Config:        core.DefaultTurnConfig(),
		Logger:        logging.NoOpLogger{},
		MaxToolRounds: flow.DefaultMaxToolRounds,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.Store == nil {
		opts.Store = session.NewInMemoryStore()
	}
	if opts.Registry == nil {
		opts.Registry = tool.NewRegistry(func(o *tool.RegistryOptions) {
			o.Logger = opts.Logger
		})
		for _, spec := range tool.Builtins(opts.Config) {
			if err := opts.Registry.Register(spec); err != nil {
				return nil, err
			}
		}
	}

	machine := flow.NewMachine(m, opts.Registry, opts.Config, func(o *flow.Options) {
		o.MaxToolRounds = opts.MaxToolRounds
		o.Logger = opts.Logger
	})

	return &Orchestrator{
		machine: machine,
		store:   opts.Store,
		logger:  opts.Logger,
		inUse:   make(map[string]*threadLock),
	}, nil
}

// acquireThread blocks until the calling turn holds the thread's lock.
func (o *Orchestrator) acquireThread(threadID string) *threadLock {
	o.mu.Lock()
	lock, ok := o.inUse[threadID]
	if !ok {
		lock = &threadLock{}
		o.inUse[threadID] = lock
	}
	lock.refs++
	o.mu.Unlock()

	lock.Lock()
	return lock
}

// releaseThread unlocks the thread and drops the map entry once no turn
// holds or awaits it.
func (o *Orchestrator) releaseThread(threadID string, lock *threadLock) {
	lock.Unlock()

	o.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(o.inUse, threadID)
	}
	o.mu.Unlock()
}

// RunTurn executes one conversation turn and returns the final assistant
// text. The turn delta is persisted in a single append when the turn reaches
// its terminal state; a cancelled turn persists nothing.
func (o *Orchestrator) RunTurn(ctx context.Context, threadID, userText string) (string, error) {
	return o.runTurn(ctx, threadID, userText, nil)
}

// StreamTurn executes one conversation turn, yielding chunks (model partial
// output and tool result notices) as they become available. Both channels are
// closed when the turn completes; at most one error is sent.
func (o *Orchestrator) StreamTurn(ctx context.Context, threadID, userText string) (<-chan string, <-chan error) {
	chunkCh := make(chan string)
	errCh := make(chan error, 1)

	go func() {
		defer close(chunkCh)
		defer close(errCh)

		emit := func(chunk string) error {
			select {
			case chunkCh <- chunk:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if _, err := o.runTurn(ctx, threadID, userText, emit); err != nil {
			errCh <- err
		}
	}()

	return chunkCh, errCh
}

func (o *Orchestrator) runTurn(ctx context.Context, threadID, userText string, emit flow.EmitFunc) (string, error) {
	if strings.TrimSpace(userText) == "" {
		return "", &InvalidInputError{Message: "user text must not be empty"}
	}
	if threadID == "" {
		threadID = DefaultThreadID
	}

	lock := o.acquireThread(threadID)
	defer o.releaseThread(threadID, lock)

	if err := ctx.Err(); err != nil {
		return "", err
	}

	history := o.store.Load(threadID)
	o.logger.Debug("turn.start", "thread_id", threadID, "history_len", len(history))

	result, err := o.machine.Run(ctx, history, userText, emit)
	if err != nil {
		o.logger.Warn("turn.aborted", "thread_id", threadID, "error", err)
		return "", err
	}

	if err := o.store.Append(threadID, result.Messages); err != nil {
		return "", fmt.Errorf("failed to persist turn: %w", err)
	}

	o.logger.Info("turn.done", "thread_id", threadID, "rounds", result.Rounds, "round_limit_hit", result.RoundLimitHit)
	return result.FinalText, nil
}

// ClearHistory removes a thread's stored history and reports whether the
// thread existed.
func (o *Orchestrator) ClearHistory(threadID string) bool {
	if threadID == "" {
		threadID = DefaultThreadID
	}
	return o.store.Clear(threadID)
}

// History returns a copy of a thread's stored history.
func (o *Orchestrator) History(threadID string) []core.Message {
	if threadID == "" {
		threadID = DefaultThreadID
	}
	return o.store.Load(threadID)
}
