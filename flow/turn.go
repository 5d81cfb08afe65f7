package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/tool"
)

// State identifies a position in the turn state machine.
type State string

const (
	// StateStart is the initial state with the loaded history.
	StateStart State = "start"
	// StateModelInvoke is the model call state.
	StateModelInvoke State = "model_invoke"
	// StateToolDispatch is the tool execution state.
	StateToolDispatch State = "tool_dispatch"
	// StateTerminal is the final state of a turn.
	StateTerminal State = "terminal"
)

// DefaultMaxToolRounds bounds tool dispatch rounds per turn.
const DefaultMaxToolRounds = 8

// DefaultRetryBackoff is the pause before the single model retry.
const DefaultRetryBackoff = 500 * time.Millisecond

// EmitFunc receives streaming chunks: model partial output and tool result
// notices. Returning an error aborts the turn.
type EmitFunc func(chunk string) error

// Result is the outcome of a completed turn.
type Result struct {
	// Messages is the turn delta: every message produced by this turn, in
	// order, starting with the user message (and a synthesized system message
	// on the first turn of a thread).
	Messages []core.Message
	// FinalText is the text returned to the caller.
	FinalText string
	// Rounds is the number of completed model invocations.
	Rounds int
	// RoundLimitHit reports whether the turn ended due to the round limit.
	RoundLimitHit bool
}

// Options configures a Machine.
type Options struct {
	// MaxToolRounds bounds tool dispatch rounds. Defaults to DefaultMaxToolRounds.
	MaxToolRounds int
	// RetryBackoff is the pause before the single model retry.
	RetryBackoff time.Duration
	// Logger receives turn lifecycle events. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Machine runs single conversation turns. The loop alternates model
// invocations with tool dispatch until the model stops requesting tools.
// Every failure inside the loop is contained: tool errors become tool
// messages, model failures become a terminal assistant message after one
// retry. Only context cancellation escapes as an error.
type Machine struct {
	model         model.Model
	registry      *tool.Registry
	cfg           core.TurnConfig
	maxToolRounds int
	retryBackoff  time.Duration
	logger        logging.Logger
}

// NewMachine creates a turn machine over a model, a tool registry and a
// validated turn configuration.
func NewMachine(m model.Model, registry *tool.Registry, cfg core.TurnConfig, optFns ...func(o *Options)) *Machine {
	opts := Options{
		MaxToolRounds: DefaultMaxToolRounds,
		RetryBackoff:  DefaultRetryBackoff,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Machine{
		model:         m,
		registry:      registry,
		cfg:           cfg,
		maxToolRounds: opts.MaxToolRounds,
		retryBackoff:  opts.RetryBackoff,
		logger:        opts.Logger,
	}
}

// Run executes one turn. history is the thread's persisted history, userText
// the new user input. emit may be nil for non-streaming turns. The returned
// Result carries only the turn delta; persisting it is the caller's job, so a
// cancelled turn leaves no trace in the store.
func (m *Machine) Run(ctx context.Context, history []core.Message, userText string, emit EmitFunc) (*Result, error) {
	delta := make([]core.Message, 0, 4)
	if !hasSystemMessage(history) {
		delta = append(delta, core.NewSystemMessage(m.systemPrompt()))
	}
	delta = append(delta, core.NewUserMessage(userText))

	working := append(core.CloneMessages(history), delta...)
	limiter := NewRoundLimiter(m.maxToolRounds)
	result := &Result{}

	state := StateModelInvoke
	for state != StateTerminal {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch state {
		case StateModelInvoke:
			assistant, streamed, err := m.invokeModel(ctx, working, emit)
			if err != nil {
				if ctx.Err() != nil {
					return nil, err
				}
				// Contained failure: the turn ends with an explanation
				// instead of surfacing a transport error to the caller.
				m.logger.Error("turn.model.failed", "error", err)
				assistant = core.NewAssistantMessage(fmt.Sprintf("I was unable to get a response from the model: %v", err))
				delta = append(delta, assistant)
				result.FinalText = assistant.Content
				if emitErr := emitChunk(emit, assistant.Content); emitErr != nil {
					return nil, emitErr
				}
				state = StateTerminal
				continue
			}

			result.Rounds++
			delta = append(delta, assistant)
			working = append(working, assistant)

			if !assistant.HasToolCalls() {
				result.FinalText = assistant.Content
				if !streamed {
					if err := emitChunk(emit, assistant.Content); err != nil {
						return nil, err
					}
				}
				state = StateTerminal
				continue
			}
			state = StateToolDispatch

		case StateToolDispatch:
			last := working[len(working)-1]
			if !limiter.Allow() {
				note := fmt.Sprintf("Note: the tool round limit (%d) was reached, so no further tools were run.", limiter.Max())
				noteMsg := core.NewAssistantMessage(note)
				delta = append(delta, noteMsg)
				result.FinalText = strings.TrimSpace(last.Content + "\n\n" + note)
				result.RoundLimitHit = true
				if err := emitChunk(emit, note); err != nil {
					return nil, err
				}
				m.logger.Warn("turn.round_limit", "max_rounds", limiter.Max())
				state = StateTerminal
				continue
			}

			for _, call := range last.ToolCalls {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				toolMsg := m.dispatchCall(ctx, call)
				delta = append(delta, toolMsg)
				working = append(working, toolMsg)
				if err := emitChunk(emit, fmt.Sprintf("[%s] %s", call.Name, toolMsg.Content)); err != nil {
					return nil, err
				}
			}
			state = StateModelInvoke
		}
	}

	result.Messages = delta
	return result, nil
}

// dispatchCall runs one tool call and wraps the outcome in a tool message
// tagged with the originating call ID. Argument decode failures are reported
// as invalid-argument results, never as Go errors.
func (m *Machine) dispatchCall(ctx context.Context, call core.ToolCall) core.Message {
	start := time.Now()

	args := map[string]any{}
	if strings.TrimSpace(call.Arguments) != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			res := tool.Errf(tool.CodeInvalidArguments, "arguments are not a valid JSON object: %v", err)
			m.logger.Warn("turn.tool.bad_args", "tool", call.Name, "error", err)
			return core.NewToolMessage(call.ID, call.Name, res.Output())
		}
	}

	res := m.registry.Invoke(ctx, call.Name, args)
	m.logger.Debug("turn.tool.done", "tool", call.Name, "ok", res.OK, "duration", time.Since(start))
	return core.NewToolMessage(call.ID, call.Name, res.Output())
}

// invokeModel performs one model call with a single retry on failure. The
// returned bool reports whether partial content was already emitted.
func (m *Machine) invokeModel(ctx context.Context, working []core.Message, emit EmitFunc) (core.Message, bool, error) {
	req := model.Request{
		Messages:    working,
		Tools:       m.registry.Definitions(),
		Model:       m.cfg.ModelName,
		Temperature: m.cfg.Temperature,
		MaxTokens:   m.cfg.MaxTokens,
		Stream:      emit != nil,
	}

	msg, streamed, err := m.generateOnce(ctx, req, emit)
	if err == nil || ctx.Err() != nil {
		return msg, streamed, err
	}

	m.logger.Warn("turn.model.retry", "error", err, "backoff", m.retryBackoff)
	select {
	case <-time.After(m.retryBackoff):
	case <-ctx.Done():
		return core.Message{}, false, ctx.Err()
	}
	return m.generateOnce(ctx, req, emit)
}

// generateOnce drains one Generate call. Partial responses are forwarded to
// emit; the final response becomes the assistant message.
func (m *Machine) generateOnce(ctx context.Context, req model.Request, emit EmitFunc) (core.Message, bool, error) {
	respCh, errCh := m.model.Generate(ctx, req)

	var final core.Message
	gotFinal := false
	streamed := false

	for respCh != nil || errCh != nil {
		select {
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if resp.Partial {
				streamed = true
				if err := emitChunk(emit, resp.Message.Content); err != nil {
					return core.Message{}, streamed, err
				}
				continue
			}
			final = resp.Message
			gotFinal = true
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return core.Message{}, streamed, err
			}
		case <-ctx.Done():
			return core.Message{}, streamed, ctx.Err()
		}
	}

	if !gotFinal {
		return core.Message{}, streamed, errors.New("model produced no response")
	}
	return final, streamed, nil
}

// systemPrompt synthesizes the system message for a thread's first turn.
func (m *Machine) systemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You are a helpful assistant. Answer concisely and use tools when they help.\n")
	names := m.registry.Names()
	if len(names) > 0 {
		sb.WriteString("Available tools: ")
		sb.WriteString(strings.Join(names, ", "))
		sb.WriteString(".")
	}
	return sb.String()
}

func hasSystemMessage(history []core.Message) bool {
	for _, msg := range history {
		if msg.Role == core.RoleSystem {
			return true
		}
	}
	return false
}

func emitChunk(emit EmitFunc, chunk string) error {
	if emit == nil || chunk == "" {
		return nil
	}
	return emit(chunk)
}
