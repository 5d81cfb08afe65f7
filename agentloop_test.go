package agentloop

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/session"
	"github.com/hupe1980/agentloop/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrchestrator(t *testing.T, m model.Model, optFns ...func(o *Options)) *Orchestrator {
	t.Helper()
	opts := append([]func(o *Options){func(o *Options) {
		cfg := core.DefaultTurnConfig()
		cfg.WorkingDir = t.TempDir()
		o.Config = cfg
	}}, optFns...)
	orchestrator, err := New(m, opts...)
	require.NoError(t, err)
	return orchestrator
}

func TestNew_InvalidConfigRejected(t *testing.T) {
	cfg := core.DefaultTurnConfig()
	cfg.MaxTokens = -1

	_, err := New(model.NewMockModel("x"), WithConfig(cfg))
	require.Error(t, err)
	_, ok := err.(*core.ConfigError)
	assert.True(t, ok)
}

func TestNew_RegistersBuiltins(t *testing.T) {
	o := newTestOrchestrator(t, model.NewMockModel("x"))
	_, err := o.RunTurn(context.Background(), "t", "hello")
	require.NoError(t, err)

	// The synthesized system prompt names the built-in tools.
	history := o.History("t")
	require.NotEmpty(t, history)
	assert.Equal(t, core.RoleSystem, history[0].Role)
	assert.Contains(t, history[0].Content, "calculate")
	assert.Contains(t, history[0].Content, "read_file")
}

func TestRunTurn_EmptyInputRejected(t *testing.T) {
	store := session.NewInMemoryStore()
	o := newTestOrchestrator(t, model.NewMockModel("x"), WithStore(store))

	_, err := o.RunTurn(context.Background(), "t", "   ")
	require.Error(t, err)
	var invalidErr *InvalidInputError
	assert.True(t, errors.As(err, &invalidErr))

	// Rejected before any side effect.
	assert.Empty(t, store.Load("t"))
}

func TestRunTurn_DefaultThread(t *testing.T) {
	o := newTestOrchestrator(t, model.NewMockModel("hi"))

	_, err := o.RunTurn(context.Background(), "", "hello")
	require.NoError(t, err)

	assert.NotEmpty(t, o.History(DefaultThreadID))
	assert.NotEmpty(t, o.History(""))
}

func TestRunTurn_MemoryPersistence(t *testing.T) {
	mock := model.NewScriptedMockModel(
		model.MockResponse{Message: core.NewAssistantMessage("Nice to meet you, Alice!")},
		model.MockResponse{Message: core.NewAssistantMessage("Your name is Alice.")},
	)
	o := newTestOrchestrator(t, mock)
	ctx := context.Background()

	_, err := o.RunTurn(ctx, "alice", "My name is Alice")
	require.NoError(t, err)

	answer, err := o.RunTurn(ctx, "alice", "What is my name?")
	require.NoError(t, err)
	assert.Equal(t, "Your name is Alice.", answer)

	// The second model call saw both prior messages in original order.
	msgs := mock.LastRequest.Messages
	var contents []string
	for _, msg := range msgs {
		if msg.Role != core.RoleSystem {
			contents = append(contents, msg.Content)
		}
	}
	assert.Equal(t, []string{
		"My name is Alice",
		"Nice to meet you, Alice!",
		"What is my name?",
	}, contents)
}

func TestRunTurn_HistoryGrowsMonotonically(t *testing.T) {
	o := newTestOrchestrator(t, model.NewMockModel("ok"))
	ctx := context.Background()

	_, err := o.RunTurn(ctx, "t", "one")
	require.NoError(t, err)
	firstLen := len(o.History("t"))
	assert.Equal(t, 3, firstLen) // system, user, assistant

	_, err = o.RunTurn(ctx, "t", "two")
	require.NoError(t, err)
	assert.Equal(t, firstLen+2, len(o.History("t")))
}

func TestRunTurn_CancelledTurnPersistsNothing(t *testing.T) {
	store := session.NewInMemoryStore()
	o := newTestOrchestrator(t, model.NewMockModel("x"), WithStore(store))

	require.NoError(t, store.Append("t", []core.Message{core.NewUserMessage("pre-existing")}))
	before := store.Load("t")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.RunTurn(ctx, "t", "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	after := store.Load("t")
	require.Len(t, after, len(before))
	assert.Equal(t, before[0].ID, after[0].ID)
}

func TestRunTurn_ModelFailureIsContained(t *testing.T) {
	mock := model.NewScriptedMockModel(
		model.MockResponse{Err: errors.New("down")},
		model.MockResponse{Err: errors.New("still down")},
	)
	o := newTestOrchestrator(t, mock)

	answer, err := o.RunTurn(context.Background(), "t", "hello")
	require.NoError(t, err)
	assert.Contains(t, answer, "still down")
}

func TestStreamTurn_FiniteAndPersisted(t *testing.T) {
	o := newTestOrchestrator(t, model.NewMockModel("streamed reply"))

	chunkCh, errCh := o.StreamTurn(context.Background(), "t", "hello")

	var chunks []string
	for chunkCh != nil || errCh != nil {
		select {
		case chunk, ok := <-chunkCh:
			if !ok {
				chunkCh = nil
				continue
			}
			chunks = append(chunks, chunk)
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			require.NoError(t, err)
		}
	}

	assert.Contains(t, chunks, "streamed reply")
	assert.NotEmpty(t, o.History("t"))
}

func TestStreamTurn_EmptyInputError(t *testing.T) {
	o := newTestOrchestrator(t, model.NewMockModel("x"))

	chunkCh, errCh := o.StreamTurn(context.Background(), "t", "")

	var streamErr error
	for chunkCh != nil || errCh != nil {
		select {
		case _, ok := <-chunkCh:
			if !ok {
				chunkCh = nil
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			streamErr = err
		}
	}

	require.Error(t, streamErr)
	var invalidErr *InvalidInputError
	assert.True(t, errors.As(streamErr, &invalidErr))
}

func TestClearHistory(t *testing.T) {
	o := newTestOrchestrator(t, model.NewMockModel("x"))

	_, err := o.RunTurn(context.Background(), "t", "hello")
	require.NoError(t, err)

	assert.True(t, o.ClearHistory("t"))
	assert.Empty(t, o.History("t"))
	assert.False(t, o.ClearHistory("t"))
}

func TestRunTurn_ConcurrentThreadsIndependent(t *testing.T) {
	o := newTestOrchestrator(t, model.NewMockModel("ok"))

	var wg sync.WaitGroup
	threads := []string{"a", "b", "c", "d"}
	for _, threadID := range threads {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				_, err := o.RunTurn(context.Background(), id, "ping")
				assert.NoError(t, err)
			}
		}(threadID)
	}
	wg.Wait()

	for _, threadID := range threads {
		// system + 5 * (user, assistant)
		assert.Len(t, o.History(threadID), 11)
	}
}

func TestRunTurn_ThreadLocksReleased(t *testing.T) {
	o := newTestOrchestrator(t, model.NewMockModel("ok"))
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, threadID := range []string{"a", "b", "a", "c", "b"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := o.RunTurn(ctx, id, "ping")
			assert.NoError(t, err)
		}(threadID)
	}
	wg.Wait()

	// No turns in flight: the per-thread lock map is empty again.
	o.mu.Lock()
	remaining := len(o.inUse)
	o.mu.Unlock()
	assert.Zero(t, remaining)
}

func TestWithRegistry_ReplacesBuiltins(t *testing.T) {
	registry := tool.NewRegistry()
	require.NoError(t, registry.Register(&tool.Spec{
		Name:        "only_tool",
		Description: "The only tool.",
		Handler: func(ctx context.Context, args map[string]any) tool.Result {
			return tool.Ok("ran")
		},
	}))

	o := newTestOrchestrator(t, model.NewMockModel("x"), WithRegistry(registry))

	_, err := o.RunTurn(context.Background(), "t", "hello")
	require.NoError(t, err)

	system := o.History("t")[0]
	assert.Contains(t, system.Content, "only_tool")
	assert.NotContains(t, system.Content, "read_file")
}
