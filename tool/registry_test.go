package tool

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoSpec(name string) *Spec {
	return &Spec{
		Name:        name,
		Description: "Echo the input back.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []string{"text"},
		},
		Handler: func(ctx context.Context, args map[string]any) Result {
			text, _ := args["text"].(string)
			return Ok(text)
		},
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoSpec("echo")))
	assert.True(t, r.Has("echo"))

	err := r.Register(echoSpec("echo"))
	require.Error(t, err)
	_, ok := err.(*DuplicateToolError)
	assert.True(t, ok)
}

func TestRegistry_RegisterInvalidSpec(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(&Spec{Name: " ", Handler: func(context.Context, map[string]any) Result { return Ok("") }}))
	assert.Error(t, r.Register(&Spec{Name: "no-handler"}))
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoSpec("zeta")))
	require.NoError(t, r.Register(echoSpec("alpha")))
	assert.Equal(t, []string{"alpha", "zeta"}, r.Names())
}

func TestRegistry_Definitions(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoSpec("echo")))

	defs := r.Definitions()
	require.Len(t, defs, 1)
	assert.Equal(t, "echo", defs[0].Name)
	assert.NotNil(t, defs[0].Parameters)
}

func TestRegistry_InvokeSuccess(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoSpec("echo")))

	res := r.Invoke(context.Background(), "echo", map[string]any{"text": "hello"})
	assert.True(t, res.OK)
	assert.Equal(t, "hello", res.Payload)
}

func TestRegistry_InvokeUnknownTool(t *testing.T) {
	r := NewRegistry()
	res := r.Invoke(context.Background(), "missing", nil)
	assert.False(t, res.OK)
	assert.Equal(t, CodeUnknownTool, res.Code)
}

func TestRegistry_InvokeInvalidArguments(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoSpec("echo")))

	res := r.Invoke(context.Background(), "echo", map[string]any{})
	assert.False(t, res.OK)
	assert.Equal(t, CodeInvalidArguments, res.Code)
}

func TestRegistry_InvokePanicRecovered(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&Spec{
		Name:        "boom",
		Description: "Always panics.",
		Handler: func(ctx context.Context, args map[string]any) Result {
			panic("kaboom")
		},
	}))

	res := r.Invoke(context.Background(), "boom", nil)
	assert.False(t, res.OK)
	assert.Equal(t, CodeExecutionError, res.Code)
	assert.Contains(t, res.Message, "kaboom")
}

type wordCountParams struct {
	Text  string `json:"text" description:"Text to count words in"`
	Limit *int   `json:"limit" description:"Optional word cap"`
}

func TestNewSpecFromStruct(t *testing.T) {
	spec := NewSpecFromStruct("word_count", "Count words in a text.", wordCountParams{},
		func(ctx context.Context, args map[string]any) Result {
			text, _ := args["text"].(string)
			return Ok(fmt.Sprintf("%d", len(strings.Fields(text))))
		})

	r := NewRegistry()
	require.NoError(t, r.Register(spec))

	// The reflected schema marks text required but not the pointer field.
	res := r.Invoke(context.Background(), "word_count", map[string]any{})
	assert.Equal(t, CodeInvalidArguments, res.Code)

	res = r.Invoke(context.Background(), "word_count", map[string]any{"text": "one two three"})
	require.True(t, res.OK, res.Message)
	assert.Equal(t, "3", res.Payload)

	// Type checking comes from the schema too.
	res = r.Invoke(context.Background(), "word_count", map[string]any{"text": 42})
	assert.Equal(t, CodeInvalidArguments, res.Code)
}

func TestResult_Output(t *testing.T) {
	assert.Equal(t, "payload", Ok("payload").Output())
	assert.Equal(t, "Error (UNKNOWN_TOOL): nope", Err(CodeUnknownTool, "nope").Output())
}
