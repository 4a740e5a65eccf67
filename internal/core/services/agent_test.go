package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-chat/internal/core/domain"
)

func TestAgentDispatcher_Parse(t *testing.T) {
	d := NewAgentDispatcher()

	tests := []struct {
		name    string
		message string
		want    []domain.ToolCall
	}{
		{
			name:    "no calls",
			message: "just text {not a call}",
			want:    []domain.ToolCall{},
		},
		{
			name:    "single call",
			message: `Check {{search(query="cats")}} please`,
			want: []domain.ToolCall{
				{Name: "search", Params: map[string]string{"query": "cats"}, Raw: `{{search(query="cats")}}`},
			},
		},
		{
			name:    "several params and calls",
			message: `{{time(zone="UTC")}} and {{calc(expression="1 + 2", precision="2")}}`,
			want: []domain.ToolCall{
				{Name: "time", Params: map[string]string{"zone": "UTC"}, Raw: `{{time(zone="UTC")}}`},
				{Name: "calc", Params: map[string]string{"expression": "1 + 2", "precision": "2"}, Raw: `{{calc(expression="1 + 2", precision="2")}}`},
			},
		},
		{
			name:    "no params",
			message: `{{time()}}`,
			want:    []domain.ToolCall{{Name: "time", Params: map[string]string{}, Raw: `{{time()}}`}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Parse(tt.message))
		})
	}
}

func TestAgentDispatcher_Process(t *testing.T) {
	ctx := context.Background()
	d := NewAgentDispatcher(&mockTool{name: "search", output: "found"})

	t.Run("result follows call", func(t *testing.T) {
		out, results := d.Process(ctx, `Check {{search(query="cats")}} please`)
		assert.Equal(t, "Check {{search(query=\"cats\")}}\n[search result]\nfound: cats\n[end search result]\n please", out)
		require.Len(t, results, 1)
		assert.False(t, results[0].Failed())
	})

	t.Run("unknown tool renders inline", func(t *testing.T) {
		out, results := d.Process(ctx, `Try {{bogusTool(x="1")}} now`)
		require.Len(t, results, 1)
		assert.ErrorIs(t, results[0].Err, domain.ErrUnknownTool)
		assert.True(t, strings.HasPrefix(out, `Try {{bogusTool(x="1")}}`+"\n[bogusTool error: "))
		assert.True(t, strings.HasSuffix(out, "]\n now"))
	})

	t.Run("message without calls is untouched", func(t *testing.T) {
		out, results := d.Process(ctx, "plain message")
		assert.Equal(t, "plain message", out)
		assert.Empty(t, results)
	})
}

func TestAgentDispatcher_Aliases(t *testing.T) {
	ctx := context.Background()
	d := NewAgentDispatcher(&mockTool{name: "search", output: "found"})
	d.Register(&mockTool{name: "calculate", output: "4"}, "math")

	for _, name := range []string{"googleSearch", "webSearch"} {
		out, results := d.Process(ctx, "{{"+name+`(query="q")}}`)
		require.Len(t, results, 1, name)
		assert.False(t, results[0].Failed(), name)
		assert.Contains(t, out, "found: q")
	}

	_, results := d.Process(ctx, `{{calc(expression="2+2")}} {{math(expression="2+2")}}`)
	require.Len(t, results, 2)
	assert.Equal(t, "4", results[0].Output)
	assert.Equal(t, "4", results[1].Output)

	// Aliases for tools that are not registered stay unknown.
	_, results = d.Process(ctx, `{{datetime()}}`)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, domain.ErrUnknownTool)
}

func TestAgentDispatcher_FailuresAreIsolated(t *testing.T) {
	ctx := context.Background()
	d := NewAgentDispatcher(
		&mockTool{name: "search", output: "found"},
		&mockTool{name: "broken", err: errors.New("disk on fire")},
		&mockTool{name: "panicky", panics: true},
	)

	msg := `{{broken()}} {{search(query="a")}} {{panicky()}} {{search(query="b")}}`
	out, results := d.Process(ctx, msg)
	require.Len(t, results, 4)

	assert.ErrorIs(t, results[0].Err, domain.ErrToolExecution)
	assert.Equal(t, "found: a", results[1].Output)
	assert.ErrorIs(t, results[2].Err, domain.ErrToolExecution)
	assert.Equal(t, "found: b", results[3].Output)

	assert.Contains(t, out, "disk on fire")
	assert.Less(t, strings.Index(out, "found: a"), strings.Index(out, "{{panicky()}}"))
	assert.Less(t, strings.Index(out, "{{panicky()}}"), strings.Index(out, "found: b"))
}

func TestAgentDispatcher_Tools(t *testing.T) {
	d := NewAgentDispatcher(&mockTool{name: "time"}, &mockTool{name: "search"})

	tools := d.Tools()
	require.Len(t, tools, 2)
	assert.Equal(t, "search", tools[0].Name)
	assert.Equal(t, []string{"googleSearch", "webSearch"}, tools[0].Aliases)
	assert.Equal(t, "time", tools[1].Name)
	assert.Equal(t, []string{"datetime"}, tools[1].Aliases)
}
