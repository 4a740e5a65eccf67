package services

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-chat/internal/core/domain"
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-chat/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-chat/internal/logger"
)

// Ensure AgentDispatcher implements the interface.
var _ driving.AgentService = (*AgentDispatcher)(nil)

var (
	// {{name(args)}}; args end at the first ")}}".
	toolCallPattern = regexp.MustCompile(`\{\{(\w+)\((.*?)\)\}\}`)

	// key="value"; values cannot contain escaped quotes.
	toolParamPattern = regexp.MustCompile(`(\w+)="([^"]*)"`)
)

// defaultToolAliases maps names users may write to canonical tool names.
var defaultToolAliases = map[string]string{
	"googleSearch": "search",
	"webSearch":    "search",
	"calc":         "calculate",
	"datetime":     "time",
}

// AgentDispatcher resolves inline tool calls in chat messages.
type AgentDispatcher struct {
	mu       sync.RWMutex
	handlers map[string]driven.ToolHandler
	aliases  map[string]string
}

// NewAgentDispatcher creates a dispatcher with the default alias table and
// the given handlers registered under their own names.
func NewAgentDispatcher(handlers ...driven.ToolHandler) *AgentDispatcher {
	d := &AgentDispatcher{
		handlers: make(map[string]driven.ToolHandler),
		aliases:  make(map[string]string, len(defaultToolAliases)),
	}
	for alias, name := range defaultToolAliases {
		d.aliases[alias] = name
	}
	for _, h := range handlers {
		d.Register(h)
	}
	return d
}

// Register adds a handler under its name plus any extra aliases.
func (d *AgentDispatcher) Register(h driven.ToolHandler, aliases ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[h.Name()] = h
	for _, alias := range aliases {
		d.aliases[alias] = h.Name()
	}
}

// resolve looks a tool name up directly, then through the alias table.
func (d *AgentDispatcher) resolve(name string) (driven.ToolHandler, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if h, ok := d.handlers[name]; ok {
		return h, true
	}
	if canonical, ok := d.aliases[name]; ok {
		h, ok := d.handlers[canonical]
		return h, ok
	}
	return nil, false
}

// Parse returns every tool call in message, in order of appearance.
func (d *AgentDispatcher) Parse(message string) []domain.ToolCall {
	matches := toolCallPattern.FindAllStringSubmatch(message, -1)
	calls := make([]domain.ToolCall, 0, len(matches))
	for _, m := range matches {
		params := make(map[string]string)
		for _, p := range toolParamPattern.FindAllStringSubmatch(m[2], -1) {
			params[p[1]] = p[2]
		}
		calls = append(calls, domain.ToolCall{Name: m[1], Params: params, Raw: m[0]})
	}
	return calls
}

// Process runs every call concurrently and appends each result block
// directly after its call text. Unknown tools and handler failures become
// inline error blocks; the rest of the message is untouched.
func (d *AgentDispatcher) Process(ctx context.Context, message string) (string, []domain.ToolResult) {
	locs := toolCallPattern.FindAllStringIndex(message, -1)
	if len(locs) == 0 {
		return message, nil
	}
	calls := d.Parse(message)
	logger.Debug("Dispatching %d tool calls", len(calls))

	results := make([]domain.ToolResult, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = d.execute(ctx, call)
		}()
	}
	wg.Wait()

	var sb strings.Builder
	prev := 0
	for i, loc := range locs {
		sb.WriteString(message[prev:loc[1]])
		sb.WriteString(renderResult(results[i]))
		prev = loc[1]
	}
	sb.WriteString(message[prev:])

	return sb.String(), results
}

func (d *AgentDispatcher) execute(ctx context.Context, call domain.ToolCall) (result domain.ToolResult) {
	result.Call = call

	h, ok := d.resolve(call.Name)
	if !ok {
		logger.Warn("Unknown tool %q", call.Name)
		result.Err = fmt.Errorf("%w: %s", domain.ErrUnknownTool, call.Name)
		return result
	}

	defer func() {
		if r := recover(); r != nil {
			result.Output = ""
			result.Err = fmt.Errorf("%w: %s: panic: %v", domain.ErrToolExecution, call.Name, r)
		}
	}()

	out, err := h.Execute(ctx, call.Params)
	if err != nil {
		logger.Warn("Tool %s failed: %v", call.Name, err)
		result.Err = fmt.Errorf("%w: %s: %v", domain.ErrToolExecution, call.Name, err)
		return result
	}
	result.Output = out
	return result
}

func renderResult(r domain.ToolResult) string {
	if r.Failed() {
		return fmt.Sprintf("\n[%s error: %v]\n", r.Call.Name, r.Err)
	}
	return fmt.Sprintf("\n[%s result]\n%s\n[end %s result]\n", r.Call.Name, strings.TrimSpace(r.Output), r.Call.Name)
}

// Tools lists the registered tools with their aliases, sorted by name.
func (d *AgentDispatcher) Tools() []driving.ToolInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()

	infos := make([]driving.ToolInfo, 0, len(d.handlers))
	for name, h := range d.handlers {
		info := driving.ToolInfo{Name: name, Description: h.Description(), Aliases: []string{}}
		for alias, target := range d.aliases {
			if target == name && alias != name {
				info.Aliases = append(info.Aliases, alias)
			}
		}
		sort.Strings(info.Aliases)
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
