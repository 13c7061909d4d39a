package entity

import (
	"encoding/json"
	"fmt"
	"sort"
)

type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
	// RawArguments keeps the argument text exactly as the model produced it so it can be
	// replayed to the provider unchanged.
	RawArguments string
}

func (c ToolCall) ArgumentsJSON() string {
	if c.RawArguments != "" {
		return c.RawArguments
	}
	if len(c.Arguments) == 0 {
		return "{}"
	}
	data, err := json.Marshal(c.Arguments)
	if err != nil {
		return "{}"
	}
	return string(data)
}

type ToolResult struct {
	CallID  string
	Success bool
	Content string
	Error   string
}

func SucceededResult(callID, content string) ToolResult {
	return ToolResult{CallID: callID, Success: true, Content: content}
}

func FailedResult(callID string, err error) ToolResult {
	msg := "tool call failed"
	if err != nil {
		msg = err.Error()
	}
	return ToolResult{CallID: callID, Success: false, Error: msg}
}

// ToolSnapshot is an immutable view of a tool catalog. The zero value is an empty catalog.
type ToolSnapshot struct {
	defs  []ToolDefinition
	index map[string]int
}

// NewToolSnapshot fails with a *CatalogError when two definitions share a name.
func NewToolSnapshot(defs []ToolDefinition) (ToolSnapshot, error) {
	index := make(map[string]int, len(defs))
	var dups []string
	for i, def := range defs {
		if def.Name == "" {
			return ToolSnapshot{}, &CatalogError{Reason: fmt.Sprintf("tool at position %d has no name", i)}
		}
		if _, seen := index[def.Name]; seen {
			dups = append(dups, def.Name)
			continue
		}
		index[def.Name] = i
	}
	if len(dups) > 0 {
		sort.Strings(dups)
		return ToolSnapshot{}, &CatalogError{Duplicates: dups}
	}

	owned := make([]ToolDefinition, len(defs))
	copy(owned, defs)
	return ToolSnapshot{defs: owned, index: index}, nil
}

func (s ToolSnapshot) Definitions() []ToolDefinition {
	out := make([]ToolDefinition, len(s.defs))
	copy(out, s.defs)
	return out
}

func (s ToolSnapshot) Lookup(name string) (ToolDefinition, bool) {
	i, ok := s.index[name]
	if !ok {
		return ToolDefinition{}, false
	}
	return s.defs[i], true
}

func (s ToolSnapshot) Names() []string {
	names := make([]string, 0, len(s.defs))
	for _, def := range s.defs {
		names = append(names, def.Name)
	}
	return names
}

func (s ToolSnapshot) Len() int {
	return len(s.defs)
}
