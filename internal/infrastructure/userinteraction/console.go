package userinteraction

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"mcpchat/internal/application/port/output"
	"mcpchat/internal/domain/entity"

	"github.com/fatih/color"
)

var _ output.UserInteractionPort = (*ConsoleUserInteraction)(nil)

type ConsoleUserInteraction struct {
	reader *bufio.Reader
	out    io.Writer
}

func NewConsoleUserInteraction() *ConsoleUserInteraction {
	return NewConsole(os.Stdin, color.Output)
}

func NewConsole(in io.Reader, out io.Writer) *ConsoleUserInteraction {
	return &ConsoleUserInteraction{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Prompt returns io.EOF once the input is exhausted with nothing left to read.
func (u *ConsoleUserInteraction) Prompt(ctx context.Context, label string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprintf(u.out, "\n%s: ", label)

	line, err := u.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		return "", fmt.Errorf("failed to read user input: %w", err)
	}

	return strings.TrimSpace(line), nil
}

func (u *ConsoleUserInteraction) ShowTurn(ctx context.Context, turn, maxTurns int) {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintf(u.out, "\n━━━ Turn %d/%d ━━━\n", turn, maxTurns)
}

func (u *ConsoleUserInteraction) ShowThinking(ctx context.Context, content string) {
	if content == "" {
		return
	}

	blue := color.New(color.FgBlue)
	blue.Fprint(u.out, "💭 ")

	dim := color.New(color.Faint)
	dim.Fprintln(u.out, truncate(content, 500))
}

func (u *ConsoleUserInteraction) ShowToolStart(ctx context.Context, toolName, arguments string) {
	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Fprintf(u.out, "🔧 %s\n", toolName)

	if summary := formatToolArguments(arguments); summary != "" {
		dim := color.New(color.Faint)
		dim.Fprintf(u.out, "   %s\n", summary)
	}
}

func (u *ConsoleUserInteraction) ShowToolResult(ctx context.Context, toolName, result string, isError bool) {
	if isError {
		red := color.New(color.FgRed)
		red.Fprint(u.out, "❌ ")

		dim := color.New(color.Faint)
		dim.Fprintln(u.out, truncate(strings.TrimPrefix(result, "Error: "), 300))
		return
	}

	green := color.New(color.FgGreen)
	green.Fprintf(u.out, "✓ %s\n", formatToolResult(result))
}

func (u *ConsoleUserInteraction) ShowAnswer(text string) {
	fmt.Fprintf(u.out, "\n%s\n", text)
}

func (u *ConsoleUserInteraction) ShowError(err error) {
	red := color.New(color.FgRed, color.Bold)
	red.Fprintf(u.out, "\nError: %v\n", err)

	var tl *entity.TurnLimitError
	if errors.As(err, &tl) && tl.PartialText != "" {
		dim := color.New(color.Faint)
		dim.Fprintf(u.out, "Partial answer:\n%s\n", tl.PartialText)
	}
}

func (u *ConsoleUserInteraction) ShowTools(tools []entity.ToolDefinition) {
	if len(tools) == 0 {
		fmt.Fprintln(u.out, "No tools available.")
		return
	}

	bold := color.New(color.Bold)
	bold.Fprintf(u.out, "Connected to server with %d tools:\n", len(tools))
	for _, tool := range tools {
		fmt.Fprintf(u.out, "  • %s", tool.Name)
		if desc := firstLine(tool.Description); desc != "" {
			color.New(color.Faint).Fprintf(u.out, " - %s", truncate(desc, 100))
		}
		fmt.Fprintln(u.out)
	}
}

// formatToolArguments renders a one-line key=value summary of a JSON object.
func formatToolArguments(arguments string) string {
	var args map[string]any
	if err := json.Unmarshal([]byte(arguments), &args); err != nil || len(args) == 0 {
		return ""
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		var v string
		switch val := args[k].(type) {
		case string:
			v = truncate(val, 60)
		case []any:
			v = fmt.Sprintf("[%d items]", len(val))
		case map[string]any:
			v = fmt.Sprintf("{%d fields}", len(val))
		default:
			v = fmt.Sprint(val)
		}
		parts = append(parts, k+"="+v)
	}
	return truncate(strings.Join(parts, ", "), 160)
}

func formatToolResult(result string) string {
	if result == "" {
		return "(empty result)"
	}
	lines := strings.Split(strings.TrimSpace(result), "\n")
	summary := truncate(lines[0], 100)
	if len(lines) > 1 {
		summary += fmt.Sprintf(" (+%d lines)", len(lines)-1)
	}
	return summary
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
