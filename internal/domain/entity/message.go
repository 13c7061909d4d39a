package entity

type MessageRole string

const (
	RoleSystem     MessageRole = "system"
	RoleUser       MessageRole = "user"
	RoleAssistant  MessageRole = "assistant"
	RoleToolResult MessageRole = "tool_result"
)

// Message is one turn of a conversation. Messages are values; once appended to a
// Conversation they are never changed.
type Message struct {
	Role       MessageRole
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	Name       string
	IsError    bool
}

func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

func AssistantMessage(text string, calls []ToolCall) Message {
	msg := Message{Role: RoleAssistant, Content: text}
	if len(calls) > 0 {
		msg.ToolCalls = make([]ToolCall, len(calls))
		copy(msg.ToolCalls, calls)
	}
	return msg
}

// ToolResultMessage records the outcome of call. Failed results are rendered with an
// "Error: " prefix so the model can tell them apart from tool output.
func ToolResultMessage(call ToolCall, result ToolResult) Message {
	content := result.Content
	if !result.Success {
		content = "Error: " + result.Error
	}
	return Message{
		Role:       RoleToolResult,
		Content:    content,
		ToolCallID: call.ID,
		Name:       call.Name,
		IsError:    !result.Success,
	}
}
