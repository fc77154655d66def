package ai

// MessageRole identifies the author of a prompt message.
type MessageRole string

const (
	RoleSystem MessageRole = "system"
	RoleHuman  MessageRole = "human"
	RoleAI     MessageRole = "ai"
)

// Message is a single entry of a generation prompt.
type Message struct {
	Role    MessageRole
	Content string
}

// SystemMessage builds a system prompt message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// HumanMessage builds a user prompt message.
func HumanMessage(content string) Message {
	return Message{Role: RoleHuman, Content: content}
}
