package types

// Conversation is the ordered message history sent to the model.
// The first message always has the system role. The turn loop only appends;
// Trim is reserved for the trimming policy and never drops the system message.
type Conversation struct {
	messages []Message
}

// NewConversation starts a history seeded with the system prompt.
func NewConversation(systemPrompt string) *Conversation {
	return &Conversation{messages: []Message{SystemMessage(systemPrompt)}}
}

// Append adds messages to the end of the history.
func (c *Conversation) Append(msgs ...Message) {
	c.messages = append(c.messages, msgs...)
}

// Messages returns a copy of the history.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages including the system prompt.
func (c *Conversation) Len() int { return len(c.messages) }

// System returns the system prompt text.
func (c *Conversation) System() string { return c.messages[0].Content }

// Last returns the most recent message.
func (c *Conversation) Last() Message { return c.messages[len(c.messages)-1] }

// SetSystem replaces the system prompt and keeps the rest of the history.
func (c *Conversation) SetSystem(systemPrompt string) {
	c.messages[0] = SystemMessage(systemPrompt)
}

// Reset discards everything and starts over with a new system prompt.
func (c *Conversation) Reset(systemPrompt string) {
	c.messages = []Message{SystemMessage(systemPrompt)}
}

// Trim keeps the system message plus the keepRecent most recent messages.
// It returns the number of messages dropped.
func (c *Conversation) Trim(keepRecent int) int {
	if keepRecent < 0 {
		keepRecent = 0
	}
	excess := len(c.messages) - 1 - keepRecent
	if excess <= 0 {
		return 0
	}
	kept := make([]Message, 0, keepRecent+1)
	kept = append(kept, c.messages[0])
	kept = append(kept, c.messages[len(c.messages)-keepRecent:]...)
	c.messages = kept
	return excess
}
