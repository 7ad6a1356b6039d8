package memory

// Timestamp layouts used by the persisted records. Part of the durable
// contract: existing conversation files must stay readable.
const (
	IDTimeLayout      = "20060102_150405"
	MessageTimeLayout = "2006-01-02 15:04:05"
)

// Message is one immutable entry of a conversation log.
type Message struct {
	Role      string `json:"role"` // "user", "assistant" or "system"
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// Conversation is an append-only message log persisted as one JSON file.
// The id is derived from the creation time and never changes.
type Conversation struct {
	ID        string    `json:"id"`
	CreatedAt string    `json:"created_at"`
	Messages  []Message `json:"messages"`
}
