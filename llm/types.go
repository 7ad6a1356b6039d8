package llm

// Message represents one entry of the prompt context sent to the endpoint.
type Message struct {
	Role    string `json:"role"` // "user", "assistant" or "system"
	Content string `json:"content"`
}

// Role constants for Message.Role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Config represents the completion endpoint configuration.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// TemperatureLevel is the three-level output certainty choice exposed by the
// UI. The naming is inverted on purpose: a "high certainty" choice maps to the
// lowest temperature. Keep the mapping as-is.
type TemperatureLevel string

const (
	LevelLow    TemperatureLevel = "low"    // high certainty
	LevelMedium TemperatureLevel = "medium" // default
	LevelHigh   TemperatureLevel = "high"   // low certainty
)

// Temperature maps the level to the concrete sampling temperature.
// Unknown levels fall back to the medium value.
func (l TemperatureLevel) Temperature() float32 {
	switch l {
	case LevelLow:
		return 0.2
	case LevelHigh:
		return 1.2
	default:
		return 0.7
	}
}
