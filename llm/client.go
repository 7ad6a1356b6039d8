package llm

import (
	"context"
	"errors"
	"io"

	"github.com/sashabaranov/go-openai"
)

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client struct {
	client *openai.Client
	config Config
}

// NewClient creates a streaming completion client from the given config.
func NewClient(config Config) *Client {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &Client{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.config.Model
}

// StreamChat sends the full prompt context and returns a channel of text
// fragments in arrival order. The channel is closed when the endpoint signals
// completion, the stop signal is observed, or a transport failure occurs.
//
// The stop signal is checked before each fragment is yielded; once it is set
// no further fragment is delivered. A transport failure produces exactly one
// final "\n[ERROR] <message>" fragment, unless the stop signal is already
// set, in which case the failure is treated as a consequence of cancellation
// and swallowed. Each call creates a fresh single-use request.
func (c *Client) StreamChat(ctx context.Context, messages []Message, temperature float32, stop *StopSignal) <-chan string {
	fragments := make(chan string)

	req := openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    convertMessages(messages),
		Temperature: temperature,
		Stream:      true,
	}

	go func() {
		defer close(fragments)

		stream, err := c.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			emitError(ctx, fragments, stop, err)
			return
		}
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				emitError(ctx, fragments, stop, err)
				return
			}

			// Check the signal before yielding the pending fragment.
			if stop.Stopped() {
				return
			}

			if len(response.Choices) == 0 {
				continue
			}
			content := response.Choices[0].Delta.Content
			if content == "" {
				continue
			}

			select {
			case fragments <- content:
			case <-ctx.Done():
				return
			}
		}
	}()

	return fragments
}

// emitError yields the synthetic error fragment unless cancellation is
// already in progress.
func emitError(ctx context.Context, fragments chan<- string, stop *StopSignal, err error) {
	if stop.Stopped() {
		return
	}
	select {
	case fragments <- "\n[ERROR] " + err.Error():
	case <-ctx.Done():
	}
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	converted := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		converted = append(converted, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	return converted
}
