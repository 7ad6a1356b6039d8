package session

import (
	"context"
	"strings"

	"llm-app-lab/filter"
	"llm-app-lab/llm"
	"llm-app-lab/memory"
	"llm-app-lab/utils"
)

// ChatSession orchestrates one chat turn: filter the input, persist it,
// stream the model output through the filter, persist or abort.
type ChatSession struct {
	store  *memory.Store
	client Streamer
	filter *filter.Filter
	logger *utils.Logger
}

// NewChatSession wires a chat session from its collaborators.
func NewChatSession(store *memory.Store, client Streamer, f *filter.Filter, logger *utils.Logger) *ChatSession {
	return &ChatSession{
		store:  store,
		client: client,
		filter: f,
		logger: logger,
	}
}

// Run executes a single turn against the current conversation.
//
// A flagged question is persisted together with the fixed refusal and no
// remote call is made. Otherwise the (filtered, attachment-augmented)
// question is appended and the full history is streamed to the model; each
// fragment is filtered and forwarded to the sink. A flagged fragment emits a
// notice, sets the stop signal and cancels the turn. Cancelled turns never
// persist the partial assistant message; completed turns persist and save.
//
// The stop signal must be fresh for this run; setting it is the only way to
// cancel from outside.
func (s *ChatSession) Run(ctx context.Context, question string, attachments []Attachment, level llm.TemperatureLevel, stop *llm.StopSignal, sink Sink) (Outcome, error) {
	if question == "" && len(attachments) == 0 {
		return OutcomeBlocked, ErrEmptySubmission
	}

	filteredQuestion, flagged := s.filter.FilterText(question)
	if flagged {
		s.store.Append(llm.RoleUser, filteredQuestion)
		s.store.Append(llm.RoleAssistant, BlockedReply)
		if err := s.store.Save(); err != nil {
			s.logger.Error("Failed to save blocked turn: %v", err)
		}
		return OutcomeBlocked, nil
	}

	fullQuestion := filteredQuestion + AttachmentSection(attachments)
	s.store.Append(llm.RoleUser, fullQuestion)

	// The derived context releases the producer goroutine if we stop
	// consuming mid-stream.
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var response strings.Builder
	for fragment := range s.client.StreamChat(streamCtx, historyMessages(s.store.History("")), level.Temperature(), stop) {
		filteredFragment, fragmentFlagged := s.filter.FilterText(fragment)
		response.WriteString(filteredFragment)
		sink.Fragment(filteredFragment)

		if fragmentFlagged {
			sink.Notice(chatNotice)
			stop.Stop()
			break
		}
	}

	if stop.Stopped() {
		// Partial or flagged output is shown but never recorded as a
		// clean turn.
		return OutcomeCancelled, nil
	}

	s.store.Append(llm.RoleAssistant, response.String())
	if err := s.store.Save(); err != nil {
		s.logger.Error("Failed to save conversation: %v", err)
	}
	return OutcomeCompleted, nil
}

// historyMessages converts the stored message log into the prompt context.
func historyMessages(history []memory.Message) []llm.Message {
	messages := make([]llm.Message, 0, len(history))
	for _, msg := range history {
		messages = append(messages, llm.Message{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	return messages
}
