package session

import (
	"context"
	"fmt"
	"strings"

	"llm-app-lab/filter"
	"llm-app-lab/llm"
	"llm-app-lab/utils"
)

// Debate personas: A argues for the topic, B rebuts A.
const (
	personaA = "你是辩手A，你对给定的话题持赞成态度，请有力地陈述你的观点。"
	personaB = "你是辩手B，你对给定的话题持反对态度，请针对辩手A的观点进行反驳。"

	debateRounds = 3
)

// DebateSession runs a fixed three-round adversarial exchange between two
// personas, re-prompting each with the opponent's latest full response.
// Nothing is persisted; the presentation layer owns the transcript.
type DebateSession struct {
	client Streamer
	filter *filter.Filter
	logger *utils.Logger
}

// NewDebateSession wires a debate session from its collaborators.
func NewDebateSession(client Streamer, f *filter.Filter, logger *utils.Logger) *DebateSession {
	return &DebateSession{
		client: client,
		filter: f,
		logger: logger,
	}
}

// Run executes the debate. A flagged topic blocks the debate before any
// remote call. A flagged fragment from either speaker emits a notice, sets
// the stop signal and terminates the whole debate, not just the current
// turn. The only state carried between rounds is the topic and the two most
// recent full responses, threaded into the next prompt.
func (d *DebateSession) Run(ctx context.Context, topic string, attachments []Attachment, level llm.TemperatureLevel, stop *llm.StopSignal, sink DebateSink) (Outcome, error) {
	if topic == "" && len(attachments) == 0 {
		return OutcomeBlocked, ErrEmptySubmission
	}

	filteredTopic, flagged := d.filter.FilterText(topic)
	if flagged {
		return OutcomeBlocked, nil
	}
	fullTopic := filteredTopic + AttachmentSection(attachments)

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: personaA},
		{Role: llm.RoleUser, Content: fmt.Sprintf("辩论话题是: '%s'。请开始你的开篇陈词。", fullTopic)},
	}

	for round := 1; round <= debateRounds; round++ {
		if stop.Stopped() {
			break
		}

		sink.SpeakerStart(round, "A")
		responseA := d.speak(streamCtx, messages, level, stop, sink, "A")
		if stop.Stopped() {
			break
		}

		messages = []llm.Message{
			{Role: llm.RoleSystem, Content: personaB},
			{Role: llm.RoleUser, Content: fmt.Sprintf("话题是'%s'。刚刚辩手A说：'%s'。请你对此进行反驳。", fullTopic, responseA)},
		}

		sink.SpeakerStart(round, "B")
		responseB := d.speak(streamCtx, messages, level, stop, sink, "B")
		if stop.Stopped() {
			break
		}

		messages = []llm.Message{
			{Role: llm.RoleSystem, Content: personaA},
			{Role: llm.RoleUser, Content: fmt.Sprintf("继续关于'%s'的辩论。你的论点是'%s'。辩手B反驳道：'%s'。请你回应。", fullTopic, responseA, responseB)},
		}
	}

	if stop.Stopped() {
		return OutcomeCancelled, nil
	}
	return OutcomeCompleted, nil
}

// speak streams one persona's turn, filtering every fragment. On a flagged
// fragment the whole debate is cancelled via the shared stop signal.
func (d *DebateSession) speak(ctx context.Context, messages []llm.Message, level llm.TemperatureLevel, stop *llm.StopSignal, sink DebateSink, speaker string) string {
	var response strings.Builder
	for fragment := range d.client.StreamChat(ctx, messages, level.Temperature(), stop) {
		filteredFragment, flagged := d.filter.FilterText(fragment)
		response.WriteString(filteredFragment)
		sink.Fragment(filteredFragment)

		if flagged {
			sink.Notice(fmt.Sprintf("\n\n[系统提示] 辩手%s的发言包含敏感词，已终止辩论。\n", speaker))
			stop.Stop()
			break
		}
	}
	return response.String()
}
