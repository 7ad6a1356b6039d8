// Package session orchestrates the three interaction modes: single-turn chat
// with memory, the two-agent debate, and prompt-engineered code generation.
// Sessions run on a background worker goroutine and publish state to the
// presentation layer through sinks.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"llm-app-lab/llm"
)

// Streamer is the streaming completion contract consumed by sessions.
// *llm.Client satisfies it; tests substitute fakes.
type Streamer interface {
	StreamChat(ctx context.Context, messages []llm.Message, temperature float32, stop *llm.StopSignal) <-chan string
}

// Sink receives state updates from a running session, in order: filtered
// fragments as they arrive and fixed notices on content-policy events.
// Implementations are called from the worker goroutine.
type Sink interface {
	Fragment(text string)
	Notice(text string)
}

// DebateSink additionally observes turn boundaries of the debate.
type DebateSink interface {
	Sink
	SpeakerStart(round int, speaker string)
}

// Outcome is the terminal state of one session run.
type Outcome int

const (
	// OutcomeCompleted: the stream finished normally.
	OutcomeCompleted Outcome = iota
	// OutcomeBlocked: the submission was rejected by the filter before any
	// remote call was made.
	OutcomeBlocked
	// OutcomeCancelled: the stream was stopped, either by the user or by a
	// flagged fragment.
	OutcomeCancelled
)

// ErrEmptySubmission rejects a run with neither text nor attachments.
var ErrEmptySubmission = errors.New("empty submission: enter text or add an attachment")

// Fixed user-visible strings.
const (
	// BlockedReply is persisted as the assistant's reply to a blocked turn.
	BlockedReply = "抱歉，因包含敏感词无法回答。"

	chatNotice    = "\n\n[系统提示] 部分内容包含敏感词，已终止输出。\n"
	codeGenNotice = "\n\n[系统提示] 生成的代码包含敏感词，已终止输出。\n"
)

// Attachment is transient text extracted from a file, held only while one
// outgoing message is composed.
type Attachment struct {
	Filename string
	Path     string
	Content  string
}

// attachmentContentCap limits how much of each attachment is embedded into
// the outgoing prompt.
const attachmentContentCap = 2000

// AttachmentSection renders the numbered attachment headings appended to an
// outgoing message. Attachment text is embedded as-is (it does not pass
// through the sensitive-word filter) and truncated with an ellipsis marker.
func AttachmentSection(attachments []Attachment) string {
	if len(attachments) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\n参考以下附件内容:\n")
	for i, att := range attachments {
		content := att.Content
		if utf8.RuneCountInString(content) > attachmentContentCap {
			content = string([]rune(content)[:attachmentContentCap]) + "..."
		}
		fmt.Fprintf(&b, "\n附件 %d: 文件 '%s' 的内容:\n%s\n", i+1, att.Filename, content)
	}
	return b.String()
}
