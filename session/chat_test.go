package session

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"llm-app-lab/filter"
	"llm-app-lab/llm"
	"llm-app-lab/memory"
	"llm-app-lab/utils"
)

// fakeStreamer replays scripted fragments and records every prompt it was
// given, honouring the stop-before-yield contract of the real client.
type fakeStreamer struct {
	scripts [][]string
	calls   [][]llm.Message
}

func (f *fakeStreamer) StreamChat(ctx context.Context, messages []llm.Message, temperature float32, stop *llm.StopSignal) <-chan string {
	f.calls = append(f.calls, messages)
	script := []string{}
	if len(f.scripts) > 0 {
		script = f.scripts[0]
		f.scripts = f.scripts[1:]
	}

	fragments := make(chan string)
	go func() {
		defer close(fragments)
		for _, fragment := range script {
			if stop.Stopped() {
				return
			}
			select {
			case fragments <- fragment:
			case <-ctx.Done():
				return
			}
		}
	}()
	return fragments
}

// recordingSink collects everything a session publishes.
type recordingSink struct {
	fragments []string
	notices   []string
	turns     []string
}

func (r *recordingSink) Fragment(text string) { r.fragments = append(r.fragments, text) }
func (r *recordingSink) Notice(text string)   { r.notices = append(r.notices, text) }
func (r *recordingSink) SpeakerStart(round int, speaker string) {
	r.turns = append(r.turns, speaker)
}

func newTestLogger(t *testing.T) *utils.Logger {
	t.Helper()
	logger, err := utils.NewLogger(filepath.Join(t.TempDir(), "test.log"))
	if err != nil {
		t.Fatalf("NewLogger() error: %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	return logger
}

func newTestFilter(t *testing.T, logger *utils.Logger) *filter.Filter {
	t.Helper()
	return filter.New(filepath.Join(t.TempDir(), "words.json"), logger)
}

func newChatFixture(t *testing.T, scripts [][]string) (*ChatSession, *memory.Store, *fakeStreamer) {
	t.Helper()
	logger := newTestLogger(t)
	store, err := memory.NewStore(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	streamer := &fakeStreamer{scripts: scripts}
	session := NewChatSession(store, streamer, newTestFilter(t, logger), logger)
	return session, store, streamer
}

func TestChatRunCompletedPersistsTurn(t *testing.T) {
	session, store, streamer := newChatFixture(t, [][]string{{"你好", "，世界"}})
	sink := &recordingSink{}

	outcome, err := session.Run(context.Background(), "打个招呼", nil, llm.LevelMedium, llm.NewStopSignal(), sink)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if outcome != OutcomeCompleted {
		t.Fatalf("outcome = %v, want OutcomeCompleted", outcome)
	}

	history := store.History("")
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[1].Role != llm.RoleAssistant || history[1].Content != "你好，世界" {
		t.Errorf("assistant message = %q %q", history[1].Role, history[1].Content)
	}
	if got := strings.Join(sink.fragments, ""); got != "你好，世界" {
		t.Errorf("streamed text = %q, want %q", got, "你好，世界")
	}

	// The prompt must carry the full history including the new question.
	if len(streamer.calls) != 1 {
		t.Fatalf("StreamChat calls = %d, want 1", len(streamer.calls))
	}
	prompt := streamer.calls[0]
	if prompt[len(prompt)-1].Content != "打个招呼" {
		t.Errorf("last prompt message = %q", prompt[len(prompt)-1].Content)
	}
}

func TestChatRunBlockedQuestionPersistsRefusal(t *testing.T) {
	session, store, streamer := newChatFixture(t, nil)

	outcome, err := session.Run(context.Background(), "介绍一下毒品", nil, llm.LevelMedium, llm.NewStopSignal(), &recordingSink{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if outcome != OutcomeBlocked {
		t.Fatalf("outcome = %v, want OutcomeBlocked", outcome)
	}
	if len(streamer.calls) != 0 {
		t.Errorf("blocked turn made %d remote calls", len(streamer.calls))
	}

	history := store.History("")
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Content != "介绍一下**" {
		t.Errorf("persisted question = %q, want masked form", history[0].Content)
	}
	if history[1].Content != BlockedReply {
		t.Errorf("persisted reply = %q, want %q", history[1].Content, BlockedReply)
	}
}

func TestChatRunFlaggedFragmentCancelsWithoutPersisting(t *testing.T) {
	session, store, _ := newChatFixture(t, [][]string{{"第一段", "这里提到毒品", "不该到达"}})
	sink := &recordingSink{}
	stop := llm.NewStopSignal()

	outcome, err := session.Run(context.Background(), "随便聊聊", nil, llm.LevelMedium, stop, sink)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if outcome != OutcomeCancelled {
		t.Fatalf("outcome = %v, want OutcomeCancelled", outcome)
	}
	if !stop.Stopped() {
		t.Error("stop signal not set after flagged fragment")
	}
	if len(sink.notices) != 1 || sink.notices[0] != chatNotice {
		t.Errorf("notices = %v", sink.notices)
	}
	if got := strings.Join(sink.fragments, ""); got != "第一段这里提到**" {
		t.Errorf("streamed text = %q", got)
	}

	// Only the question is persisted, never the partial answer.
	history := store.History("")
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}
}

func TestChatRunUserStopDiscardsPartialAnswer(t *testing.T) {
	session, store, _ := newChatFixture(t, [][]string{{"partial"}})
	stop := llm.NewStopSignal()
	sink := &recordingSink{}

	// Simulate the user pressing stop before the stream drains.
	stop.Stop()
	outcome, err := session.Run(context.Background(), "hello", nil, llm.LevelLow, stop, sink)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if outcome != OutcomeCancelled {
		t.Fatalf("outcome = %v, want OutcomeCancelled", outcome)
	}
	if len(store.History("")) != 1 {
		t.Errorf("history length = %d, want only the question", len(store.History("")))
	}
}

func TestChatRunEmptySubmission(t *testing.T) {
	session, _, streamer := newChatFixture(t, nil)

	_, err := session.Run(context.Background(), "", nil, llm.LevelMedium, llm.NewStopSignal(), &recordingSink{})
	if err != ErrEmptySubmission {
		t.Fatalf("err = %v, want ErrEmptySubmission", err)
	}
	if len(streamer.calls) != 0 {
		t.Errorf("empty submission made %d remote calls", len(streamer.calls))
	}
}

func TestAttachmentSectionTruncatesLongContent(t *testing.T) {
	long := strings.Repeat("长", 2500)
	section := AttachmentSection([]Attachment{{Filename: "notes.txt", Content: long}})

	if !strings.Contains(section, "参考以下附件内容") {
		t.Fatalf("section missing heading: %q", section[:50])
	}
	if !strings.Contains(section, "附件 1: 文件 'notes.txt' 的内容:") {
		t.Error("section missing attachment heading")
	}
	if !strings.Contains(section, strings.Repeat("长", 2000)+"...") {
		t.Error("content not truncated at the cap")
	}
	if strings.Contains(section, strings.Repeat("长", 2001)) {
		t.Error("content exceeds the cap")
	}
}

func TestAttachmentSectionEmpty(t *testing.T) {
	if got := AttachmentSection(nil); got != "" {
		t.Errorf("AttachmentSection(nil) = %q, want empty", got)
	}
}
