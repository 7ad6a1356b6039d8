package memory

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"llm-app-lab/utils"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	logger, err := utils.NewLogger(filepath.Join(t.TempDir(), "test.log"))
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	t.Cleanup(func() { logger.Close() })

	store, err := NewStore(dir, logger)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store, dir
}

func reopen(t *testing.T, dir string) *Store {
	t.Helper()
	logger, err := utils.NewLogger(filepath.Join(t.TempDir(), "test.log"))
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	t.Cleanup(func() { logger.Close() })

	store, err := NewStore(dir, logger)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	return store
}

func TestAppendImplicitlyCreatesConversation(t *testing.T) {
	store, _ := newTestStore(t)

	store.Append("user", "hi")

	history := store.History("")
	if len(history) != 1 {
		t.Fatalf("expected one message, got %d", len(history))
	}
	if history[0].Role != "user" || history[0].Content != "hi" {
		t.Errorf("unexpected message: %+v", history[0])
	}
	if store.CurrentID() == "" {
		t.Error("append should have created a current conversation")
	}
}

func TestSaveReloadRoundTrip(t *testing.T) {
	store, dir := newTestStore(t)

	id := store.StartNew()
	store.Append("user", "问题一")
	store.Append("assistant", "回答一")
	if err := store.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	reloaded := reopen(t, dir)
	history := reloaded.History(id)
	if !reflect.DeepEqual(history, store.History(id)) {
		t.Errorf("reloaded history differs:\n%v\n%v", history, store.History(id))
	}
	if reloaded.CreatedAt(id) != store.CreatedAt(id) {
		t.Error("created_at not preserved")
	}
}

func TestSaveIsIdempotent(t *testing.T) {
	store, dir := newTestStore(t)

	id := store.StartNew()
	store.Append("user", "hi")
	if err := store.Save(); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	first, err := os.ReadFile(filepath.Join(dir, id+".json"))
	if err != nil {
		t.Fatalf("failed to read record: %v", err)
	}

	if err := store.Save(); err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	second, err := os.ReadFile(filepath.Join(dir, id+".json"))
	if err != nil {
		t.Fatalf("failed to read record: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Error("saving an unchanged conversation must produce a byte-identical record")
	}
}

func TestHistoryUnknownID(t *testing.T) {
	store, _ := newTestStore(t)

	if history := store.History("对话_19990101_000000"); len(history) != 0 {
		t.Errorf("unknown id should yield empty history, got %v", history)
	}
}

func TestListDescending(t *testing.T) {
	store, dir := newTestStore(t)

	for _, id := range []string{"对话_20240101_090000", "对话_20240301_090000", "对话_20240201_090000"} {
		record := `{"id": "` + id + `", "created_at": "20240101_090000", "messages": []}`
		if err := os.WriteFile(filepath.Join(dir, id+".json"), []byte(record), 0644); err != nil {
			t.Fatalf("failed to seed record: %v", err)
		}
	}
	store = reopen(t, dir)

	ids := store.List()
	if !sort.IsSorted(sort.Reverse(sort.StringSlice(ids))) {
		t.Errorf("list not descending: %v", ids)
	}
	if len(ids) != 3 || ids[0] != "对话_20240301_090000" {
		t.Errorf("most recent conversation should come first: %v", ids)
	}
}

func TestDelete(t *testing.T) {
	store, dir := newTestStore(t)

	id := store.StartNew()
	store.Append("user", "hi")
	if err := store.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if !store.Delete(id) {
		t.Fatal("delete of existing conversation should return true")
	}
	if store.Delete(id) {
		t.Error("second delete should return false")
	}
	if _, err := os.Stat(filepath.Join(dir, id+".json")); !os.IsNotExist(err) {
		t.Error("record file should be gone")
	}
	if len(store.List()) != 0 {
		t.Errorf("conversation still listed after delete: %v", store.List())
	}
}

func TestSetCurrentSwitchesSession(t *testing.T) {
	store, _ := newTestStore(t)

	first := store.StartNew()
	store.Append("user", "first")
	if err := store.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	store.StartNew()
	if !store.SetCurrent(first) {
		t.Fatal("switching to a persisted conversation should succeed")
	}
	if store.CurrentID() != first {
		t.Errorf("current should be %s, got %s", first, store.CurrentID())
	}
	if store.SetCurrent("对话_19990101_000000") {
		t.Error("switching to an unknown id should fail")
	}
}

func TestCorruptRecordSkipped(t *testing.T) {
	store, dir := newTestStore(t)

	id := store.StartNew()
	store.Append("user", "hi")
	if err := store.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{oops"), 0644); err != nil {
		t.Fatalf("failed to write corrupt record: %v", err)
	}

	reloaded := reopen(t, dir)
	if !reflect.DeepEqual(reloaded.List(), []string{id}) {
		t.Errorf("expected only the valid record, got %v", reloaded.List())
	}
}

func TestExportMarkdown(t *testing.T) {
	store, _ := newTestStore(t)

	id := store.StartNew()
	store.Append("user", "什么是Go？")
	store.Append("assistant", "一门编程语言。")
	if err := store.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "export.md")
	if err := store.ExportMarkdown(id, dest); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "# Conversation Record: "+id) {
		t.Error("export missing conversation heading")
	}
	if !strings.Contains(text, "## user (") || !strings.Contains(text, "## assistant (") {
		t.Error("export missing message sections")
	}
	if !strings.Contains(text, "什么是Go？") || !strings.Contains(text, "一门编程语言。") {
		t.Error("export missing message content")
	}

	if err := store.ExportMarkdown("对话_19990101_000000", dest); err == nil {
		t.Error("export of unknown conversation should fail")
	}
}
