// Package memory implements the multi-conversation store: append-only
// message logs persisted as one JSON file per conversation.
package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"llm-app-lab/utils"
)

// Indexer receives saved messages for secondary indexing (full-text search).
// The index is derived data: indexing failures are logged, never fatal.
type Indexer interface {
	IndexMessage(conversationID, role, content, timestamp string) error
	RemoveConversation(conversationID string) error
}

// Store owns the on-disk conversation records and the in-memory index of
// them. The current conversation receives appends; it is persisted on Save,
// which callers invoke at the end of every completed turn.
type Store struct {
	dir    string
	logger *utils.Logger

	mu            sync.Mutex
	current       *Conversation
	conversations map[string]*Conversation
	indexer       Indexer
	indexed       map[string]int // messages already fed to the indexer, per id
}

// NewStore opens the storage directory and loads every persisted
// conversation. Corrupt records are logged and skipped.
func NewStore(dir string, logger *utils.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create conversation directory: %w", err)
	}

	s := &Store{
		dir:           dir,
		logger:        logger,
		conversations: make(map[string]*Conversation),
		indexed:       make(map[string]int),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan conversation directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("Failed to read conversation record %s: %v", path, err)
			continue
		}
		var conv Conversation
		if err := json.Unmarshal(data, &conv); err != nil {
			logger.Warn("Skipping corrupt conversation record %s: %v", path, err)
			continue
		}
		if conv.ID == "" {
			conv.ID = strings.TrimSuffix(entry.Name(), ".json")
		}
		s.conversations[conv.ID] = &conv
	}

	return s, nil
}

// StartNew creates an empty conversation with a time-derived id and makes it
// current. Nothing is persisted until the first Save.
func (s *Store) StartNew() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startNewLocked()
}

func (s *Store) startNewLocked() string {
	stamp := time.Now().Format(IDTimeLayout)
	s.current = &Conversation{
		ID:        "对话_" + stamp,
		CreatedAt: stamp,
		Messages:  []Message{},
	}
	return s.current.ID
}

// Append adds a message with the current timestamp to the current
// conversation, creating a new conversation first if none is active.
func (s *Store) Append(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		s.startNewLocked()
	}
	s.current.Messages = append(s.current.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().Format(MessageTimeLayout),
	})
}

// Save serializes the current conversation to its JSON record, overwriting
// any prior record with the same id. Saving with no active conversation is a
// no-op. Newly saved messages are fed to the indexer, when one is attached.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil
	}

	data, err := json.MarshalIndent(s.current, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	path := filepath.Join(s.dir, s.current.ID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write conversation record: %w", err)
	}
	s.conversations[s.current.ID] = s.current

	if s.indexer != nil {
		start := s.indexed[s.current.ID]
		for _, msg := range s.current.Messages[start:] {
			if err := s.indexer.IndexMessage(s.current.ID, msg.Role, msg.Content, msg.Timestamp); err != nil {
				s.logger.Warn("Failed to index message for %s: %v", s.current.ID, err)
			}
		}
		s.indexed[s.current.ID] = len(s.current.Messages)
	}

	return nil
}

// History returns the ordered message sequence for the given conversation,
// or for the current one when conversationID is empty. Unknown ids yield an
// empty sequence.
func (s *Store) History(conversationID string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	var conv *Conversation
	if conversationID == "" {
		conv = s.current
	} else {
		conv = s.conversations[conversationID]
	}
	if conv == nil {
		return nil
	}
	return append([]Message{}, conv.Messages...)
}

// List returns all persisted conversation ids, most recent first. Ids are
// time-derived, so lexicographic descending order is chronological.
func (s *Store) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.conversations))
	for id := range s.conversations {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids
}

// CurrentID returns the id of the active conversation, or "" if none.
func (s *Store) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return ""
	}
	return s.current.ID
}

// SetCurrent switches the active conversation to a persisted one. Returns
// false for an unknown id.
func (s *Store) SetCurrent(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return false
	}
	s.current = conv
	return true
}

// CreatedAt returns the creation stamp of a persisted conversation.
func (s *Store) CreatedAt(conversationID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv, ok := s.conversations[conversationID]; ok {
		return conv.CreatedAt
	}
	return ""
}

// Delete removes the on-disk record and the in-memory entry. Returns whether
// the conversation existed. Best effort: the file is removed first, so a
// crash in between leaves at most an orphan file.
func (s *Store) Delete(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return false
	}

	path := filepath.Join(s.dir, conversationID+".json")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("Failed to remove conversation record %s: %v", path, err)
	}
	delete(s.conversations, conversationID)
	delete(s.indexed, conversationID)

	if s.current != nil && s.current.ID == conversationID {
		s.current = nil
	}
	if s.indexer != nil {
		if err := s.indexer.RemoveConversation(conversationID); err != nil {
			s.logger.Warn("Failed to remove %s from index: %v", conversationID, err)
		}
	}
	return true
}

// All returns every persisted conversation, for index rebuilds.
func (s *Store) All() []*Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversations := make([]*Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		conversations = append(conversations, conv)
	}
	return conversations
}

// SetIndexer attaches a secondary index. Already-persisted messages are
// assumed indexed; rebuild the index from All() before attaching.
func (s *Store) SetIndexer(indexer Indexer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.indexer = indexer
	for id, conv := range s.conversations {
		s.indexed[id] = len(conv.Messages)
	}
}
