// Package filter implements the sensitive-word filter applied to user input
// and to streamed model output.
package filter

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"llm-app-lab/utils"
)

// DefaultWords is the seed word set used when no store exists or the store
// cannot be read.
var DefaultWords = []string{"色情", "毒品", "傻逼"}

// Filter owns the mutable sensitive-word set. Streaming workers call
// FilterText concurrently while the foreground thread may add or remove
// words, so access is guarded by a read-write mutex.
type Filter struct {
	path   string
	logger *utils.Logger

	mu    sync.RWMutex
	words []string
}

// New loads the word set from path. A missing or corrupt store falls back to
// the default seed list; that failure is logged and never surfaced.
func New(path string, logger *utils.Logger) *Filter {
	f := &Filter{path: path, logger: logger}
	f.words = f.loadWords()
	return f
}

func (f *Filter) loadWords() []string {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			f.logger.Warn("Failed to read sensitive word store %s: %v", f.path, err)
		}
		return append([]string{}, DefaultWords...)
	}

	var words []string
	if err := json.Unmarshal(data, &words); err != nil {
		f.logger.Warn("Corrupt sensitive word store %s: %v", f.path, err)
		return append([]string{}, DefaultWords...)
	}
	return words
}

// saveWords flushes the current set to disk. Callers hold the write lock.
// Failures are logged, not returned: losing a persist never aborts the
// user's action.
func (f *Filter) saveWords() {
	data, err := json.MarshalIndent(f.words, "", "  ")
	if err != nil {
		f.logger.Error("Failed to marshal sensitive words: %v", err)
		return
	}
	if err := os.WriteFile(f.path, data, 0644); err != nil {
		f.logger.Error("Failed to save sensitive word store %s: %v", f.path, err)
	}
}

// FilterText replaces every occurrence of every stored word with a run of
// asterisks of equal length and reports whether anything matched.
//
// Words are applied in stored order against the progressively redacted text.
// A later word that only matches inside an already-redacted span no longer
// matches; that is accepted policy, not a defect.
func (f *Filter) FilterText(text string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	contains := false
	filtered := text
	for _, word := range f.words {
		if word == "" || !strings.Contains(filtered, word) {
			continue
		}
		contains = true
		filtered = strings.ReplaceAll(filtered, word, strings.Repeat("*", utf8.RuneCountInString(word)))
	}
	return filtered, contains
}

// AddWord adds a word to the set and persists it. Returns false for an empty
// word or one that is already present.
func (f *Filter) AddWord(word string) bool {
	if word == "" {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.words {
		if existing == word {
			return false
		}
	}
	f.words = append(f.words, word)
	f.saveWords()
	return true
}

// RemoveWord removes a word from the set and persists it. Returns false if
// the word is absent.
func (f *Filter) RemoveWord(word string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, existing := range f.words {
		if existing == word {
			f.words = append(f.words[:i], f.words[i+1:]...)
			f.saveWords()
			return true
		}
	}
	return false
}

// Words returns a copy of the current word set in stored order.
func (f *Filter) Words() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string{}, f.words...)
}

// ImportFrom reads words from a JSON array file or a newline-delimited text
// file and adds them to the set. Returns how many were actually added.
func (f *Filter) ImportFrom(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read word file: %w", err)
	}

	var words []string
	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(data, &words); err != nil {
			return 0, fmt.Errorf("failed to parse word file: %w", err)
		}
	} else {
		for _, line := range strings.Split(string(data), "\n") {
			if word := strings.TrimSpace(line); word != "" {
				words = append(words, word)
			}
		}
	}

	added := 0
	for _, word := range words {
		if f.AddWord(word) {
			added++
		}
	}
	return added, nil
}

// ExportTo writes the word set to a JSON array file, or to newline-delimited
// plain text when the path does not end in .json.
func (f *Filter) ExportTo(path string) error {
	words := f.Words()

	var data []byte
	if strings.HasSuffix(path, ".json") {
		var err error
		data, err = json.MarshalIndent(words, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal words: %w", err)
		}
	} else {
		data = []byte(strings.Join(words, "\n"))
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to export words: %w", err)
	}
	return nil
}
