package memory

import (
	"fmt"
	"os"
	"strings"
)

// ExportMarkdown writes a human-readable transcript of a persisted
// conversation: a heading with the id, the creation time, then one section
// per message. Fails for unknown ids and on write failure.
func (s *Store) ExportMarkdown(conversationID, destinationPath string) error {
	s.mu.Lock()
	conv, ok := s.conversations[conversationID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown conversation: %s", conversationID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Conversation Record: %s\n\n", conv.ID)
	fmt.Fprintf(&b, "**Created**: %s\n\n", conv.CreatedAt)
	for _, msg := range conv.Messages {
		fmt.Fprintf(&b, "## %s (%s)\n\n", msg.Role, msg.Timestamp)
		fmt.Fprintf(&b, "%s\n\n", msg.Content)
	}

	if err := os.WriteFile(destinationPath, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write markdown export: %w", err)
	}
	return nil
}
