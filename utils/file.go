package utils

import (
	"fmt"
	"os"
)

// ReadFileContent reads file content as string. This is the attachment
// ingestion collaborator: callers embed the returned text into a prompt.
func ReadFileContent(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(data), nil
}

// WriteFileContent writes text to a file verbatim, creating it if needed.
func WriteFileContent(filePath, content string) error {
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
