package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/GriffinCanCode/memstore/internal/lock"
)

// create writes a file verbatim, creating parent directories as needed.
// Existing files are overwritten; empty content is valid.
func (p *Provider) create(ctx context.Context, params map[string]interface{}) (string, error) {
	physical, virtual, err := p.resolve(params, "path")
	if err != nil {
		return "", err
	}
	fileText, err := stringParam(params, "file_text")
	if err != nil {
		return "", err
	}

	err = p.coord.WithCoordination(physical, lock.ModeWrite, func() error {
		if mkErr := os.MkdirAll(filepath.Dir(physical), 0o755); mkErr != nil {
			return fmt.Errorf("failed to create parent directories for %s: %w", virtual, mkErr)
		}
		if wrErr := os.WriteFile(physical, []byte(fileText), 0o644); wrErr != nil {
			return fmt.Errorf("failed to write %s: %w", virtual, wrErr)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("File created successfully at %s", virtual), nil
}

// strReplace replaces old_str with new_str, requiring exactly one match.
func (p *Provider) strReplace(ctx context.Context, params map[string]interface{}) (string, error) {
	physical, virtual, err := p.resolve(params, "path")
	if err != nil {
		return "", err
	}
	oldStr, err := stringParam(params, "old_str")
	if err != nil {
		return "", err
	}
	newStr, err := stringParam(params, "new_str")
	if err != nil {
		return "", err
	}

	err = p.coord.WithCoordination(physical, lock.ModeWrite, func() error {
		info, statErr := os.Stat(physical)
		if statErr != nil {
			return &NotFoundError{Path: virtual}
		}
		if info.IsDir() {
			return &NotAFileError{Path: virtual}
		}

		content, readErr := os.ReadFile(physical)
		if readErr != nil {
			return fmt.Errorf("failed to read %s: %w", virtual, readErr)
		}

		count := strings.Count(string(content), oldStr)
		if count != 1 {
			return &NotUniqueError{Path: virtual, Text: oldStr, Count: count}
		}

		replaced := strings.Replace(string(content), oldStr, newStr, 1)
		if wrErr := os.WriteFile(physical, []byte(replaced), info.Mode().Perm()); wrErr != nil {
			return fmt.Errorf("failed to write %s: %w", virtual, wrErr)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("File %s has been edited", virtual), nil
}

// insert splits the file into lines and inserts insert_text as a new line
// at 0-based position insert_line; 0 prepends, lineCount appends.
func (p *Provider) insert(ctx context.Context, params map[string]interface{}) (string, error) {
	physical, virtual, err := p.resolve(params, "path")
	if err != nil {
		return "", err
	}
	insertLine, ok := intParam(params, "insert_line")
	if !ok {
		return "", fmt.Errorf("insert_line parameter required")
	}
	insertText, err := stringParam(params, "insert_text")
	if err != nil {
		return "", err
	}

	err = p.coord.WithCoordination(physical, lock.ModeWrite, func() error {
		info, statErr := os.Stat(physical)
		if statErr != nil {
			return &NotFoundError{Path: virtual}
		}
		if info.IsDir() {
			return &NotAFileError{Path: virtual}
		}

		content, readErr := os.ReadFile(physical)
		if readErr != nil {
			return fmt.Errorf("failed to read %s: %w", virtual, readErr)
		}

		lines := strings.Split(string(content), "\n")
		if insertLine < 0 || insertLine > len(lines) {
			return &InvalidLineError{Line: insertLine, Count: len(lines)}
		}

		updated := make([]string, 0, len(lines)+1)
		updated = append(updated, lines[:insertLine]...)
		updated = append(updated, insertText)
		updated = append(updated, lines[insertLine:]...)

		joined := strings.Join(updated, "\n")
		if wrErr := os.WriteFile(physical, []byte(joined), info.Mode().Perm()); wrErr != nil {
			return fmt.Errorf("failed to write %s: %w", virtual, wrErr)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Text inserted at line %d in %s", insertLine, virtual), nil
}
