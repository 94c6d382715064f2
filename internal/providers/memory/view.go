package memory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/GriffinCanCode/memstore/internal/lock"
)

// view lists a directory or returns file content with 1-based line numbers.
func (p *Provider) view(ctx context.Context, params map[string]interface{}) (string, error) {
	physical, virtual, err := p.resolve(params, "path")
	if err != nil {
		return "", err
	}

	startLine, hasStart := intParam(params, "start_line")
	endLine, hasEnd := intParam(params, "end_line")

	var out string
	err = p.coord.WithCoordination(physical, lock.ModeRead, func() error {
		info, statErr := os.Stat(physical)
		if statErr != nil {
			return &NotFoundError{Path: virtual}
		}

		if info.IsDir() {
			out, statErr = listDirectory(physical, virtual)
			return statErr
		}

		content, readErr := os.ReadFile(physical)
		if readErr != nil {
			return fmt.Errorf("failed to read %s: %w", virtual, readErr)
		}

		if !hasStart {
			startLine = 1
		}
		if !hasEnd {
			endLine = -1
		}
		out, statErr = numberLines(string(content), virtual, startLine, endLine)
		return statErr
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// listDirectory renders immediate children, one per line, directories
// suffixed with a separator. Hidden entries (dotfiles, including lock
// markers) are excluded.
func listDirectory(physical, virtual string) (string, error) {
	entries, err := os.ReadDir(physical)
	if err != nil {
		return "", fmt.Errorf("failed to list %s: %w", virtual, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "Directory: %s\n", virtual)
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// numberLines renders content with 1-based line numbers, optionally sliced
// to [start, end] where end == -1 means through end of file.
func numberLines(content, virtual string, start, end int) (string, error) {
	lines := strings.Split(content, "\n")

	if start < 1 || start > len(lines) {
		return "", fmt.Errorf("Invalid start_line %d for %s. Must be between 1 and %d", start, virtual, len(lines))
	}
	if end == -1 || end > len(lines) {
		end = len(lines)
	}
	if end < start {
		return "", fmt.Errorf("Invalid end_line %d for %s. Must be -1 or at least start_line %d", end, virtual, start)
	}

	var b strings.Builder
	for i := start; i <= end; i++ {
		fmt.Fprintf(&b, "%d: %s", i, lines[i-1])
		if i < end {
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}
