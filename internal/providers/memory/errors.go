package memory

import "fmt"

// NotFoundError indicates an absent file or directory.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Path)
}

// NotAFileError indicates a file operation aimed at a directory.
type NotAFileError struct {
	Path string
}

func (e *NotAFileError) Error() string {
	return fmt.Sprintf("%s is a directory, not a file", e.Path)
}

// NotUniqueError indicates str_replace found the wrong number of matches.
// Count carries the literal occurrence count, including zero.
type NotUniqueError struct {
	Path  string
	Text  string
	Count int
}

func (e *NotUniqueError) Error() string {
	if e.Count == 0 {
		return fmt.Sprintf("Text not found in %s: %q", e.Path, e.Text)
	}
	return fmt.Sprintf("Text %q appears %d times in %s. Must be unique for replacement", e.Text, e.Count, e.Path)
}

// InvalidLineError indicates an insert_line outside the valid range.
type InvalidLineError struct {
	Line  int
	Count int
}

func (e *InvalidLineError) Error() string {
	return fmt.Sprintf("Invalid insert_line %d. Must be between 0 and %d", e.Line, e.Count)
}

// DestinationExistsError indicates a rename onto an existing path.
type DestinationExistsError struct {
	Path string
}

func (e *DestinationExistsError) Error() string {
	return fmt.Sprintf("destination %s already exists", e.Path)
}

// RootDeletionForbiddenError indicates an attempt to delete the namespace
// root itself.
type RootDeletionForbiddenError struct{}

func (e *RootDeletionForbiddenError) Error() string {
	return "the memory root directory cannot be deleted"
}
