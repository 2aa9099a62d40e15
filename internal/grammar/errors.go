package grammar

import (
	"errors"
	"fmt"
)

// ErrUnknownLanguage is returned when no plugin, built-in or discovered,
// handles the requested language or extension.
var ErrUnknownLanguage = errors.New("unknown language")

// LoadError reports a grammar artifact that could not be turned into a
// usable plugin: the file cannot be opened, the expected symbol is missing,
// the ABI validation failed, or its declared language id collides with an
// already-registered grammar. A LoadError is fatal for its language but not
// for the rest of the batch.
type LoadError struct {
	Language string
	Path     string
	Err      error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("grammar %q: %v", e.Language, e.Err)
	}
	return fmt.Sprintf("grammar %q (%s): %v", e.Language, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
