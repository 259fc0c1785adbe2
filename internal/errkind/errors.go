package errkind

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks malformed operator input: conflicting rename/merge
	// actions, unknown groups, duplicate resulting labels.
	ErrValidation = errors.New("validation error")
	// ErrConflict marks two edit instructions that would produce the same
	// resulting entity set identity.
	ErrConflict = errors.New("conflict error")
	// ErrReferentialIntegrity marks a cross-file reference that would point at
	// a record missing after commit.
	ErrReferentialIntegrity = errors.New("referential integrity error")

	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks a missing input file, such as a catalog path that
	// does not exist.
	ErrNotFound  = errors.New("not found")
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes operation context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, phase, operation, message string, err error) error {
	detail := buildDetail(phase, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ExitCode maps an error to the process exit code the CLI reports:
// 2 for operator-input problems the edited summary can fix, 1 otherwise.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConflict), errors.Is(err, ErrReferentialIntegrity):
		return 2
	default:
		return 1
	}
}

func buildDetail(phase, operation, message string) string {
	parts := make([]string, 0, 3)
	if phase = strings.TrimSpace(phase); phase != "" {
		parts = append(parts, phase)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "curation failure"
	}
	return strings.Join(parts, ": ")
}
