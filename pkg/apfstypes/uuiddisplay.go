package apfstypes

import "github.com/google/uuid"

// String renders the raw on-disk UUID bytes in the conventional hyphenated
// form, for diagnostics and CLI output. The stored bytes are never
// reordered or reinterpreted; this is purely a display format.
func (u UUID) String() string {
	return uuid.UUID(u).String()
}
