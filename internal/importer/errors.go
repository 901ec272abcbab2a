package importer

import (
	"fmt"
	"strings"
)

// ValidationError reports a single problem with a field of an import or a row.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationErrors collects every problem found during a validation pass so
// the caller can redisplay all of them at once. It is returned, never
// propagated past the validation boundary as a raised failure.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return strings.Join(msgs, "; ")
}

// Any reports whether at least one error was collected.
func (e ValidationErrors) Any() bool { return len(e) > 0 }

// On returns the messages recorded against the given field.
func (e ValidationErrors) On(field string) []string {
	var msgs []string
	for _, ve := range e {
		if ve.Field == field {
			msgs = append(msgs, ve.Message)
		}
	}
	return msgs
}
