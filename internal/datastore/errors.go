package datastore

import (
	"fmt"
	"strings"
)

// NotFoundError reports that discovery found no running container matching
// the hint. Discovery failures are terminal: the container is either there
// or it is not, so they are never retried.
type NotFoundError struct {
	Hint    string
	Running int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no running container matches %q (%d running)", e.Hint, e.Running)
}

// AmbiguousError reports that the hint matched more than one running
// container, so there is no single datastore to read.
type AmbiguousError struct {
	Hint  string
	Names []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("hint %q matches %d containers: %s",
		e.Hint, len(e.Names), strings.Join(e.Names, ", "))
}

// FieldNotFoundError reports that no extraction strategy produced a value
// for the requested field.
type FieldNotFoundError struct {
	Field string
}

func (e *FieldNotFoundError) Error() string {
	return fmt.Sprintf("field %q not found in datastore document", e.Field)
}
