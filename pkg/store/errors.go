package store

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidNamespace is returned for identifiers outside the allowed pattern.
	ErrInvalidNamespace = errors.New("invalid namespace")

	// ErrNamespaceExists is returned when creating a namespace that already has a database file.
	ErrNamespaceExists = errors.New("namespace already exists")

	// ErrNamespaceNotFound is returned when opening a namespace with no database file.
	ErrNamespaceNotFound = errors.New("namespace not found")

	// ErrActorNotFound is returned for lookups of unknown or eliminated actors.
	ErrActorNotFound = errors.New("actor not found")
)

// SchemaVersionError is fatal: the database was written by a different
// schema revision and must not be touched without manual intervention.
type SchemaVersionError struct {
	Namespace string
	Expected  int
	Got       int
}

func (e *SchemaVersionError) Error() string {
	return fmt.Sprintf("schema version mismatch for %s: expected %d, got %d", e.Namespace, e.Expected, e.Got)
}
