package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// namespacePattern is the allowed shape of a namespace identifier. The
// namespace doubles as a filename stem, so the first character may not be
// a separator or dot.
var namespacePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,63}$`)

// ValidateNamespace checks a namespace identifier.
func ValidateNamespace(namespace string) error {
	if !namespacePattern.MatchString(namespace) {
		return fmt.Errorf("%w: invalid namespace '%s', must match pattern ^[a-zA-Z0-9][a-zA-Z0-9_-]{0,63}$",
			ErrInvalidNamespace, namespace)
	}
	return nil
}

// DBPath returns the database file path for a namespace under dataDir.
// It does not create the file.
func DBPath(dataDir, namespace string) (string, error) {
	if err := ValidateNamespace(namespace); err != nil {
		return "", err
	}
	return filepath.Join(dataDir, namespace+".db"), nil
}

// RemoveNamespace deletes a namespace's database file along with the
// -wal/-shm sidecars WAL mode leaves behind. Missing files are not an
// error; the caller must hold no open handle on the database.
func RemoveNamespace(dataDir, namespace string) error {
	dbPath, err := DBPath(dataDir, namespace)
	if err != nil {
		return err
	}
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
