package utils

import (
	"path/filepath"

	"github.com/google/uuid"
)

// GenerateUUID returns a random RFC 4122 v4 UUID string.
func GenerateUUID() string {
	return uuid.New().String()
}

// UniqueName returns "<prefix>_<uuid>".
func UniqueName(prefix string) string {
	return prefix + "_" + GenerateUUID()
}

// TempPath returns a hidden, uniquely named sibling of path
// (".<base>.<uuid>.tmp") for write-then-rename.
func TempPath(path string) string {
	return filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+GenerateUUID()+".tmp")
}
