// internal/nvm/open.go
package nvm

import "fmt"

// Backend names accepted by Open.
const (
	BackendRAM    = "ram"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open builds a Memory for the named backend.
func Open(backend, path string, size int) (Memory, error) {
	switch backend {
	case BackendRAM:
		return NewRAM(size), nil
	case BackendFile:
		return OpenFile(path, size)
	case BackendSQLite:
		return OpenSQLite(path, size)
	default:
		return nil, fmt.Errorf("nvm: unknown backend %q", backend)
	}
}
