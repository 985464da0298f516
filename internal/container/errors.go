package container

import (
	"fmt"
	"slices"
	"strings"
)

// InitializationError is returned by Validate when Build left services unset.
// Missing holds the service names in wiring order.
type InitializationError struct {
	Missing []string
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("vlogbook container not ready, missing %s", strings.Join(e.Missing, ", "))
}

// Lacks reports whether the named service was not wired
func (e *InitializationError) Lacks(service string) bool {
	return slices.Contains(e.Missing, service)
}
