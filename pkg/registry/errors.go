package registry

import "fmt"

// TableUnknownError is returned by Lookup/Remove for an unregistered
// table ID (spec.md §6's TableUnknown).
type TableUnknownError struct {
	TableID string
}

func (e *TableUnknownError) Error() string {
	return fmt.Sprintf("registry: table %q unknown", e.TableID)
}

// TableExistsError is returned by Create when the table ID is already
// registered.
type TableExistsError struct {
	TableID string
}

func (e *TableExistsError) Error() string {
	return fmt.Sprintf("registry: table %q already exists", e.TableID)
}
