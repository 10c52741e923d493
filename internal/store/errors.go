package store

import "fmt"

// ReferentialDefect reports line items referencing orders that are not part
// of the load. The offending records are excluded from the load and
// surfaced here, never dropped without record.
type ReferentialDefect struct {
	// LineIDs are the ids of the orphaned line items, capped at a sample.
	LineIDs []string `json:"line_ids"`
	// Count is the full number of orphaned line items.
	Count int `json:"count"`
}

func (e *ReferentialDefect) Error() string {
	return fmt.Sprintf("%d line items reference unknown orders (sample: %v)", e.Count, e.LineIDs)
}

// StoreLoadFailure wraps a failed atomic replace. The transaction has been
// rolled back and the previously loaded dataset remains intact.
type StoreLoadFailure struct {
	Err error
}

func (e *StoreLoadFailure) Error() string {
	return fmt.Sprintf("star schema load failed, prior data retained: %v", e.Err)
}

func (e *StoreLoadFailure) Unwrap() error {
	return e.Err
}
