package ingest

import (
	"fmt"
	"strings"
)

// maxSampleColumns bounds the number of source columns echoed in a
// resolution error message.
const maxSampleColumns = 10

// SchemaResolutionError reports that required canonical fields could not be
// resolved from a source's columns. It is fatal for that file only; data
// already loaded from other sources is untouched.
type SchemaResolutionError struct {
	// Missing lists the unresolvable canonical field names.
	Missing []string
	// Available is a sample of the source's actual column names.
	Available []string
}

func (e *SchemaResolutionError) Error() string {
	sample := e.Available
	suffix := ""
	if len(sample) > maxSampleColumns {
		sample = sample[:maxSampleColumns]
		suffix = ", ..."
	}
	return fmt.Sprintf(
		"could not resolve required fields [%s]; available columns: [%s%s]; ensure the file has transaction ID and date/time columns",
		strings.Join(e.Missing, ", "), strings.Join(sample, ", "), suffix,
	)
}

// ErrEmptySource is returned when a source file contains no data rows.
type ErrEmptySource struct {
	Location string
}

func (e *ErrEmptySource) Error() string {
	return fmt.Sprintf("source %q contains no data rows", e.Location)
}
