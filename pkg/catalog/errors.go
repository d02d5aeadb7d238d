package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingColumns = errors.New("catalog table is missing required columns")
	ErrUnknownCatalog = errors.New("unknown catalog")
)

// SchemaError reports the required columns absent from a catalog table header.
type SchemaError struct {
	Missing []string
	Header  []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing columns [%s] in header [%s]",
		strings.Join(e.Missing, ", "), strings.Join(e.Header, ", "))
}

func (e *SchemaError) Unwrap() error { return ErrMissingColumns }
