package extract

import "fmt"

// DocumentReadError reports a document that could not be opened or parsed,
// or whose processing ran out of time. It is never fatal to a batch.
type DocumentReadError struct {
	Source string
	Err    error
}

func (e *DocumentReadError) Error() string {
	return fmt.Sprintf("read document %s: %v", e.Source, e.Err)
}

func (e *DocumentReadError) Unwrap() error { return e.Err }
