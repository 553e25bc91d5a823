package port

import "fmt"

// DataAccessError wraps a failure reaching or querying the store. An empty
// result is never reported as a DataAccessError.
type DataAccessError struct {
	Step   string
	Symbol string
	Err    error
}

func (e *DataAccessError) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("%s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("%s for %s: %v", e.Step, e.Symbol, e.Err)
}

func (e *DataAccessError) Unwrap() error { return e.Err }

func NewDataAccessError(step, symbol string, err error) error {
	return &DataAccessError{Step: step, Symbol: symbol, Err: err}
}

// WriteError wraps a failure persisting a symbol's document.
type WriteError struct {
	Symbol string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write snapshot for %s: %v", e.Symbol, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
