package query

import "errors"

// Sentinel kinds for query errors.
var (
	ErrInvalidIdentifier = errors.New("invalid database identifier")
	ErrOutputLocation    = errors.New("query output location is empty")
	ErrStartQuery        = errors.New("start query execution failed")
)
