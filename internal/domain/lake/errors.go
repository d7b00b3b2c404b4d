package lake

import "errors"

// Sentinel kinds for record decoding.
var (
	ErrNotObject = errors.New("record is not a json object")
	ErrNotArray  = errors.New("payload is not a json array")
)
