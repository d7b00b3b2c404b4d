package catalog

import "errors"

// Sentinel kinds for catalog errors.
var (
	ErrCreateDatabase = errors.New("create catalog database failed")
	ErrCreateTable    = errors.New("create catalog table failed")
)
