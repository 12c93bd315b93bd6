package dataset

import "errors"

// Sentinel kinds for dataset lookups.
var (
	ErrMissingDataset = errors.New("dataset not loaded")
	ErrMissingColumn  = errors.New("column not present")
	ErrMalformed      = errors.New("malformed dataset")
)
