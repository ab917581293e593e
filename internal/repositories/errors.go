package repositories

import "errors"

// Sentinel errors shared by all repository implementations so that callers
// can match with errors.Is regardless of the backing store.
var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrProductNotFound = errors.New("product not found")
	ErrDuplicateOrder  = errors.New("order already exists")
)
