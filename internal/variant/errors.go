package variant

import "errors"

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrOptionNotFound    = errors.New("variant option not found")
	ErrInsufficientStock = errors.New("insufficient stock for variant option")
	ErrBusy              = errors.New("system busy, please try again later (lock)")
	ErrConcurrentUpdate  = errors.New("variant option changed concurrently")
)
