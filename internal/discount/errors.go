package discount

import "errors"

var (
	// ErrInvalidConfiguration is returned when a tiered configuration payload fails structural parsing.
	ErrInvalidConfiguration = errors.New("discount: invalid configuration")
	// ErrInvalidDiscountSchedule is returned when a product discount schedule payload fails structural parsing.
	ErrInvalidDiscountSchedule = errors.New("discount: invalid discount schedule")
	// ErrInvalidFixedRule indicates the fixed rule configuration cannot be used.
	ErrInvalidFixedRule = errors.New("discount: invalid fixed rule")
)
