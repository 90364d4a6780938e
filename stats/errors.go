package stats

import "errors"

var (
	// ErrStatisticMismatch matches a MismatchError in which an aggregate
	// statistic diverged beyond tolerance
	ErrStatisticMismatch = errors.New("statistic mismatch")

	// ErrStructuralMismatch matches a MismatchError in which shape or dtype differed
	ErrStructuralMismatch = errors.New("structural mismatch")

	// ErrInvalidTolerance is returned for negative or NaN tolerances
	ErrInvalidTolerance = errors.New("invalid tolerance")

	// ErrNilArray is returned when there is no array to check
	ErrNilArray = errors.New("nil array")
)
