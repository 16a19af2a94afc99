package objective

import "fmt"

// ErrDimension is matched by every DimensionError.
// Use errors.Is(err, ErrDimension) to check for it.
var ErrDimension = &DimensionError{}

// DimensionError reports a point or construction size that the function cannot accept.
type DimensionError struct {
	Function string
	Want     int // expected length, or minimum when Min is set
	Got      int
	Min      bool
}

func (e *DimensionError) Error() string {
	if e.Min {
		return fmt.Sprintf("%s: needs at least %d variables, got %d", e.Function, e.Want, e.Got)
	}
	if e.Function == "" {
		return "dimension mismatch"
	}
	return fmt.Sprintf("%s: point has %d elements, want %d", e.Function, e.Got, e.Want)
}

func (e *DimensionError) Is(target error) bool {
	_, ok := target.(*DimensionError)
	return ok
}
