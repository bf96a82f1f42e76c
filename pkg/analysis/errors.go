package analysis

import (
	"errors"
	"fmt"
)

// ErrNoBody is returned when the analysis response carries no readable
// stream. The text is user-visible.
var ErrNoBody = errors.New("No response body")

// RequestError reports a non-2xx response from the analysis endpoint.
type RequestError struct {
	StatusCode int
}

// Error implements the error interface. The text is user-visible: it is
// placed where the summary would have gone.
func (e *RequestError) Error() string {
	return fmt.Sprintf("Analysis service error: %d", e.StatusCode)
}
