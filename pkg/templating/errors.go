package templating

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrTemplateNotFound is returned (wrapped in a RenderError) when a render is
// requested for a name that was never registered.
var ErrTemplateNotFound = errors.New("template not found")

// RenderError describes a failed render together with the HTTP status a handler
// should answer with.
type RenderError struct {
	Name   string
	Status int
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %q: %v", e.Name, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status for err. Errors that are not a RenderError
// map to 500.
func StatusCode(err error) int {
	var re *RenderError
	if errors.As(err, &re) && re.Status != 0 {
		return re.Status
	}
	return http.StatusInternalServerError
}
