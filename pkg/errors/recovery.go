package errors

import (
	"fmt"
	"net/http"
)

// FromPanic turns a recovered panic value into an internal AppError
func FromPanic(r any) *AppError {
	if err, ok := r.(error); ok {
		return Wrap(err, http.StatusInternalServerError, CodeInternal, "panic")
	}
	return NewError(http.StatusInternalServerError, CodeInternal, fmt.Sprintf("panic: %v", r))
}
