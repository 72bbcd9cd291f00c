package remote

import (
	"errors"
	"fmt"
	"net/http"

	"catalog-sync/internal/model"
)

// Error is the only error type returned by Client. It wraps transport
// failures, non-2xx responses and undecodable bodies alike.
type Error struct {
	Op         string
	Kind       model.Kind
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote %s %s: status %d: %v", e.Op, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("remote %s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a remote 404.
func IsNotFound(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.StatusCode == http.StatusNotFound
}
