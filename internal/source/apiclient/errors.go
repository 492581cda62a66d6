package apiclient

import (
	"fmt"
	"net/http"
)

// statusError reports a non-200 response from the gateway.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("gateway returned status %d %s", e.code, http.StatusText(e.code))
}
