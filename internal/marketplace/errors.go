package marketplace

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// APIError is any non-2xx response from the marketplace, carrying the raw
// status and body for diagnostics.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("marketplace API error (status %d): %s", e.Status, e.Body)
}

// IsClientError reports whether err is a 4xx remote response. The session
// manager uses this to advance its fallback chain; any other failure
// propagates unchanged.
func IsClientError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusBadRequest && apiErr.Status < http.StatusInternalServerError
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		code := retrieveErr.Response.StatusCode
		return code >= http.StatusBadRequest && code < http.StatusInternalServerError
	}
	return false
}
