package typeahead

import "fmt"

// SetupError reports a selector that could not be mounted, usually because
// a required element is missing from the document.
type SetupError struct {
	Selector string
	Err      error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("typeahead %s: setup: %v", e.Selector, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// StatusError is returned by RemoteProvider when the endpoint answers with
// a non-success status.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("search endpoint returned %s: %s", e.Status, e.Body)
}

// TransportError wraps a failure to reach the endpoint or read its body.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("search endpoint %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
