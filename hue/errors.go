package hue

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsupportedMethod is returned by Call when the method override is not
// one of GET, PUT, POST or DELETE. No request is sent.
var ErrUnsupportedMethod = errors.New("unsupported http method")

// Common bridge error types.
const (
	ErrorTypeUnauthorized          = 1
	ErrorTypeResourceNotAvailable  = 3
	ErrorTypeParameterNotAvailable = 6
	ErrorTypeLinkButtonNotPressed  = 101
)

// TransportError is returned when no response was obtained: connection
// failures, timeouts, or a body that could not be read.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError is returned when the bridge answers with anything but 200.
type StatusError struct {
	StatusCode int
	Method     string
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("received response %d from %s", e.StatusCode, e.URL)
}

// DecodeError is returned when a 200 response body is not valid JSON.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid json from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ErrorDetail is a single {"error": {...}} element of a bridge response.
type ErrorDetail struct {
	Type        int    // 0 when the bridge sent no integer type
	TypeText    string // type exactly as sent
	Address     string
	Description string
}

// BridgeError aggregates every error object found in an array response.
// Message and TypeCode hold the joined values in response order; Address
// is taken from the first error.
type BridgeError struct {
	Message  string
	TypeCode string
	Address  string
	Errors   []ErrorDetail
}

func (e *BridgeError) Error() string {
	if e.Address == "" {
		return fmt.Sprintf("hue bridge error (type %s): %s", e.TypeCode, e.Message)
	}
	return fmt.Sprintf("hue bridge error (type %s) at %s: %s", e.TypeCode, e.Address, e.Message)
}

// HasType reports whether any aggregated error has the given bridge type.
func (e *BridgeError) HasType(code int) bool {
	for _, d := range e.Errors {
		if d.Type == code {
			return true
		}
	}
	return false
}

func newBridgeError(details []ErrorDetail) *BridgeError {
	messages := make([]string, len(details))
	codes := make([]string, len(details))
	for i, d := range details {
		messages[i] = d.Description
		codes[i] = d.TypeText
	}
	return &BridgeError{
		Message:  strings.Join(messages, ", "),
		TypeCode: strings.Join(codes, ","),
		Address:  details[0].Address,
		Errors:   details,
	}
}

// bridgeErrors scans an array response for embedded error objects.
// Anything that is not an array never carries bridge errors.
func bridgeErrors(v any) error {
	items, ok := v.([]any)
	if !ok {
		return nil
	}

	var details []ErrorDetail
	for _, item := range items {
		obj, ok := item.(*Object)
		if !ok {
			continue
		}
		raw, ok := obj.Get("error")
		if !ok {
			continue
		}
		details = append(details, parseErrorDetail(raw))
	}

	if len(details) == 0 {
		return nil
	}
	return newBridgeError(details)
}

func parseErrorDetail(raw any) ErrorDetail {
	obj, ok := raw.(*Object)
	if !ok {
		return ErrorDetail{Description: numberString(raw)}
	}

	var d ErrorDetail
	if v, ok := obj.Get("type"); ok {
		d.TypeText = numberString(v)
		d.Type, _ = strconv.Atoi(d.TypeText)
	}
	if v, ok := obj.Get("address"); ok {
		d.Address = numberString(v)
	}
	if v, ok := obj.Get("description"); ok {
		d.Description = numberString(v)
	}
	return d
}
