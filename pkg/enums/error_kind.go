package enums

import "fmt"

// ErrorKind groups throttled alerts in error_notifications.
type ErrorKind string

const (
	ErrorKindStopLoss ErrorKind = "stop_loss"
	ErrorKindAPIError ErrorKind = "api_error"

	// ErrorKindPriceMutation announces a successful automated reprice. It is
	// never throttled, so error_notifications does not accept it.
	ErrorKindPriceMutation ErrorKind = "price_mutation"
)

// validErrorKinds are the throttled kinds stored in error_notifications.
var validErrorKinds = []ErrorKind{
	ErrorKindStopLoss,
	ErrorKindAPIError,
}

// IsValid reports whether the value matches a known error kind.
func (k ErrorKind) IsValid() bool {
	for _, candidate := range validErrorKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseErrorKind converts raw input into ErrorKind.
func ParseErrorKind(value string) (ErrorKind, error) {
	for _, candidate := range validErrorKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid error kind %q", value)
}
