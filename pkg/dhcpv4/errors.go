package dhcpv4

import (
	"errors"
	"fmt"
)

// Header errors. Each fixed-layout field has its own sentinel so a
// rejected datagram can be attributed to the field that failed.
var (
	ErrPacketTooShort       = errors.New("packet too short")
	ErrInvalidOpCode        = errors.New("invalid op code")
	ErrInvalidHardwareType  = errors.New("invalid hardware type")
	ErrInvalidHops          = errors.New("invalid hop count")
	ErrInvalidTransactionID = errors.New("invalid transaction id")
	ErrInvalidSeconds       = errors.New("invalid seconds")
	ErrInvalidFlags         = errors.New("invalid flags")
	ErrInvalidClientIP      = errors.New("invalid client IP address")
	ErrInvalidYourIP        = errors.New("invalid your IP address")
	ErrInvalidServerIP      = errors.New("invalid server IP address")
	ErrInvalidGatewayIP     = errors.New("invalid gateway IP address")
	ErrInvalidHardwareAddr  = errors.New("invalid hardware address")
	ErrInvalidServerName    = errors.New("invalid server host name")
	ErrInvalidBootFile      = errors.New("invalid boot file name")
	ErrInvalidCookie        = errors.New("invalid DHCP magic cookie")
)

// Option errors, always wrapped in an *OptionError naming the tag.
var (
	ErrOptionParse       = errors.New("malformed option data")
	ErrOptionValue       = errors.New("option value out of range")
	ErrOptionConversion  = errors.New("option holds a different value type")
	ErrOptionMissing     = errors.New("option not present")
	ErrOptionTooLong     = errors.New("option data exceeds 255 bytes")
	ErrInvalidOptionCode = errors.New("option code cannot carry a value")
)

// ErrUnknownMessageType is returned when a packet cannot be classified
// into a message role.
var ErrUnknownMessageType = errors.New("missing or unknown DHCP message type")

// OptionError reports a failure tied to a single option tag.
type OptionError struct {
	Code OptionCode
	Err  error
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("option %d (%s): %v", byte(e.Code), e.Code, e.Err)
}

func (e *OptionError) Unwrap() error { return e.Err }

func optionErr(code OptionCode, sentinel error, format string, args ...any) error {
	if format == "" {
		return &OptionError{Code: code, Err: sentinel}
	}
	return &OptionError{Code: code, Err: fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...)}
}

var headerErrors = []error{
	ErrInvalidOpCode, ErrInvalidHardwareType, ErrInvalidHops,
	ErrInvalidTransactionID, ErrInvalidSeconds, ErrInvalidFlags,
	ErrInvalidClientIP, ErrInvalidYourIP, ErrInvalidServerIP,
	ErrInvalidGatewayIP, ErrInvalidHardwareAddr, ErrInvalidServerName,
	ErrInvalidBootFile, ErrInvalidCookie,
}

// ErrorClass maps an error returned by this package onto a short stable
// label suitable for metrics.
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrPacketTooShort):
		return "length"
	case errors.Is(err, ErrOptionParse), errors.Is(err, ErrOptionTooLong), errors.Is(err, ErrInvalidOptionCode):
		return "option_parse"
	case errors.Is(err, ErrOptionValue):
		return "option_value"
	case errors.Is(err, ErrOptionConversion):
		return "option_type"
	case errors.Is(err, ErrOptionMissing):
		return "option_missing"
	case errors.Is(err, ErrUnknownMessageType):
		return "message_type"
	}
	for _, h := range headerErrors {
		if errors.Is(err, h) {
			return "header"
		}
	}
	return "other"
}
