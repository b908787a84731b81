// Package validate holds the field validators used by operator-menu forms.
// Failures are returned as *FieldError so a page can show localized text
// next to the offending control.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Sentinel causes wrapped by FieldError.
var (
	ErrEmpty       = errors.New("value required")
	ErrInvalidIPv4 = errors.New("invalid IPv4 address")
	ErrInvalidMask = errors.New("invalid subnet mask")
	ErrGateway     = errors.New("gateway outside subnet")
	ErrLength      = errors.New("wrong length")
	ErrNotHex      = errors.New("not hexadecimal")
	ErrNotNumeric  = errors.New("not numeric")
	ErrOutOfRange  = errors.New("out of range")
	ErrHostname    = errors.New("invalid host")
	ErrTooLong     = errors.New("too long")
)

// Localization keys for each cause.
const (
	KeyRequired    = "Validation.Required"
	KeyInvalidIPv4 = "Validation.InvalidIPv4"
	KeyInvalidMask = "Validation.InvalidMask"
	KeyGateway     = "Validation.GatewayOutsideSubnet"
	KeyHexLength   = "Validation.HexLength"
	KeyNotHex      = "Validation.NotHex"
	KeyNotNumeric  = "Validation.NotNumeric"
	KeyOutOfRange  = "Validation.OutOfRange"
	KeyHostname    = "Validation.InvalidHost"
	KeyTooLong     = "Validation.TooLong"
)

// FieldError is a validation failure for one input field.
type FieldError struct {
	Cause error
	Key   string // localization key of the message template
	Args  []any  // template arguments
}

func (e *FieldError) Error() string {
	if len(e.Args) == 0 {
		return e.Cause.Error()
	}
	return fmt.Sprintf("%s %v", e.Cause.Error(), e.Args)
}

func (e *FieldError) Unwrap() error { return e.Cause }

func fieldErr(cause error, key string, args ...any) *FieldError {
	return &FieldError{Cause: cause, Key: key, Args: args}
}

// AsFieldError extracts the FieldError from err, if any.
func AsFieldError(err error) (*FieldError, bool) {
	var fe *FieldError
	ok := errors.As(err, &fe)
	return fe, ok
}

const octet = `(25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])`

var ipv4Pattern = regexp.MustCompile(`^` + octet + `\.` + octet + `\.` + octet + `\.` + octet + `$`)

// IPv4 accepts dotted-decimal addresses with four octets in 0-255 written
// without leading zeros. Every other string is rejected.
func IPv4(s string) error {
	if s == "" {
		return fieldErr(ErrEmpty, KeyRequired)
	}
	if !ipv4Pattern.MatchString(s) {
		return fieldErr(ErrInvalidIPv4, KeyInvalidIPv4)
	}
	return nil
}

// IsIPv4 reports whether s passes IPv4.
func IsIPv4(s string) bool {
	return IPv4(s) == nil
}

func toUint32(s string) uint32 {
	var v uint32
	for _, part := range strings.Split(s, ".") {
		n, _ := strconv.Atoi(part)
		v = v<<8 | uint32(n)
	}
	return v
}

// SubnetMask accepts IPv4 masks whose bits are contiguous ones followed by
// zeros. 0.0.0.0 is rejected as a host mask.
func SubnetMask(s string) error {
	if err := IPv4(s); err != nil {
		if errors.Is(err, ErrEmpty) {
			return err
		}
		return fieldErr(ErrInvalidMask, KeyInvalidMask)
	}
	m := toUint32(s)
	if m == 0 {
		return fieldErr(ErrInvalidMask, KeyInvalidMask)
	}
	inv := ^m
	if inv&(inv+1) != 0 {
		return fieldErr(ErrInvalidMask, KeyInvalidMask)
	}
	return nil
}

// Gateway checks that gw is a valid address in the subnet of ip/mask. ip and
// mask must already be valid.
func Gateway(ip, mask, gw string) error {
	if err := IPv4(gw); err != nil {
		return err
	}
	if !IsIPv4(ip) || SubnetMask(mask) != nil {
		return nil
	}
	m := toUint32(mask)
	if toUint32(ip)&m != toUint32(gw)&m {
		return fieldErr(ErrGateway, KeyGateway)
	}
	return nil
}

// Sized is implemented by hash algorithms; Size is the digest length in bytes.
type Sized interface {
	Size() int
}

// HMACKey accepts only strings of exactly alg.Size()*2 hexadecimal digits.
func HMACKey(alg Sized, key string) error {
	if key == "" {
		return fieldErr(ErrEmpty, KeyRequired)
	}
	want := alg.Size() * 2
	if len(key) != want {
		return fieldErr(ErrLength, KeyHexLength, want)
	}
	for i := 0; i < len(key); i++ {
		if !isHex(key[i]) {
			return fieldErr(ErrNotHex, KeyNotHex)
		}
	}
	return nil
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// IntRange parses s as a base-10 integer within [min, max].
func IntRange(s string, min, max int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fieldErr(ErrEmpty, KeyRequired)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fieldErr(ErrNotNumeric, KeyNotNumeric)
	}
	if n < min || n > max {
		return 0, fieldErr(ErrOutOfRange, KeyOutOfRange, min, max)
	}
	return n, nil
}

// Required rejects blank strings.
func Required(s string) error {
	if strings.TrimSpace(s) == "" {
		return fieldErr(ErrEmpty, KeyRequired)
	}
	return nil
}

// MaxLength rejects strings longer than n characters.
func MaxLength(s string, n int) error {
	if utf8.RuneCountInString(s) > n {
		return fieldErr(ErrTooLong, KeyTooLong, n)
	}
	return nil
}

var hostnamePattern = regexp.MustCompile(`^([A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?)(\.[A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?)*$`)

// Host accepts an IPv4 address or an RFC 1123 hostname.
func Host(s string) error {
	if s == "" {
		return fieldErr(ErrEmpty, KeyRequired)
	}
	if IsIPv4(s) {
		return nil
	}
	if len(s) > 253 || !hostnamePattern.MatchString(s) || allDigitsAndDots(s) {
		return fieldErr(ErrHostname, KeyHostname)
	}
	return nil
}

func allDigitsAndDots(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return true
}
