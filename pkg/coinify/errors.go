package coinify

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"syscall"
)

var (
	// ErrCallFailed matches every *TransportError.
	ErrCallFailed = errors.New("coinify: call failed")

	ErrMissingCredentials = errors.New("coinify: api key and secret are required")
	ErrInvalidPath        = errors.New("coinify: path must start with /")
	ErrUnsupportedMethod  = errors.New("coinify: unsupported method")
	ErrInvalidParams      = errors.New("coinify: invalid params")
)

// Transport error codes.
const (
	CodeTimeout           = "timeout"
	CodeCanceled          = "canceled"
	CodeDNS               = "dns"
	CodeTLS               = "tls"
	CodeConnectionRefused = "connection_refused"
	CodeConnectionReset   = "connection_reset"
	CodeTransport         = "transport"
)

// TransportError reports that no HTTP response was obtained for a call.
// Remote errors (non-2xx, success=false) are never reported this way.
type TransportError struct {
	Op      string
	Message string
	Code    string
	Err     error
}

func (e *TransportError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("coinify %s: %s (%s)", e.Op, e.Message, e.Code)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrCallFailed) match any transport failure.
func (e *TransportError) Is(target error) bool { return target == ErrCallFailed }

func newTransportError(op string, err error) *TransportError {
	return &TransportError{
		Op:      op,
		Message: err.Error(),
		Code:    classifyTransportError(err),
		Err:     err,
	}
}

func classifyTransportError(err error) string {
	var (
		dnsErr      *net.DNSError
		netErr      net.Error
		recordErr   tls.RecordHeaderError
		certErr     *tls.CertificateVerificationError
		unknownAuth x509.UnknownAuthorityError
		hostnameErr x509.HostnameError
		invalidCert x509.CertificateInvalidError
	)

	switch {
	case errors.Is(err, context.Canceled):
		return CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.As(err, &dnsErr):
		return CodeDNS
	case errors.As(err, &recordErr), errors.As(err, &certErr), errors.As(err, &unknownAuth),
		errors.As(err, &hostnameErr), errors.As(err, &invalidCert):
		return CodeTLS
	case errors.Is(err, syscall.ECONNREFUSED):
		return CodeConnectionRefused
	case errors.Is(err, syscall.ECONNRESET):
		return CodeConnectionReset
	case errors.As(err, &netErr) && netErr.Timeout():
		return CodeTimeout
	default:
		return CodeTransport
	}
}
