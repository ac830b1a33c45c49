package planclient

import (
	"errors"
	"fmt"
)

// Failure kinds. Every error returned by RequestPlan matches exactly one of
// them with errors.Is.
var (
	ErrConfiguration   = errors.New("plan service is not configured")
	ErrConnectivity    = errors.New("plan service unreachable")
	ErrRateLimited     = errors.New("plan service rate limited")
	ErrInvalidResponse = errors.New("invalid plan received")
)

// Error carries the failure kind together with what the server reported.
type Error struct {
	Kind    error
	Status  int    // HTTP status, 0 for transport and decoding failures
	Message string // server supplied {"error": ...} text, if any
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// UserMessage is the text shown to the end user for err.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return "Límite de peticiones alcanzado. Inténtalo en unos minutos."
	case errors.Is(err, ErrConfiguration):
		return "El servicio de nutrición no está configurado. Contacta con soporte."
	case errors.Is(err, ErrInvalidResponse):
		return "Se recibió un plan incompleto o inválido. Vuelve a intentarlo."
	default:
		return "No se pudo conectar con el servicio de nutrición."
	}
}

func newError(kind error, status int, message string, err error) *Error {
	return &Error{Kind: kind, Status: status, Message: message, Err: err}
}
