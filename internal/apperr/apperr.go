package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindBadRequest   Kind = "bad_request"
	KindUnauthorized Kind = "unauthorized"
	KindNotFound     Kind = "not_found"
	KindIntegration  Kind = "integration"
	KindTimeout      Kind = "timeout"
	KindInternal     Kind = "internal"
)

// Error porte un type d'erreur, un message public et la cause interne
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, msg string, cause error) error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func BadRequest(msg string, cause error) error   { return New(KindBadRequest, msg, cause) }
func NotFound(msg string, cause error) error     { return New(KindNotFound, msg, cause) }
func Unauthorized(msg string, cause error) error { return New(KindUnauthorized, msg, cause) }
func Integration(msg string, cause error) error  { return New(KindIntegration, msg, cause) }
func Internal(msg string, cause error) error     { return New(KindInternal, msg, cause) }

// KindOf retourne le type d'une erreur (internal par défaut)
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	default:
		return KindInternal
	}
}

var kindToStatus = map[Kind]int{
	KindBadRequest:   http.StatusBadRequest,
	KindUnauthorized: http.StatusUnauthorized,
	KindNotFound:     http.StatusNotFound,
	KindIntegration:  http.StatusBadGateway,
	KindTimeout:      http.StatusGatewayTimeout,
	KindInternal:     http.StatusInternalServerError,
}

func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if s, ok := kindToStatus[KindOf(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// PublicMessage retourne le message affichable au client.
// Les erreurs non typées ne fuient jamais leur détail.
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Délai dépassé"
	}
	return "Erreur interne du serveur"
}
