package response

import (
	"errors"
	"net/http"

	"github.com/santrihub/sppbilling/pkg/apperr"
)

// New generic response spec
type APIResponseCode int

const (
	APIResponseCodeOK         APIResponseCode = 0
	APIResponseCodeBadRequest APIResponseCode = 40000
	APIResponseCodeSignature  APIResponseCode = 40100
	APIResponseCodeNotFound   APIResponseCode = 40400
	APIResponseCodeConflict   APIResponseCode = 40900
	APIResponseCodeError      APIResponseCode = 50000
	APIResponseCodeGateway    APIResponseCode = 50200
)

var codeToMsg = map[APIResponseCode]string{
	APIResponseCodeOK:         "ok",
	APIResponseCodeBadRequest: "bad request",
	APIResponseCodeSignature:  "signature rejected",
	APIResponseCodeNotFound:   "not found",
	APIResponseCodeConflict:   "conflict",
	APIResponseCodeError:      "unexpected error",
	APIResponseCodeGateway:    "upstream gateway error",
}

// APIResponse is the generic response envelope used by HTTP APIs.
// Use OKT / ErrorT helpers to construct instances.
type APIResponse[T any] struct {
	Code    APIResponseCode `json:"code"`
	Message string          `json:"message"`
	Data    T               `json:"data"`
}

// OKT returns a successful response with data.
func OKT[T any](data T) *APIResponse[T] {
	return &APIResponse[T]{Code: APIResponseCodeOK, Message: codeToMsg[APIResponseCodeOK], Data: data}
}

// ErrorT returns an error response with message and optional data.
func ErrorT[T any](code APIResponseCode, data T) *APIResponse[T] {
	return &APIResponse[T]{Code: code, Message: codeToMsg[code], Data: data}
}

// FromError maps an error to (HTTP status, envelope). The envelope data holds
// the human-readable message; unclassified internals are never echoed back.
func FromError(err error) (int, *APIResponse[any]) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, ErrorT[any](APIResponseCodeError, "internal error")
	}
	switch e.Kind {
	case apperr.KindValidation:
		return http.StatusBadRequest, ErrorT[any](APIResponseCodeBadRequest, e.Msg)
	case apperr.KindNotFound:
		return http.StatusNotFound, ErrorT[any](APIResponseCodeNotFound, e.Msg)
	case apperr.KindConflict:
		return http.StatusConflict, ErrorT[any](APIResponseCodeConflict, e.Msg)
	case apperr.KindSignature:
		return http.StatusUnauthorized, ErrorT[any](APIResponseCodeSignature, e.Msg)
	case apperr.KindGateway:
		return http.StatusBadGateway, ErrorT[any](APIResponseCodeGateway, e.Msg)
	default:
		return http.StatusInternalServerError, ErrorT[any](APIResponseCodeError, e.Msg)
	}
}
