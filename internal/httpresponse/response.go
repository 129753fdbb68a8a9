package httpresponse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	errs "chess_review/internal/errors"
)

type Response[T any] struct {
	Status int `json:"Status"`
	Body   T   `json:"Body,omitempty"`
}

type ErrorResponse struct {
	ErrorDescription string `json:"ErrorDescription"`
}

const INTERNALERRORJSON = "{\"Status\": 500,\"Body\":{\"ErrorDescription\": \"Internal server error\"}}"

const MALFORMEDJSON_errorDesc = "json unmarshalling error"

func WriteResponseWithStatus(w http.ResponseWriter, status int, body any) {
	jsonByte, err := marshalStatusJson(status, body)
	if err != nil {
		WriteInternalErrorResponse(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(jsonByte)
}

func marshalStatusJson(status int, body any) ([]byte, error) {
	response := Response[any]{
		Status: status,
		Body:   body,
	}
	marshal, err := json.Marshal(response)
	if err != nil {
		return nil, err
	}
	return marshal, nil
}

func WriteInternalErrorResponse(w http.ResponseWriter) {
	// same as http.Error apart from the content type
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = fmt.Fprintln(w, INTERNALERRORJSON)
}

// StatusFor maps a domain error onto an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrInvalidInput), errors.Is(err, errs.ErrMoveResolution):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrReportNotFound), errors.Is(err, errs.ErrPuzzleNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrJobTimeout):
		return http.StatusGatewayTimeout
	case errs.IsEngineFailure(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError logs err and writes it with the mapped status. Internal errors
// are not echoed back to the client.
func WriteError(log *zap.SugaredLogger, w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		log.Errorw("request failed", "error", err)
		WriteInternalErrorResponse(w)
		return
	}
	log.Warnw("request rejected", "status", status, "error", err)
	WriteResponseWithStatus(w, status, ErrorResponse{ErrorDescription: err.Error()})
}
