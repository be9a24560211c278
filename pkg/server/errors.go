package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/matzehuels/storyweave/pkg/errors"
	"github.com/matzehuels/storyweave/pkg/store"
)

type errorBody struct {
	Error struct {
		Code    errors.Code `json:"code"`
		Message string      `json:"message"`
	} `json:"error"`
}

func errNotFound(format string, args ...any) error {
	return errors.New(errors.ErrCodeNotFound, format, args...)
}

func errInvalid(err error) error {
	if errors.GetCode(err) != "" {
		return err
	}
	return errors.Wrap(errors.ErrCodeInvalidInput, err, "%v", err)
}

// statusFor maps an error to an HTTP status.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	if stderrors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound
	}
	switch code := errors.GetCode(err); {
	case code == errors.ErrCodeSizeLimitExceeded:
		return http.StatusRequestEntityTooLarge
	case errors.IsTaxonomy(code), code == errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case code == errors.ErrCodeNotFound:
		return http.StatusNotFound
	case code == errors.ErrCodeNetwork:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	var body errorBody
	body.Error.Code = errors.GetCode(err)
	body.Error.Message = errors.UserMessage(err)
	switch status {
	case http.StatusRequestEntityTooLarge:
		if body.Error.Code == "" {
			body.Error.Code = errors.ErrCodeSizeLimitExceeded
			body.Error.Message = "Request body is too large."
		}
	case http.StatusNotFound:
		body.Error.Code = errors.ErrCodeNotFound
	case http.StatusInternalServerError:
		body.Error.Code = errors.ErrCodeInternal
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
