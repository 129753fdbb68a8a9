package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	errs "chess_review/internal/errors"
)

const maxBodyBytes = 4 << 20

// DecodeJSONRequest strictly decodes the request body into dst. Decoding
// failures are reported as invalid input.
func DecodeJSONRequest(r *http.Request, dst interface{}) error {
	body, err := ReadRequestBody(r)
	if err != nil {
		return fmt.Errorf("%w: failed to read request body: %v", errs.ErrInvalidInput, err)
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.DisallowUnknownFields()
	if err = decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", errs.ErrInvalidInput, err)
	}
	return nil
}

func ReadRequestBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
}

// QueryInt reads an integer query parameter, returning def when it is
// absent and an invalid-input error when it does not parse.
func QueryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errs.ErrInvalidInput, name)
	}
	return v, nil
}
