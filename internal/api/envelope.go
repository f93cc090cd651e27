package api

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Envelope is the wrapper around every API response
type Envelope struct {
	Code    *int            `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// DecodeEnvelope validates the HTTP status and the envelope and returns the
// data payload unchanged.
func DecodeEnvelope(statusCode int, body []byte) (json.RawMessage, error) {
	if statusCode < 200 || statusCode >= 300 {
		return nil, &TransportError{StatusCode: statusCode, Body: body}
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &MalformedResponseError{Body: body, Err: err}
	}
	if env.Code == nil {
		return nil, &MalformedResponseError{Body: body, Err: errors.New("envelope has no code")}
	}
	if *env.Code != 0 {
		return nil, &APIError{Code: *env.Code, Message: env.Message}
	}
	return env.Data, nil
}

// decodeData unmarshals a data payload into out
func decodeData(data json.RawMessage, out interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &MalformedResponseError{Body: data, Err: err}
	}
	return nil
}
