package api

import (
	"github.com/danielgtaylor/huma/v2"
)

// envelopeVersion is the "v" field of every response body. Clients reject
// versions they do not know.
const envelopeVersion = 1

// Envelope wraps successful response bodies.
type Envelope struct {
	Version int  `json:"v"`
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// ErrorEnvelope wraps error response bodies.
type ErrorEnvelope struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// EnvelopeTransformer is a huma transformer that wraps every body in the
// response envelope.
func EnvelopeTransformer(_ huma.Context, _ string, v any) (any, error) {
	switch body := v.(type) {
	case *APIError:
		out := ErrorEnvelope{Version: envelopeVersion, Error: body.Message}
		if body.Code != "" {
			out.Code = body.Code
			out.Message = body.Message
			out.Details = body.Details
		}
		return out, nil
	case Envelope, ErrorEnvelope:
		return body, nil
	}
	return Envelope{Version: envelopeVersion, Success: true, Data: v}, nil
}
