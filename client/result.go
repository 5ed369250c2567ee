package client

import (
	"encoding/json"
	"fmt"

	"github.com/jewelcart/storefront"
)

// Result is a decoded successful response
type Result struct {
	StatusCode int
	Attempts   int

	// Data is the raw "data" member of the envelope
	Data       json.RawMessage
	Pagination *storefront.Pagination
	Message    string
}

// Decode unmarshals Data into v
func (r *Result) Decode(v any) error {
	if len(r.Data) == 0 || string(r.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

type wireEnvelope struct {
	Success    *bool                     `json:"success"`
	Data       json.RawMessage           `json:"data"`
	Pagination *storefront.Pagination    `json:"pagination"`
	Error      *storefront.EnvelopeError `json:"error"`
	Message    string                    `json:"message"`
}

// decode unwraps the API envelope. A 2xx envelope reporting success=false is an APIError.
// Bodies that are not an envelope are returned whole as Data.
func decode(resp *storefront.Response) (*Result, error) {
	result := &Result{StatusCode: resp.StatusCode, Attempts: resp.Attempts}
	if len(resp.Body) == 0 {
		return result, nil
	}

	var env wireEnvelope
	if err := json.Unmarshal(resp.Body, &env); err != nil || env.Success == nil {
		if !json.Valid(resp.Body) {
			return nil, &storefront.APIError{
				StatusCode: resp.StatusCode,
				Code:       "INVALID_RESPONSE",
				Message:    "response is not valid JSON",
			}
		}
		result.Data = resp.Body
		return result, nil
	}

	if !*env.Success {
		apiErr := storefront.NewAPIError(resp.StatusCode, resp.Body)
		if env.Error == nil && env.Message == "" {
			apiErr.Message = "request failed"
		}
		return nil, apiErr
	}

	result.Data = env.Data
	result.Pagination = env.Pagination
	result.Message = env.Message
	return result, nil
}
