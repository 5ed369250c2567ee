package storefront

import "encoding/json"

// Envelope is the wire shape of every API response:
//
//	{"success": true, "data": ..., "pagination": {...}}
//	{"success": false, "error": {"code": ..., "message": ..., "details": ...}}
type Envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data,omitempty"`
	Pagination *Pagination     `json:"pagination,omitempty"`
	Error      *EnvelopeError  `json:"error,omitempty"`

	// Message is a top level message some endpoints send instead of error.message
	Message string `json:"message,omitempty"`
}

// EnvelopeError is the error object of a failed envelope
type EnvelopeError struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

// Pagination accompanies list responses
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}
