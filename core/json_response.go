package core

import (
	"encoding/json"
	"net/http"
)

// JSONResponse is the standard JSON response envelope.
type JSONResponse struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

// ErrorDetail contains error information for the client. Code is a stable
// machine-readable identifier; Message is human-readable.
type ErrorDetail struct {
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// Response renders itself to an http.ResponseWriter.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

type jsonResponse struct {
	status int
	body   JSONResponse
}

func (j jsonResponse) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

// JSON creates a 200 response wrapping v as data.
func JSON(v any) Response {
	return JSONWithStatus(http.StatusOK, v)
}

// JSONWithStatus creates a response with a custom status code.
func JSONWithStatus(status int, v any) Response {
	return jsonResponse{status: status, body: JSONResponse{Data: v}}
}

// JSONErrorDetail creates an error response with an explicit status, code
// and message plus optional metadata.
func JSONErrorDetail(status int, code, message string, meta map[string]any) Response {
	return jsonResponse{
		status: status,
		body: JSONResponse{
			Error: &ErrorDetail{Code: code, Message: message, Meta: meta},
		},
	}
}

// JSONError maps an error to a response: HTTPError values keep their
// status and key, anything else becomes an opaque 500 so internal detail
// never leaks to clients.
func JSONError(err error) Response {
	if httpErr, ok := err.(HTTPError); ok {
		return JSONErrorDetail(httpErr.Code, httpErr.Key, http.StatusText(httpErr.Code), nil)
	}
	return JSONErrorDetail(http.StatusInternalServerError, "internal_error", "something went wrong, try again later", nil)
}

// Render writes the response, discarding encode errors: by the time
// encoding fails the status line is already on the wire.
func Render(w http.ResponseWriter, r *http.Request, resp Response) {
	_ = resp.Render(w, r)
}
