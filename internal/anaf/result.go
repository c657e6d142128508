package anaf

import (
	"encoding/json"
	"strings"
)

// apiResponse is the raw upload/status payload returned by the ANAF API.
type apiResponse struct {
	Success       truthy          `json:"success"`
	CorrelationID string          `json:"correlationId"`
	ProcessedData json.RawMessage `json:"processedData"`
	ErrorMessage  string          `json:"errorMessage"`
	ErrorCode     string          `json:"errorCode"`
}

// truthy accepts the bool/int/string variants ANAF uses for its success flag.
type truthy bool

func (t *truthy) UnmarshalJSON(b []byte) error {
	switch strings.Trim(string(b), `"`) {
	case "1", "true", "True":
		*t = true
	default:
		*t = false
	}
	return nil
}

// Result is the normalized outcome of an API exchange. This mapping is the
// single source of truth for whether ANAF accepted the document; no other
// component re-interprets raw API payloads.
type Result struct {
	Status  string          `json:"status"`
	UUID    string          `json:"uuid,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"`
}

func (r *Result) Successful() bool {
	return r.Status == StatusSuccess
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

func normalize(resp apiResponse) *Result {
	if resp.Success {
		return &Result{
			Status:  StatusSuccess,
			UUID:    resp.CorrelationID,
			Details: resp.ProcessedData,
		}
	}

	errMsg := resp.ErrorMessage
	if errMsg == "" {
		errMsg = "Unknown API error"
	}
	code := resp.ErrorCode
	if code == "" {
		code = "E500"
	}
	return &Result{
		Status: StatusError,
		Error:  errMsg,
		Code:   code,
	}
}

func errorResult(err error) *Result {
	return &Result{
		Status: StatusError,
		Error:  err.Error(),
		Code:   "E500",
	}
}
