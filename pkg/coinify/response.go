package coinify

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Response is the decoded Coinify envelope for one call.
// Body is passed through exactly as the service returned it.
type Response struct {
	StatusCode  int
	ContentType string
	Body        map[string]any
	Raw         []byte

	decodeErr error
}

// APIError is the error object carried by a success=false envelope.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("coinify api error %s: %s", e.Code, e.Message)
}

var errNullBody = errors.New("decode response body: body is JSON null")

func newResponse(status int, raw []byte) *Response {
	resp := &Response{StatusCode: status, Raw: raw}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		resp.decodeErr = fmt.Errorf("decode response body: %w", err)
		return resp
	}
	if body == nil {
		resp.decodeErr = errNullBody
		return resp
	}
	resp.Body = body
	return resp
}

// DecodeErr reports why Body is nil, if the payload was not a JSON object.
func (r *Response) DecodeErr() error {
	if r == nil {
		return nil
	}
	return r.decodeErr
}

// Success reports the envelope's own success flag.
func (r *Response) Success() bool {
	if r == nil || r.Body == nil {
		return false
	}
	ok, _ := r.Body["success"].(bool)
	return ok
}

// Data returns the envelope's data member, or nil.
func (r *Response) Data() any {
	if r == nil || r.Body == nil {
		return nil
	}
	return r.Body["data"]
}

// IsHTTPError reports a status of 400 or above.
func (r *Response) IsHTTPError() bool {
	return r != nil && r.StatusCode >= http.StatusBadRequest
}

// APIError extracts the envelope's error object, or nil when there is none.
func (r *Response) APIError() *APIError {
	if r == nil || r.Body == nil {
		return nil
	}
	raw, ok := r.Body["error"].(map[string]any)
	if !ok {
		return nil
	}
	apiErr := &APIError{}
	apiErr.Code, _ = raw["code"].(string)
	apiErr.Message, _ = raw["message"].(string)
	apiErr.URL, _ = raw["url"].(string)
	return apiErr
}

// DecodeData re-decodes the data member into v. Unknown fields are left
// untouched in Body.
func (r *Response) DecodeData(v any) error {
	data := r.Data()
	if data == nil {
		return fmt.Errorf("response has no data")
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode data: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
