package types

// Response is the outcome of a fetch that reached the server.
type Response struct {
	StatusCode int
	Body       []byte

	// Request is the request that produced this response.
	Request *Request
}

// NewResponse creates a Response for req.
func NewResponse(req *Request, statusCode int, body []byte) *Response {
	return &Response{StatusCode: statusCode, Body: body, Request: req}
}

// IsSuccess returns true if the response status is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsServerError returns true if the response status is 5xx.
func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500 && r.StatusCode < 600
}
