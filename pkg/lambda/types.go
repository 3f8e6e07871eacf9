package lambda

import (
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
)

// Request represents a generic HTTP request for serverless functions
type Request struct {
	Method      string            `json:"method"`
	Path        string            `json:"path"`
	Headers     map[string]string `json:"headers"`
	QueryParams map[string]string `json:"query_params"`
	Body        []byte            `json:"body"`
	PathParams  map[string]string `json:"path_params"`

	// UserID is set by the entrypoint once the bearer token is verified
	UserID string `json:"-"`
}

// Response represents a generic HTTP response for serverless functions
type Response struct {
	StatusCode int               `json:"status_code"`
	Headers    map[string]string `json:"headers"`
	Body       []byte            `json:"body"`
}

// Query returns the query parameter key, or "" when absent
func (r *Request) Query(key string) string {
	if r.QueryParams == nil {
		return ""
	}
	return r.QueryParams[key]
}

// Param returns the path parameter key, or "" when absent
func (r *Request) Param(key string) string {
	if r.PathParams == nil {
		return ""
	}
	return r.PathParams[key]
}

// Header returns the request header key, matched case-insensitively
func (r *Request) Header(key string) string {
	canonical := http.CanonicalHeaderKey(key)
	for k, v := range r.Headers {
		if http.CanonicalHeaderKey(k) == canonical {
			return v
		}
	}
	return ""
}

// JSON builds a response with v encoded as the body
func JSON(status int, v interface{}) *Response {
	body, err := json.Marshal(v)
	if err != nil {
		return &Response{
			StatusCode: http.StatusInternalServerError,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       []byte(`{"error": "Failed to marshal response"}`),
		}
	}

	return &Response{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

// Error builds a JSON error response
func Error(status int, title, message string) *Response {
	return JSON(status, map[string]string{"error": title, "message": message})
}

// FromProxyRequest converts an API Gateway proxy event
func FromProxyRequest(event events.APIGatewayProxyRequest) *Request {
	return &Request{
		Method:      event.HTTPMethod,
		Path:        event.Path,
		Headers:     event.Headers,
		QueryParams: event.QueryStringParameters,
		Body:        []byte(event.Body),
		PathParams:  event.PathParameters,
	}
}

// ToProxyResponse converts r for API Gateway
func (r *Response) ToProxyResponse() events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: r.StatusCode,
		Headers:    r.Headers,
		Body:       string(r.Body),
	}
}
