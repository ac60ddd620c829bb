// Package dto holds the JSON shapes of the HTTP API.
package dto

const (
	StatusSuccess = "success"
	StatusFail    = "fail"
)

// Response is the envelope every endpoint replies with.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func Success(data any) Response {
	return Response{Status: StatusSuccess, Data: data}
}

func Fail(message string) Response {
	return Response{Status: StatusFail, Message: message}
}

// Page describes one slice of a list result.
type Page struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
