package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
)

// StubDoer is an HTTPDoer that records requests and answers each one with
// the same canned response.
type StubDoer struct {
	Status int
	Body   string
	Err    error

	mu       sync.Mutex
	requests []*http.Request
}

// Do records req and returns the canned response. Status defaults to 200.
func (d *StubDoer) Do(req *http.Request) (*http.Response, error) {
	d.mu.Lock()
	d.requests = append(d.requests, req)
	d.mu.Unlock()

	if d.Err != nil {
		return nil, d.Err
	}
	status := d.Status
	if status == 0 {
		status = http.StatusOK
	}
	return JSONResponse(status, d.Body), nil
}

// Requests returns the requests seen so far.
func (d *StubDoer) Requests() []*http.Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*http.Request(nil), d.requests...)
}

// JSONResponse builds a response with a JSON content type.
func JSONResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

// WriteJSON encodes v as the JSON body of w, for httptest handlers.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
