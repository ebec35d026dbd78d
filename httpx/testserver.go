package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestServer serves a handler on a loopback port for tests.
type TestServer struct{ *httptest.Server }

// NewTestServer starts a TestServer from an http.Handler.
func NewTestServer(handler http.Handler) *TestServer {
	return &TestServer{httptest.NewServer(handler)}
}

// StartTestServer serves server's routes until t finishes.
func StartTestServer(t testing.TB, server *Server) *TestServer {
	t.Helper()
	ts := NewTestServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// BaseURL returns the server's base URL.
func (ts *TestServer) BaseURL() string {
	if ts == nil || ts.Server == nil {
		return ""
	}
	return ts.URL
}

// Client returns a JSON client pointed at the server.
func (ts *TestServer) Client(opts ...ClientOption) *Client {
	return NewClient(append([]ClientOption{WithBaseURL(ts.BaseURL())}, opts...)...)
}
