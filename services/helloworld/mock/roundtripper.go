package helloworldmock

import (
	"net/http"
	"net/http/httptest"
)

// RoundTripper returns an http.RoundTripper that answers requests under the
// backend prefix in-process and sends every other request to next
// (http.DefaultTransport when nil). Plug it into an http.Client to run the
// API client without a network.
func (b *Backend) RoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &roundTripper{backend: b, next: next}
}

type roundTripper struct {
	backend *Backend
	next    http.RoundTripper
}

func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if !rt.backend.Handles(req.URL.Path) {
		return rt.next.RoundTrip(req)
	}
	if err := req.Context().Err(); err != nil {
		return nil, err
	}

	// Server handlers expect a non-nil body and a RequestURI.
	in := req.Clone(req.Context())
	if in.Body == nil {
		in.Body = http.NoBody
	}
	in.RequestURI = in.URL.RequestURI()

	rec := httptest.NewRecorder()
	rt.backend.router.ServeHTTP(rec, in)

	resp := rec.Result()
	resp.Request = req
	return resp, nil
}
