package token

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
)

//scopeTransport adds scope to refresh grant requests, the Microsoft identity platform expects it there
type scopeTransport struct {
	scopes string
	next   http.RoundTripper
}

func (t *scopeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.scopes == "" || req.Body == nil || req.Method != http.MethodPost {
		return t.next.RoundTrip(req)
	}
	b, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, err
	}
	if v, err := url.ParseQuery(string(b)); err == nil && v.Get("grant_type") == "refresh_token" && v.Get("scope") == "" {
		v.Set("scope", t.scopes)
		b = []byte(v.Encode())
	}
	r := req.Clone(req.Context())
	r.Body = io.NopCloser(bytes.NewReader(b))
	r.ContentLength = int64(len(b))
	return t.next.RoundTrip(r)
}
