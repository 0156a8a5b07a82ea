/*******************************************************************************
* Copyright (C) 2026 the Eclipse BaSyx Authors and Fraunhofer IESE
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

package transport

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common"
)

// FakeResponse is a canned answer of a FakeClient.
type FakeResponse struct {
	Status int
	Body   []byte
	Header http.Header
	Err    error
}

// RecordedCall is a request seen by a FakeClient.
type RecordedCall struct {
	Method string
	URI    string
	Header http.Header
	Body   []byte
}

// FakeClient answers requests from canned responses keyed by method and URI.
// A URI without query string also matches requests carrying one. Requests
// without a canned response go to the fallback handler, or get a 404. It is
// safe for concurrent use.
type FakeClient struct {
	mu       sync.Mutex
	routes   map[string]FakeResponse
	fallback func(*http.Request) FakeResponse
	calls    []RecordedCall
}

// NewFakeClient creates an empty FakeClient.
func NewFakeClient() *FakeClient {
	return &FakeClient{routes: make(map[string]FakeResponse)}
}

func fakeKey(method, uri string) string {
	return strings.ToUpper(method) + " " + uri
}

// On registers a response body for method and uri.
func (f *FakeClient) On(method string, uri string, status int, body string) *FakeClient {
	return f.OnResponse(method, uri, FakeResponse{Status: status, Body: []byte(body)})
}

// OnJSON registers a JSON-encoded value as response body.
func (f *FakeClient) OnJSON(method string, uri string, status int, v any) *FakeClient {
	body, err := common.Marshal(v)
	if err != nil {
		return f.OnResponse(method, uri, FakeResponse{Err: err})
	}
	h := http.Header{}
	h.Set("Content-Type", ContentTypeJSON)
	return f.OnResponse(method, uri, FakeResponse{Status: status, Body: body, Header: h})
}

// OnError makes requests to method and uri fail below HTTP.
func (f *FakeClient) OnError(method string, uri string, err error) *FakeClient {
	return f.OnResponse(method, uri, FakeResponse{Err: err})
}

func (f *FakeClient) OnResponse(method string, uri string, resp FakeResponse) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[fakeKey(method, uri)] = resp
	return f
}

// Fallback handles requests without a canned response.
func (f *FakeClient) Fallback(h func(*http.Request) FakeResponse) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallback = h
	return f
}

func (f *FakeClient) Do(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	var body []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		body = b
	}

	uri := req.URL.String()
	f.mu.Lock()
	f.calls = append(f.calls, RecordedCall{Method: req.Method, URI: uri, Header: req.Header.Clone(), Body: body})
	resp, ok := f.routes[fakeKey(req.Method, uri)]
	if !ok && req.URL.RawQuery != "" {
		bare := *req.URL
		bare.RawQuery = ""
		resp, ok = f.routes[fakeKey(req.Method, bare.String())]
	}
	fallback := f.fallback
	f.mu.Unlock()

	if !ok {
		if fallback != nil {
			req.Body = io.NopCloser(bytes.NewReader(body))
			resp = fallback(req)
		} else {
			resp = FakeResponse{Status: http.StatusNotFound}
		}
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	if resp.Status == 0 {
		return nil, errors.New("fake client: response without status for " + uri)
	}
	header := resp.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		Status:        http.StatusText(resp.Status),
		StatusCode:    resp.Status,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(resp.Body)),
		ContentLength: int64(len(resp.Body)),
		Request:       req,
	}, nil
}

// Calls returns a copy of all recorded requests in arrival order.
func (f *FakeClient) Calls() []RecordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]RecordedCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount counts recorded requests with the given method whose URI starts
// with prefix.
func (f *FakeClient) CallCount(method string, prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.EqualFold(c.Method, method) && strings.HasPrefix(c.URI, prefix) {
			n++
		}
	}
	return n
}
