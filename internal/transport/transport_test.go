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
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common/logger"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func newTestPool(client Client, headers HeaderProvider, opts Options) *Pool {
	return NewPool(client, headers, opts, logger.Discard())
}

func TestGetReturnsBodyAndStatus(t *testing.T) {
	t.Parallel()

	fake := NewFakeClient().On(http.MethodGet, "http://repo/shells", 200, `{"result":[]}`)
	pool := newTestPool(fake, nil, Options{})

	resp, err := pool.Get(context.Background(), mustURL(t, "http://repo/shells"))
	require.NoError(t, err)
	require.True(t, resp.OK())
	require.JSONEq(t, `{"result":[]}`, string(resp.Body))

	resp, err = pool.Get(context.Background(), mustURL(t, "http://repo/missing"))
	require.NoError(t, err)
	require.False(t, resp.OK())
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFakeMatchesWithoutQuery(t *testing.T) {
	t.Parallel()

	fake := NewFakeClient().On(http.MethodGet, "http://repo/shells", 200, `{}`)
	pool := newTestPool(fake, nil, Options{})

	resp, err := pool.Get(context.Background(), mustURL(t, "http://repo/shells?Limit=5"))
	require.NoError(t, err)
	require.True(t, resp.OK())
	require.Equal(t, 1, fake.CallCount(http.MethodGet, "http://repo/shells"))
}

func TestTransportFailureIsWrapped(t *testing.T) {
	t.Parallel()

	fake := NewFakeClient().OnError(http.MethodGet, "http://repo/shells", errors.New("connection refused"))
	pool := newTestPool(fake, nil, Options{})

	_, err := pool.Get(context.Background(), mustURL(t, "http://repo/shells"))
	require.Error(t, err)
	require.True(t, common.IsErrTransport(err))
	require.Contains(t, err.Error(), "http://repo/shells")
}

func TestCanceledContextStopsBeforeRequest(t *testing.T) {
	t.Parallel()

	fake := NewFakeClient()
	pool := newTestPool(fake, nil, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pool.Get(ctx, mustURL(t, "http://repo/shells"))
	require.Error(t, err)
	require.True(t, common.IsErrCanceled(err))
	require.Empty(t, fake.Calls())
}

func TestHeaderProviderConsultedOncePerBaseAddress(t *testing.T) {
	t.Parallel()

	var consulted atomic.Int32
	provider := HeaderProviderFunc(func(base string) (string, string, bool) {
		consulted.Add(1)
		if base == "http://secure:8081" {
			return "Authorization", "Bearer abc", true
		}
		return "", "", false
	})
	fake := NewFakeClient().
		On(http.MethodGet, "http://secure:8081/shells", 200, `{}`).
		On(http.MethodGet, "http://open/shells", 200, `{}`)
	pool := newTestPool(fake, provider, Options{})

	for i := 0; i < 3; i++ {
		_, err := pool.Get(context.Background(), mustURL(t, "http://secure:8081/shells"))
		require.NoError(t, err)
	}
	_, err := pool.Get(context.Background(), mustURL(t, "http://open/shells"))
	require.NoError(t, err)

	require.Equal(t, int32(2), consulted.Load())
	calls := fake.Calls()
	require.Len(t, calls, 4)
	require.Equal(t, "Bearer abc", calls[0].Header.Get("Authorization"))
	require.Empty(t, calls[3].Header.Get("Authorization"))

	pool.Reset()
	_, err = pool.Get(context.Background(), mustURL(t, "http://secure:8081/shells"))
	require.NoError(t, err)
	require.Equal(t, int32(3), consulted.Load())
}

func TestGzipBodyIsDecoded(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(`{"result":[1,2,3]}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	h := http.Header{}
	h.Set("Content-Encoding", "gzip")
	fake := NewFakeClient().OnResponse(http.MethodGet, "http://repo/shells", FakeResponse{Status: 200, Body: buf.Bytes(), Header: h})
	pool := newTestPool(fake, nil, Options{})

	resp, err := pool.Get(context.Background(), mustURL(t, "http://repo/shells"))
	require.NoError(t, err)
	require.JSONEq(t, `{"result":[1,2,3]}`, string(resp.Body))
	require.Equal(t, "gzip, deflate", fake.Calls()[0].Header.Get("Accept-Encoding"))
}

func TestPostSendsBodyAndContentType(t *testing.T) {
	t.Parallel()

	fake := NewFakeClient().On(http.MethodPost, "http://repo/query/submodels", 200, `{}`)
	pool := newTestPool(fake, nil, Options{})

	_, err := pool.Post(context.Background(), mustURL(t, "http://repo/query/submodels"), ContentTypeJSON, []byte(`{"$select":"id"}`))
	require.NoError(t, err)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, ContentTypeJSON, calls[0].Header.Get("Content-Type"))
	require.Equal(t, `{"$select":"id"}`, string(calls[0].Body))
}

func TestPutFileUsesMultipart(t *testing.T) {
	t.Parallel()

	fake := NewFakeClient().On(http.MethodPut, "http://repo/shells/YQ/asset-information/thumbnail", 204, "")
	pool := newTestPool(fake, nil, Options{})

	resp, err := pool.PutFile(context.Background(), mustURL(t, "http://repo/shells/YQ/asset-information/thumbnail"), "thumb.png", "image/png", []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
	require.True(t, resp.OK())

	call := fake.Calls()[0]
	require.Contains(t, call.Header.Get("Content-Type"), "multipart/form-data")
	require.Contains(t, string(call.Body), `filename="thumb.png"`)
	require.Contains(t, string(call.Body), "image/png")
}

type blockingBody struct {
	first   []byte
	sent    bool
	release chan struct{}
	once    sync.Once
}

func (b *blockingBody) Read(p []byte) (int, error) {
	if !b.sent {
		b.sent = true
		return copy(p, b.first), nil
	}
	<-b.release
	return 0, errors.New("body closed")
}

func (b *blockingBody) Close() error {
	b.once.Do(func() { close(b.release) })
	return nil
}

type slowClient struct{}

func (slowClient) Do(req *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode:    200,
		Header:        http.Header{},
		Body:          &blockingBody{first: []byte(`{"result":[`), release: make(chan struct{})},
		ContentLength: -1,
		Request:       req,
	}, nil
}

func TestReadTimeoutDiscardsPartialBody(t *testing.T) {
	t.Parallel()

	var progressed atomic.Int32
	pool := newTestPool(slowClient{}, nil, Options{
		ReadTimeout: 50 * time.Millisecond,
		OnProgress:  func(Progress) { progressed.Add(1) },
	})

	start := time.Now()
	resp, err := pool.Get(context.Background(), mustURL(t, "http://slow/shells"))
	require.Error(t, err)
	require.Nil(t, resp)
	require.True(t, common.IsErrTransport(err))
	require.Contains(t, err.Error(), "TRANSPORT-READ-TIMEOUT")
	require.Less(t, time.Since(start), 5*time.Second)
	require.GreaterOrEqual(t, progressed.Load(), int32(1))
}

func TestProgressReportsDone(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var events []Progress
	fake := NewFakeClient().On(http.MethodGet, "http://repo/shells", 200, `{"result":[]}`)
	pool := newTestPool(fake, nil, Options{OnProgress: func(p Progress) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, p)
	}})

	_, err := pool.Get(context.Background(), mustURL(t, "http://repo/shells"))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.True(t, last.Done)
	require.Equal(t, int64(len(`{"result":[]}`)), last.BytesRead)
}

func TestFakeFallbackSeesRequestBody(t *testing.T) {
	t.Parallel()

	fake := NewFakeClient().Fallback(func(r *http.Request) FakeResponse {
		body, _ := io.ReadAll(r.Body)
		return FakeResponse{Status: 201, Body: body}
	})
	pool := newTestPool(fake, nil, Options{})

	resp, err := pool.Post(context.Background(), mustURL(t, "http://repo/submodels"), ContentTypeJSON, []byte(`{"id":"x"}`))
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)
	require.Equal(t, `{"id":"x"}`, string(resp.Body))
}

func TestRateLimiterAllowsBurst(t *testing.T) {
	t.Parallel()

	fake := NewFakeClient().On(http.MethodGet, "http://repo/shells", 200, `{}`)
	pool := newTestPool(fake, nil, Options{RequestsPerSecond: 1000})

	for i := 0; i < 5; i++ {
		_, err := pool.Get(context.Background(), mustURL(t, "http://repo/shells"))
		require.NoError(t, err)
	}
	require.Equal(t, 5, fake.CallCount(http.MethodGet, "http://repo/"))
}
