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

// Package transport is the HTTP layer of the fetch/sync engine: GET, PUT,
// POST and DELETE against AAS servers with bodies streamed into memory under
// a read timeout, transparent gzip/deflate decoding, an optional request rate
// limit, per-base-address client reuse and progress callbacks.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"golang.org/x/time/rate"

	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common/logger"
)

// Client is satisfied by *http.Client and by FakeClient.
type Client interface {
	Do(req *http.Request) (*http.Response, error)
}

// HeaderProvider supplies the authentication header for a base address
// (scheme://host[:port]). ok is false for unauthenticated access.
type HeaderProvider interface {
	HeaderFor(baseAddress string) (key string, value string, ok bool)
}

// HeaderProviderFunc adapts a function to HeaderProvider.
type HeaderProviderFunc func(baseAddress string) (string, string, bool)

func (f HeaderProviderFunc) HeaderFor(baseAddress string) (string, string, bool) {
	return f(baseAddress)
}

const (
	DefaultRequestTimeout = 60 * time.Second
	DefaultReadTimeout    = 30 * time.Second

	ContentTypeJSON = "application/json"

	readChunkSize = 32 * 1024
)

// Progress reports bytes received for one request.
type Progress struct {
	Method     string
	URI        string
	BytesRead  int64
	TotalBytes int64 // -1 if unknown
	Done       bool
}

// Options configures a Pool.
type Options struct {
	// RequestTimeout bounds a whole request on the default http.Client.
	RequestTimeout time.Duration
	// ReadTimeout bounds streaming a response body into memory. A timeout
	// discards the partial body.
	ReadTimeout time.Duration
	// RequestsPerSecond limits the request rate across the pool; zero or
	// negative disables limiting.
	RequestsPerSecond float64
	// OnProgress is called while response bodies are read. It may be called
	// from a reader goroutine.
	OnProgress func(Progress)
}

// Response is a completed HTTP exchange with its body fully read.
type Response struct {
	URI        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Pool hands out one Transport per base address. The header provider is
// consulted once, when the Transport for a base address is created.
type Pool struct {
	client  Client
	headers HeaderProvider
	opts    Options
	limiter *rate.Limiter
	log     *logger.Logger
	mu      sync.Mutex
	byBase  map[string]*Transport
}

// NewPool creates a pool. A nil client uses an *http.Client with the
// configured request timeout; a nil header provider means unauthenticated.
func NewPool(client Client, headers HeaderProvider, opts Options, log *logger.Logger) *Pool {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: opts.RequestTimeout}
	}
	if log == nil {
		log = logger.New("TRANSPORT")
	}
	p := &Pool{
		client:  client,
		headers: headers,
		opts:    opts,
		log:     log,
		byBase:  make(map[string]*Transport),
	}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return p
}

// BaseAddress returns scheme://host[:port] of u.
func BaseAddress(u *url.URL) string {
	if u == nil {
		return ""
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}

// For returns the Transport for the base address of u.
func (p *Pool) For(u *url.URL) *Transport {
	base := BaseAddress(u)

	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.byBase[base]; ok {
		return t
	}
	t := &Transport{pool: p, base: base}
	if p.headers != nil {
		if k, v, ok := p.headers.HeaderFor(base); ok && k != "" {
			t.authKey, t.authValue = k, v
		}
	}
	p.byBase[base] = t
	return t
}

// Reset drops all cached transports so header providers are consulted again.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byBase = make(map[string]*Transport)
}

func (p *Pool) Get(ctx context.Context, u *url.URL) (*Response, error) {
	return p.For(u).Get(ctx, u)
}

func (p *Pool) Put(ctx context.Context, u *url.URL, contentType string, body []byte) (*Response, error) {
	return p.For(u).Put(ctx, u, contentType, body)
}

func (p *Pool) Post(ctx context.Context, u *url.URL, contentType string, body []byte) (*Response, error) {
	return p.For(u).Post(ctx, u, contentType, body)
}

func (p *Pool) Delete(ctx context.Context, u *url.URL) (*Response, error) {
	return p.For(u).Delete(ctx, u)
}

func (p *Pool) PutFile(ctx context.Context, u *url.URL, fileName string, contentType string, data []byte) (*Response, error) {
	return p.For(u).PutFile(ctx, u, fileName, contentType, data)
}

// Transport performs requests against one base address.
type Transport struct {
	pool      *Pool
	base      string
	authKey   string
	authValue string
}

// Authenticated reports whether requests carry an authentication header.
func (t *Transport) Authenticated() bool {
	return t.authKey != ""
}

func (t *Transport) Get(ctx context.Context, u *url.URL) (*Response, error) {
	return t.do(ctx, http.MethodGet, u, "", nil)
}

func (t *Transport) Put(ctx context.Context, u *url.URL, contentType string, body []byte) (*Response, error) {
	return t.do(ctx, http.MethodPut, u, contentType, body)
}

func (t *Transport) Post(ctx context.Context, u *url.URL, contentType string, body []byte) (*Response, error) {
	return t.do(ctx, http.MethodPost, u, contentType, body)
}

func (t *Transport) Delete(ctx context.Context, u *url.URL) (*Response, error) {
	return t.do(ctx, http.MethodDelete, u, "", nil)
}

// PutFile uploads data as the "file" part of a multipart/form-data body, the
// way AAS servers accept thumbnails and attachments.
func (t *Transport) PutFile(ctx context.Context, u *url.URL, fileName string, contentType string, data []byte) (*Response, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("fileName", fileName); err != nil {
		return nil, err
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(fileName)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return t.do(ctx, http.MethodPut, u, mw.FormDataContentType(), buf.Bytes())
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func (t *Transport) do(ctx context.Context, method string, u *url.URL, contentType string, body []byte) (*Response, error) {
	if u == nil {
		return nil, common.NewErrBadRequest("TRANSPORT-DO-NILURI")
	}
	uri := u.String()
	if err := ctx.Err(); err != nil {
		return nil, common.NewErrCanceled(method+" "+uri, err)
	}
	if t.pool.limiter != nil {
		if err := t.pool.limiter.Wait(ctx); err != nil {
			return nil, common.NewErrCanceled(method+" "+uri, err)
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, uri, reader)
	if err != nil {
		return nil, common.NewErrTransport(uri, err)
	}
	req.Header.Set("Accept", "application/json, */*")
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if t.authKey != "" {
		req.Header.Set(t.authKey, t.authValue)
	}

	resp, err := t.pool.client.Do(req)
	if err != nil {
		t.pool.log.Debugf("%s %s failed: %v", method, uri, err)
		return nil, common.NewErrTransport(uri, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := t.readBody(ctx, method, uri, resp)
	if err != nil {
		return nil, err
	}
	data, err = decodeContent(resp.Header.Get("Content-Encoding"), data)
	if err != nil {
		return nil, common.NewErrTransport(uri, fmt.Errorf("TRANSPORT-DO-DECODE: %w", err))
	}
	return &Response{URI: uri, StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// readBody streams the body into memory. The copy runs under the read
// timeout; on expiry the body is closed and nothing read so far is returned.
func (t *Transport) readBody(ctx context.Context, method string, uri string, resp *http.Response) ([]byte, error) {
	readCtx, cancel := context.WithTimeout(ctx, t.pool.opts.ReadTimeout)
	defer cancel()

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	onProgress := t.pool.opts.OnProgress
	total := resp.ContentLength

	go func() {
		var buf bytes.Buffer
		chunk := make([]byte, readChunkSize)
		var read int64
		for {
			n, err := resp.Body.Read(chunk)
			if n > 0 {
				buf.Write(chunk[:n])
				read += int64(n)
				if onProgress != nil {
					onProgress(Progress{Method: method, URI: uri, BytesRead: read, TotalBytes: total})
				}
			}
			if errors.Is(err, io.EOF) {
				if onProgress != nil {
					onProgress(Progress{Method: method, URI: uri, BytesRead: read, TotalBytes: total, Done: true})
				}
				done <- result{data: buf.Bytes()}
				return
			}
			if err != nil {
				done <- result{err: err}
				return
			}
		}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, common.NewErrTransport(uri, r.err)
		}
		return r.data, nil
	case <-readCtx.Done():
		_ = resp.Body.Close()
		return nil, common.NewErrTransport(uri, fmt.Errorf("TRANSPORT-READ-TIMEOUT: %w", readCtx.Err()))
	}
}

func decodeContent(encoding string, data []byte) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return data, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = zr.Close()
		}()
		return io.ReadAll(zr)
	case "deflate":
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = zr.Close()
		}()
		return io.ReadAll(zr)
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}
