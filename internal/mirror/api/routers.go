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

package api

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common"
)

// Route defines the parameters for an API endpoint.
type Route struct {
	Method      string
	Pattern     string
	HandlerFunc http.HandlerFunc
}

// Routes is a map of defined API endpoints keyed by operation name.
type Routes map[string]Route

// Router defines the required methods for retrieving API routes.
type Router interface {
	Routes() Routes
}

// ImplResponse defines an implementation response with status code and body.
type ImplResponse struct {
	Code int
	Body any
}

// Response creates an ImplResponse with the given status code and body.
func Response(code int, body any) ImplResponse {
	return ImplResponse{Code: code, Body: body}
}

// FileDownload is a payload that is written as raw bytes.
type FileDownload struct {
	Content     []byte
	ContentType string
	Filename    string
}

// NewRouter registers the routes of all routers on r.
func NewRouter(r chi.Router, routers ...Router) chi.Router {
	if r == nil {
		r = chi.NewRouter()
	}
	r.Use(middleware.Logger)
	for _, api := range routers {
		for _, route := range api.Routes() {
			r.Method(route.Method, route.Pattern, route.HandlerFunc)
		}
	}
	return r
}

func setSafeDownloadHeaders(wHeader http.Header, filename, contentType string) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	wHeader.Set("Content-Type", contentType)
	wHeader.Set("X-Content-Type-Options", "nosniff")
	if filename == "" {
		wHeader.Set("Content-Disposition", "inline")
		return
	}
	wHeader.Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": filepath.Base(filename)}))
}

// EncodeJSONResponse writes i as JSON, or as raw bytes for a FileDownload.
func EncodeJSONResponse(i any, status *int, w http.ResponseWriter) error {
	code := http.StatusOK
	if status != nil && *status != 0 {
		code = *status
	}
	wHeader := w.Header()

	if f, ok := i.(FileDownload); ok {
		setSafeDownloadHeaders(wHeader, f.Filename, f.ContentType)
		w.WriteHeader(code)
		// #nosec G705 -- thumbnail bytes are served with nosniff
		_, err := w.Write(f.Content)
		return err
	}

	if i == nil {
		w.WriteHeader(code)
		return nil
	}
	data, err := common.Marshal(i)
	if err != nil {
		return err
	}
	wHeader.Set("Content-Type", "application/json; charset=UTF-8")
	wHeader.Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(code)
	_, err = w.Write(data)
	return err
}

// ErrorHandler writes a failed service call.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error, result *ImplResponse)

// StatusFor maps the error classes of the fetch and sync packages to HTTP
// status codes.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case common.IsErrNotFound(err):
		return http.StatusNotFound
	case common.IsErrBadRequest(err), common.IsErrInvalidRecord(err), common.IsErrInvalidBaseURI(err), common.IsErrNoOperation(err):
		return http.StatusBadRequest
	case common.IsErrConflict(err):
		return http.StatusConflict
	case common.IsErrProtocol(err), common.IsErrTransport(err), common.IsErrDeserialize(err):
		return http.StatusBadGateway
	case common.IsErrCanceled(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func messageType(status int) string {
	if status >= 500 {
		return "Exception"
	}
	return "Error"
}

// NewErrorResponse builds the BaSyx style error body for err.
func NewErrorResponse(err error, status int, component string, operation string, info string) ImplResponse {
	if status == 0 {
		status = StatusFor(err)
	}
	code := component + "-" + operation
	if info != "" {
		code += "-" + info
	}
	return Response(status, []common.ErrorHandler{
		*common.NewErrorHandler(messageType(status), err, code, ""),
	})
}

// DefaultErrorHandler writes err with the status of result, or the status
// StatusFor derives when the service left it unset.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error, result *ImplResponse) {
	status := 0
	if result != nil {
		status = result.Code
	}
	if status == 0 || status < 400 {
		status = StatusFor(err)
	}
	if err == nil {
		err = errors.New(http.StatusText(status))
	}
	resp := NewErrorResponse(err, status, componentName, r.Method, "")
	_ = EncodeJSONResponse(resp.Body, &resp.Code, w)
}
