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
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/endpoints"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/fetch"
)

const (
	componentName = "MIRROR"

	maxBodyBytes = 64 << 20
)

// MirrorAPIController binds http requests to a MirrorAPIServicer.
type MirrorAPIController struct {
	service      MirrorAPIServicer
	errorHandler ErrorHandler
}

// MirrorAPIOption configures the controller.
type MirrorAPIOption func(*MirrorAPIController)

// WithMirrorAPIErrorHandler injects an ErrorHandler into the controller.
func WithMirrorAPIErrorHandler(h ErrorHandler) MirrorAPIOption {
	return func(c *MirrorAPIController) {
		c.errorHandler = h
	}
}

// NewMirrorAPIController creates a controller with the default error handler.
func NewMirrorAPIController(s MirrorAPIServicer, opts ...MirrorAPIOption) *MirrorAPIController {
	controller := &MirrorAPIController{
		service:      s,
		errorHandler: DefaultErrorHandler,
	}
	for _, opt := range opts {
		opt(controller)
	}
	return controller
}

// Routes returns all the api routes of the controller.
func (c *MirrorAPIController) Routes() Routes {
	routes := Routes{
		"GetThumbnail": Route{
			http.MethodGet,
			"/shells/{identifier}/asset-information/thumbnail",
			c.GetThumbnail,
		},
		"PostFetch": Route{
			http.MethodPost,
			"/fetch",
			c.PostFetch,
		},
		"PostFetchMore": Route{
			http.MethodPost,
			"/fetch-more",
			c.PostFetchMore,
		},
		"PostSync": Route{
			http.MethodPost,
			"/sync",
			c.PostSync,
		},
		"GetSnapshots": Route{
			http.MethodGet,
			"/snapshots",
			c.GetSnapshots,
		},
		"PostSnapshot": Route{
			http.MethodPost,
			"/snapshots/{sessionId}",
			c.PostSnapshot,
		},
		"PostRestoreSnapshot": Route{
			http.MethodPost,
			"/snapshots/{sessionId}/restore",
			c.PostRestoreSnapshot,
		},
		"DeleteSnapshot": Route{
			http.MethodDelete,
			"/snapshots/{sessionId}",
			c.DeleteSnapshot,
		},
	}
	for _, kind := range fetch.Kinds {
		collection := "/" + kind.Collection
		routes["GetAll"+kind.Name] = Route{http.MethodGet, collection, c.getAll(kind)}
		routes["Get"+kind.Name+"ById"] = Route{http.MethodGet, collection + "/{identifier}", c.getByID(kind)}
		routes["Put"+kind.Name+"ById"] = Route{http.MethodPut, collection + "/{identifier}", c.putByID(kind)}
	}
	return routes
}

func (c *MirrorAPIController) fail(w http.ResponseWriter, r *http.Request, operation string, err error, result ImplResponse) {
	log.Printf("🧩 [%s] Error in %s: %v", componentName, operation, err)
	c.errorHandler(w, r, err, &result)
}

func (c *MirrorAPIController) badParameter(w http.ResponseWriter, operation string, param string, err error) {
	log.Printf("🧩 [%s] Error in %s: parameter %s: %v", componentName, operation, param, err)
	result := NewErrorResponse(err, http.StatusBadRequest, componentName, operation, param)
	_ = EncodeJSONResponse(result.Body, &result.Code, w)
}

func (c *MirrorAPIController) identifier(w http.ResponseWriter, r *http.Request, operation string, name string) (string, bool) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		c.badParameter(w, operation, name, common.NewErrBadRequest("missing path parameter '"+name+"'"))
		return "", false
	}
	return endpoints.DecodeIdentifier(raw), true
}

func (c *MirrorAPIController) getAll(kind *fetch.ElementKind) http.HandlerFunc {
	operation := "GetAll" + kind.Name
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		limit := 0
		if query.Has("limit") {
			n, err := strconv.Atoi(query.Get("limit"))
			if err != nil || n < 1 {
				c.badParameter(w, operation, "limit", common.NewErrBadRequest("limit must be a positive integer"))
				return
			}
			limit = n
		}
		withEntities := !strings.EqualFold(query.Get("content"), "sideinfo")

		result, err := c.service.GetAllEntities(r.Context(), kind, limit, query.Get("cursor"), withEntities)
		if err != nil {
			c.fail(w, r, operation, err, result)
			return
		}
		_ = EncodeJSONResponse(result.Body, &result.Code, w)
	}
}

func (c *MirrorAPIController) getByID(kind *fetch.ElementKind) http.HandlerFunc {
	operation := "Get" + kind.Name + "ById"
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := c.identifier(w, r, operation, "identifier")
		if !ok {
			return
		}
		result, err := c.service.GetEntityByID(r.Context(), kind, id)
		if err != nil {
			c.fail(w, r, operation, err, result)
			return
		}
		_ = EncodeJSONResponse(result.Body, &result.Code, w)
	}
}

func (c *MirrorAPIController) putByID(kind *fetch.ElementKind) http.HandlerFunc {
	operation := "Put" + kind.Name + "ById"
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := c.identifier(w, r, operation, "identifier")
		if !ok {
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			c.badParameter(w, operation, "RequestBody", err)
			return
		}
		result, err := c.service.PutEntityByID(r.Context(), kind, id, body)
		if err != nil {
			c.fail(w, r, operation, err, result)
			return
		}
		_ = EncodeJSONResponse(result.Body, &result.Code, w)
	}
}

// GetThumbnail - Returns the default thumbnail of a shell
func (c *MirrorAPIController) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	id, ok := c.identifier(w, r, "GetThumbnail", "identifier")
	if !ok {
		return
	}
	result, err := c.service.GetThumbnail(r.Context(), id)
	if err != nil {
		c.fail(w, r, "GetThumbnail", err, result)
		return
	}
	_ = EncodeJSONResponse(result.Body, &result.Code, w)
}

// PostFetch - Loads entities from a repository, registry or registry of registries
func (c *MirrorAPIController) PostFetch(w http.ResponseWriter, r *http.Request) {
	var req FetchRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err == nil && len(body) > 0 {
		err = common.UnmarshalAndDisallowUnknownFields(body, &req)
	}
	if err != nil {
		c.badParameter(w, "PostFetch", "RequestBody", err)
		return
	}
	result, err := c.service.PostFetch(r.Context(), req)
	if err != nil {
		c.fail(w, r, "PostFetch", err, result)
		return
	}
	_ = EncodeJSONResponse(result.Body, &result.Code, w)
}

// PostFetchMore - Loads the next page of the last fetch
func (c *MirrorAPIController) PostFetchMore(w http.ResponseWriter, r *http.Request) {
	result, err := c.service.PostFetchMore(r.Context())
	if err != nil {
		c.fail(w, r, "PostFetchMore", err, result)
		return
	}
	_ = EncodeJSONResponse(result.Body, &result.Code, w)
}

// PostSync - Writes modified entities back to their servers
func (c *MirrorAPIController) PostSync(w http.ResponseWriter, r *http.Request) {
	result, err := c.service.PostSync(r.Context())
	if err != nil {
		c.fail(w, r, "PostSync", err, result)
		return
	}
	_ = EncodeJSONResponse(result.Body, &result.Code, w)
}

func (c *MirrorAPIController) GetSnapshots(w http.ResponseWriter, r *http.Request) {
	result, err := c.service.GetSnapshots(r.Context())
	if err != nil {
		c.fail(w, r, "GetSnapshots", err, result)
		return
	}
	_ = EncodeJSONResponse(result.Body, &result.Code, w)
}

func (c *MirrorAPIController) PostSnapshot(w http.ResponseWriter, r *http.Request) {
	result, err := c.service.PostSnapshot(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		c.fail(w, r, "PostSnapshot", err, result)
		return
	}
	_ = EncodeJSONResponse(result.Body, &result.Code, w)
}

func (c *MirrorAPIController) PostRestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	result, err := c.service.PostRestoreSnapshot(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		c.fail(w, r, "PostRestoreSnapshot", err, result)
		return
	}
	_ = EncodeJSONResponse(result.Body, &result.Code, w)
}

func (c *MirrorAPIController) DeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	result, err := c.service.DeleteSnapshot(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		c.fail(w, r, "DeleteSnapshot", err, result)
		return
	}
	_ = EncodeJSONResponse(result.Body, &result.Code, w)
}
