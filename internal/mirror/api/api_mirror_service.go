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

// Package api exposes a fetch Environment over HTTP: the mirror service
// lists and serves the entities of its working copy, loads more of them on
// demand, accepts local edits and syncs them back.
package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/FriedJannik/aas-go-sdk/jsonization"
	"github.com/FriedJannik/aas-go-sdk/types"

	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common/logger"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/fetch"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/sideinfo"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/snapshot"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/syncback"
)

// DefaultPageLimit bounds list responses without a limit parameter.
const DefaultPageLimit = 100

// SnapshotStore persists environments. *snapshot.Store implements it.
type SnapshotStore interface {
	SaveEnvironment(ctx context.Context, sessionID string, env *fetch.Environment) error
	LoadEnvironment(ctx context.Context, sessionID string) (*fetch.Environment, error)
	DeleteSession(ctx context.Context, sessionID string) error
	ListSessions(ctx context.Context) ([]snapshot.SessionInfo, error)
}

// FetchRequest is the body of POST /fetch. Unset fields keep the service
// defaults.
type FetchRequest struct {
	Location         string `json:"location"`
	BaseType         string `json:"baseType,omitempty"`
	Operation        string `json:"operation,omitempty"`
	ItemID           string `json:"itemId,omitempty"`
	AssetID          string `json:"assetId,omitempty"`
	Query            string `json:"query,omitempty"`
	QueryElementType string `json:"queryElementType,omitempty"`
	PageLimit        *int   `json:"pageLimit,omitempty"`
	PageSkip         int    `json:"pageSkip,omitempty"`
	FilterText       string `json:"filterText,omitempty"`
	AutoLoadOnDemand *bool  `json:"autoLoadOnDemand,omitempty"`
	// Reset discards the current working copy before fetching.
	Reset bool `json:"reset,omitempty"`
}

// FetchResponse reports a completed fetch.
type FetchResponse struct {
	Result fetch.Result `json:"result"`
	Counts fetch.Counts `json:"counts"`
}

// EntryView is one list entry of the working copy.
type EntryView struct {
	ID                 string `json:"id"`
	IDShort            string `json:"idShort,omitempty"`
	IsStub             bool   `json:"isStub"`
	StubLevel          string `json:"stubLevel"`
	Taint              string `json:"taint"`
	QueriedEndpoint    string `json:"queriedEndpoint,omitempty"`
	DesignatedEndpoint string `json:"designatedEndpoint,omitempty"`
	Entity             any    `json:"entity,omitempty"`
}

// MirrorAPIServicer is implemented by MirrorAPIService.
type MirrorAPIServicer interface {
	GetAllEntities(ctx context.Context, kind *fetch.ElementKind, limit int, cursor string, withEntities bool) (ImplResponse, error)
	GetEntityByID(ctx context.Context, kind *fetch.ElementKind, id string) (ImplResponse, error)
	PutEntityByID(ctx context.Context, kind *fetch.ElementKind, id string, body []byte) (ImplResponse, error)
	GetThumbnail(ctx context.Context, aasID string) (ImplResponse, error)
	PostFetch(ctx context.Context, req FetchRequest) (ImplResponse, error)
	PostFetchMore(ctx context.Context) (ImplResponse, error)
	PostSync(ctx context.Context) (ImplResponse, error)
	GetSnapshots(ctx context.Context) (ImplResponse, error)
	PostSnapshot(ctx context.Context, sessionID string) (ImplResponse, error)
	PostRestoreSnapshot(ctx context.Context, sessionID string) (ImplResponse, error)
	DeleteSnapshot(ctx context.Context, sessionID string) (ImplResponse, error)
}

// MirrorAPIService holds the working copy. Fetches, syncs and restores run
// one at a time; reads go straight to the thread-safe lists.
type MirrorAPIService struct {
	orch     *fetch.Orchestrator
	engine   *syncback.Engine
	store    SnapshotStore
	defaults *fetch.ConnectionRecord
	location string
	log      *logger.Logger

	opMu  sync.Mutex
	envMu sync.RWMutex
	env   *fetch.Environment
}

// NewMirrorAPIService creates the service. store may be nil, which disables
// the snapshot endpoints. defaults and location seed POST /fetch.
func NewMirrorAPIService(orch *fetch.Orchestrator, engine *syncback.Engine, store SnapshotStore, defaults *fetch.ConnectionRecord, location string, log *logger.Logger) *MirrorAPIService {
	if defaults == nil {
		defaults = fetch.NewConnectionRecord(fetch.BaseRepository)
	}
	if log == nil {
		log = logger.New("MIRROR")
	}
	return &MirrorAPIService{
		orch:     orch,
		engine:   engine,
		store:    store,
		defaults: defaults.Clone(),
		location: location,
		log:      log,
		env:      fetch.NewEnvironment(),
	}
}

// Environment returns the current working copy.
func (s *MirrorAPIService) Environment() *fetch.Environment {
	s.envMu.RLock()
	defer s.envMu.RUnlock()
	return s.env
}

func (s *MirrorAPIService) setEnvironment(env *fetch.Environment) {
	s.envMu.Lock()
	defer s.envMu.Unlock()
	s.env = env
}

func entryView(data types.IIdentifiable, side *sideinfo.SideInfo, taint sideinfo.Taint, withEntity bool) (EntryView, error) {
	v := EntryView{Taint: taint.String(), StubLevel: sideinfo.StubNone.String()}
	if side != nil {
		v.ID = side.ID
		v.IDShort = side.IDShort
		v.IsStub = side.IsStub
		v.StubLevel = side.StubLevel.String()
		if side.QueriedEndpoint != nil {
			v.QueriedEndpoint = side.QueriedEndpoint.String()
		}
		if side.DesignatedEndpoint != nil {
			v.DesignatedEndpoint = side.DesignatedEndpoint.String()
		}
	}
	if data == nil {
		v.IsStub = true
		return v, nil
	}
	v.ID = data.ID()
	if withEntity {
		jsonable, err := jsonization.ToJsonable(data)
		if err != nil {
			return v, common.NewInternalServerError("MIRROR-SERIALIZE: " + err.Error())
		}
		v.Entity = jsonable
	}
	return v, nil
}

// GetAllEntities pages through one list of the working copy. Stubs are
// listed as they are; they are only loaded when requested by id.
func (s *MirrorAPIService) GetAllEntities(_ context.Context, kind *fetch.ElementKind, limit int, cursor string, withEntities bool) (ImplResponse, error) {
	start, err := common.DecodeIndexCursor(cursor)
	if err != nil {
		return Response(http.StatusBadRequest, nil), err
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	st := kind.Store(s.Environment())
	indices := st.Indices()
	out := make([]EntryView, 0, limit)
	next := ""
	for pos := start; pos < len(indices); pos++ {
		if len(out) == limit {
			next = common.EncodeIndexCursor(pos)
			break
		}
		data, side, taint, ok := st.Get(indices[pos])
		if !ok {
			continue
		}
		v, err := entryView(data, side, taint, withEntities)
		if err != nil {
			return Response(http.StatusInternalServerError, nil), err
		}
		out = append(out, v)
	}
	return Response(http.StatusOK, common.PagedResult{
		PagingMetadata: common.PagingMetadata{Cursor: next},
		Result:         out,
	}), nil
}

// GetEntityByID serves one entity, loading it first if its slot is a stub.
func (s *MirrorAPIService) GetEntityByID(ctx context.Context, kind *fetch.ElementKind, id string) (ImplResponse, error) {
	env := s.Environment()
	st := kind.Store(env)
	idx := st.IndexOf(id)
	if idx < 0 {
		return Response(http.StatusNotFound, nil), common.NewErrNotFound(id)
	}
	data, _, _, _ := st.Get(idx)
	if data == nil {
		if err := s.orch.HydrateStub(ctx, env, kind, idx); err != nil {
			s.log.LogError("MIRROR-HYDRATE "+id, err)
			return Response(StatusFor(err), nil), err
		}
		data, _, _, _ = st.Get(idx)
	}
	jsonable, err := jsonization.ToJsonable(data)
	if err != nil {
		return Response(http.StatusInternalServerError, nil), common.NewInternalServerError("MIRROR-SERIALIZE: " + err.Error())
	}
	return Response(http.StatusOK, jsonable), nil
}

// PutEntityByID replaces or adds an entity in the working copy and taints it
// so the next sync writes it back.
func (s *MirrorAPIService) PutEntityByID(_ context.Context, kind *fetch.ElementKind, id string, body []byte) (ImplResponse, error) {
	jsonable, err := common.UnmarshalJsonable(body)
	if err != nil {
		return Response(http.StatusBadRequest, nil), common.NewErrBadRequest("MIRROR-PUT-BODY: " + err.Error())
	}
	entity, err := kind.Deserialize(jsonable)
	if err != nil {
		return Response(http.StatusBadRequest, nil), common.NewErrBadRequest("MIRROR-PUT-DESERIALIZE: " + err.Error())
	}
	if entity.ID() != id {
		return Response(http.StatusBadRequest, nil), common.NewErrBadRequest("MIRROR-PUT-IDMISMATCH: path " + id + ", body " + entity.ID())
	}

	st := kind.Store(s.Environment())
	if idx := st.IndexOf(id); idx >= 0 {
		if err := st.Update(idx, entity); err != nil {
			return Response(http.StatusConflict, nil), common.NewErrConflict(err.Error())
		}
		st.MarkHydrated(idx)
		st.SetTaint(idx, sideinfo.TaintSet)
		return Response(http.StatusNoContent, nil), nil
	}
	if _, _, err := st.AddIfNew(entity, nil, sideinfo.TaintUnknown); err != nil {
		return Response(http.StatusBadRequest, nil), common.NewErrBadRequest(err.Error())
	}
	return Response(http.StatusCreated, nil), nil
}

// GetThumbnail serves the default thumbnail of a shell, loading it on demand.
func (s *MirrorAPIService) GetThumbnail(ctx context.Context, aasID string) (ImplResponse, error) {
	t, err := s.orch.LoadThumbnail(ctx, s.Environment(), aasID)
	if err != nil {
		return Response(StatusFor(err), nil), err
	}
	return Response(http.StatusOK, FileDownload{Content: t.Data, ContentType: t.ContentType}), nil
}

func (s *MirrorAPIService) recordFor(req FetchRequest) (*fetch.ConnectionRecord, error) {
	rec := s.defaults.Clone()
	rec.Cursor = ""
	if req.BaseType != "" {
		bt, err := fetch.ParseBaseType(req.BaseType)
		if err != nil {
			return nil, err
		}
		rec.BaseType = bt
	}
	if req.Operation != "" {
		op, err := fetch.ParseOperation(req.Operation)
		if err != nil {
			return nil, err
		}
		rec.SelectOperation(op)
	}
	if req.ItemID != "" {
		rec.ItemID = req.ItemID
	}
	if req.AssetID != "" {
		rec.AssetID = req.AssetID
	}
	if req.Query != "" {
		rec.QueryScript = req.Query
	}
	if req.QueryElementType != "" {
		rec.QueryElementType = req.QueryElementType
	}
	if req.PageLimit != nil {
		rec.PageLimit = *req.PageLimit
	}
	rec.PageSkip = req.PageSkip
	rec.PageOffset = 0
	rec.FilterText = req.FilterText
	if req.AutoLoadOnDemand != nil {
		rec.AutoLoadOnDemand = *req.AutoLoadOnDemand
	}
	return rec, nil
}

// PostFetch loads from a location into the working copy.
func (s *MirrorAPIService) PostFetch(ctx context.Context, req FetchRequest) (ImplResponse, error) {
	location := req.Location
	if location == "" {
		location = s.location
	}
	if location == "" {
		return Response(http.StatusBadRequest, nil), common.NewErrBadRequest("MIRROR-FETCH-NOLOCATION")
	}
	rec, err := s.recordFor(req)
	if err != nil {
		return Response(http.StatusBadRequest, nil), err
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	env := s.Environment()
	if req.Reset {
		env = fetch.NewEnvironment()
	}
	loaded, err := s.orch.LoadFromSource(ctx, location, env, rec)
	if err != nil {
		return Response(StatusFor(err), nil), err
	}
	s.setEnvironment(loaded)
	return Response(http.StatusOK, FetchResponse{Result: loaded.FetchContext().Result, Counts: loaded.Counts()}), nil
}

// PostFetchMore continues the last fetch with the server's cursor.
func (s *MirrorAPIService) PostFetchMore(ctx context.Context) (ImplResponse, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	loaded, err := s.orch.FetchMore(ctx, s.Environment())
	if err != nil {
		return Response(StatusFor(err), nil), err
	}
	s.setEnvironment(loaded)
	return Response(http.StatusOK, FetchResponse{Result: loaded.FetchContext().Result, Counts: loaded.Counts()}), nil
}

// PostSync writes all tainted entities back.
func (s *MirrorAPIService) PostSync(ctx context.Context) (ImplResponse, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	sum, err := s.engine.SyncTainted(ctx, s.Environment(), syncback.UseDefaultBase)
	if err != nil {
		return Response(StatusFor(err), nil), err
	}
	status := http.StatusOK
	if sum.NotOK > 0 {
		status = http.StatusMultiStatus
	}
	return Response(status, sum), nil
}

func (s *MirrorAPIService) snapshotsDisabled() (ImplResponse, error) {
	return Response(http.StatusNotImplemented, nil), common.NewErrBadRequest("MIRROR-SNAPSHOT-DISABLED: no snapshot store configured")
}

func (s *MirrorAPIService) GetSnapshots(ctx context.Context) (ImplResponse, error) {
	if s.store == nil {
		return s.snapshotsDisabled()
	}
	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		return Response(StatusFor(err), nil), err
	}
	if sessions == nil {
		sessions = []snapshot.SessionInfo{}
	}
	return Response(http.StatusOK, sessions), nil
}

func (s *MirrorAPIService) PostSnapshot(ctx context.Context, sessionID string) (ImplResponse, error) {
	if s.store == nil {
		return s.snapshotsDisabled()
	}
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.store.SaveEnvironment(ctx, sessionID, s.Environment()); err != nil {
		return Response(StatusFor(err), nil), err
	}
	return Response(http.StatusNoContent, nil), nil
}

// PostRestoreSnapshot replaces the working copy with a saved one.
func (s *MirrorAPIService) PostRestoreSnapshot(ctx context.Context, sessionID string) (ImplResponse, error) {
	if s.store == nil {
		return s.snapshotsDisabled()
	}
	s.opMu.Lock()
	defer s.opMu.Unlock()
	env, err := s.store.LoadEnvironment(ctx, sessionID)
	if err != nil {
		return Response(StatusFor(err), nil), err
	}
	s.setEnvironment(env)
	return Response(http.StatusOK, env.Counts()), nil
}

func (s *MirrorAPIService) DeleteSnapshot(ctx context.Context, sessionID string) (ImplResponse, error) {
	if s.store == nil {
		return s.snapshotsDisabled()
	}
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return Response(StatusFor(err), nil), err
	}
	return Response(http.StatusNoContent, nil), nil
}
