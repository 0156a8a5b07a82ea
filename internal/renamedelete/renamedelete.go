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

// Package renamedelete implements multi-step remote operations on
// identifiables: renaming by copy and delete, and confirmed batch deletion.
package renamedelete

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/FriedJannik/aas-go-sdk/jsonization"
	"github.com/FriedJannik/aas-go-sdk/types"
	"golang.org/x/sync/errgroup"

	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common/document"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common/logger"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/endpoints"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/fetch"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/transport"
)

const thumbnailFileName = "thumbnail"

type Options struct {
	ParallelReads  int
	ParallelWrites int
	EncryptIDs     bool
	// Mirror, if set, receives renames and deletes that succeeded remotely.
	Mirror *fetch.Environment
	Logger *logger.Logger
}

type Assistant struct {
	pool *transport.Pool
	opts Options
	log  *logger.Logger
}

func New(pool *transport.Pool, opts Options) *Assistant {
	opts.ParallelReads = common.ClampParallel(opts.ParallelReads, 4)
	opts.ParallelWrites = common.ClampParallel(opts.ParallelWrites, 4)
	log := opts.Logger
	if log == nil {
		log = logger.New("AASRENAME")
	}
	return &Assistant{pool: pool, opts: opts, log: log}
}

// Rename copies the entity oldID of kind at base to newID and deletes the
// original. For shells the thumbnail moves along, for submodels the File
// attachments. The new URI is returned once the copy exists; thumbnail,
// attachment and delete failures are only logged, so the old entity may
// survive.
func (a *Assistant) Rename(ctx context.Context, kind *fetch.ElementKind, base *url.URL, oldID, newID string) (*url.URL, error) {
	if oldID == "" || newID == "" {
		return nil, common.NewErrBadRequest("RENAME-EMPTYID: old and new id are required")
	}
	if oldID == newID {
		return nil, common.NewErrBadRequest("RENAME-SAMEID: " + oldID)
	}
	oldURI := kind.SingleURI(base, oldID, a.opts.EncryptIDs, false)
	newURI := kind.SingleURI(base, newID, a.opts.EncryptIDs, false)
	if oldURI == nil || newURI == nil {
		return nil, common.NewErrInvalidBaseURI(fmt.Sprintf("RENAME-NOBASE: %v", base))
	}

	// 1: read the original
	resp, err := a.pool.Get(ctx, oldURI)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, common.NewErrNotFound(fmt.Sprintf("RENAME-NOTFOUND: %s %q", kind.Name, oldID))
	}
	if !resp.OK() {
		return nil, common.NewErrProtocol(oldURI.String(), resp.StatusCode)
	}
	jsonable, err := common.UnmarshalJsonable(resp.Body)
	if err != nil {
		return nil, common.NewErrDeserialize(oldURI.String(), err)
	}
	entity, err := kind.Deserialize(jsonable)
	if err != nil {
		return nil, common.NewErrDeserialize(kind.Name+" "+oldID, err)
	}

	// 2: best effort thumbnail
	var thumb *fetch.Thumbnail
	if kind == fetch.KindAAS {
		thumb = a.readThumbnail(ctx, base, oldID)
	}

	// 3: create under the new id
	entity.SetID(newID)
	out, err := jsonization.ToJsonable(entity)
	if err != nil {
		return nil, common.NewErrDeserialize("RENAME-SERIALIZE", err)
	}
	body, err := common.Marshal(out)
	if err != nil {
		return nil, common.NewErrDeserialize("RENAME-SERIALIZE", err)
	}
	collection := kind.SingleURI(base, newID, a.opts.EncryptIDs, true)
	resp, err = a.pool.Post(ctx, collection, transport.ContentTypeJSON, body)
	if err != nil {
		a.log.LogError("RENAME-CREATE "+newID, err)
		return nil, err
	}
	if !resp.OK() {
		a.log.Errorf("RENAME-CREATE: POST %s for %q returned status %d", collection, newID, resp.StatusCode)
		return nil, common.NewErrProtocol(collection.String(), resp.StatusCode)
	}

	// 4: move the thumbnail
	if thumb != nil {
		tu := endpoints.BuildURIForThumbnail(base, newID, a.opts.EncryptIDs)
		tr, err := a.pool.PutFile(ctx, tu, thumbnailFileName, thumb.ContentType, thumb.Data)
		switch {
		case err != nil:
			a.log.Warnf("RENAME-THUMBNAIL: %s: %v", tu, err)
		case !tr.OK():
			a.log.Warnf("RENAME-THUMBNAIL: PUT %s returned status %d", tu, tr.StatusCode)
		}
	}

	// 4b: copy attachments while the original still serves them
	if sm, ok := entity.(types.ISubmodel); ok && kind == fetch.KindSubmodel {
		a.CopyAttachments(ctx, base, sm, oldID, newID)
	}

	// 5: remove the original regardless of the thumbnail and attachment outcome
	dr, err := a.pool.Delete(ctx, oldURI)
	switch {
	case err != nil:
		a.log.Warnf("RENAME-DELETE: %s survives: %v", oldURI, err)
	case !dr.OK():
		a.log.Warnf("RENAME-DELETE: DELETE %s returned status %d, old entity survives", oldURI, dr.StatusCode)
	}

	a.mirrorRename(kind, entity, oldID, newURI)
	a.log.Infof("renamed %s %q to %q at %s", kind.Name, oldID, newID, newURI)
	return newURI, nil
}

func (a *Assistant) readThumbnail(ctx context.Context, base *url.URL, aasID string) *fetch.Thumbnail {
	u := endpoints.BuildURIForThumbnail(base, aasID, a.opts.EncryptIDs)
	resp, err := a.pool.Get(ctx, u)
	if err != nil {
		a.log.Debugf("RENAME-THUMBNAIL: %s: %v", u, err)
		return nil
	}
	if !resp.OK() || len(resp.Body) == 0 {
		return nil
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(resp.Body)
	}
	return &fetch.Thumbnail{ContentType: ct, Data: resp.Body}
}

func (a *Assistant) mirrorRename(kind *fetch.ElementKind, entity types.IIdentifiable, oldID string, newURI *url.URL) {
	env := a.opts.Mirror
	if env == nil {
		return
	}
	st := kind.Store(env)
	idx := st.IndexOf(oldID)
	if idx < 0 {
		return
	}
	if err := st.Update(idx, entity); err != nil {
		a.log.Warnf("RENAME-MIRROR: %v", err)
		return
	}
	st.SetSide(idx, fetch.NewLoadedSide(entity, newURI, newURI))
	if kind == fetch.KindAAS {
		env.RenameThumbnail(oldID, entity.ID())
	}
}

// ExistenceReport is the outcome of CheckExistence, each list in input order.
type ExistenceReport struct {
	Found    []string
	NotFound []string
	// WrongType holds ids resolving to an entity of another kind.
	WrongType []string
	Failed    []string
}

type existence int

const (
	// existsUnchecked is the state of ids never checked, e.g. after cancellation.
	existsUnchecked existence = iota
	existsFound
	existsNotFound
	existsWrongType
	existsFailed
)

// CheckExistence GETs every id below base and sorts it into found, not
// found, wrong type and failed. Only cancellation is returned as an error;
// ids not checked before it count as failed.
func (a *Assistant) CheckExistence(ctx context.Context, kind *fetch.ElementKind, base *url.URL, ids []string) (ExistenceReport, error) {
	states := make([]existence, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.ParallelReads)
	for i, id := range ids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			states[i] = a.probe(gctx, kind, base, id)
			return nil
		})
	}
	_ = g.Wait()

	var rep ExistenceReport
	for i, id := range ids {
		switch states[i] {
		case existsFound:
			rep.Found = append(rep.Found, id)
		case existsNotFound:
			rep.NotFound = append(rep.NotFound, id)
		case existsWrongType:
			rep.WrongType = append(rep.WrongType, id)
		default:
			rep.Failed = append(rep.Failed, id)
		}
	}
	a.log.Infof("existence of %d %s ids: %d found, %d not found, %d wrong type, %d failed",
		len(ids), kind.Name, len(rep.Found), len(rep.NotFound), len(rep.WrongType), len(rep.Failed))
	if err := ctx.Err(); err != nil {
		return rep, common.NewErrCanceled("existence check", err)
	}
	return rep, nil
}

func (a *Assistant) probe(ctx context.Context, kind *fetch.ElementKind, base *url.URL, id string) existence {
	if ctx.Err() != nil {
		return existsFailed
	}
	u := kind.SingleURI(base, id, a.opts.EncryptIDs, false)
	resp, err := a.pool.Get(ctx, u)
	if err != nil {
		a.log.Warnf("DELETE-CHECK: %s: %v", u, err)
		return existsFailed
	}
	if resp.StatusCode == http.StatusNotFound {
		return existsNotFound
	}
	if !resp.OK() {
		a.log.Warnf("DELETE-CHECK: GET %s returned status %d", u, resp.StatusCode)
		return existsFailed
	}
	doc, err := document.Parse(resp.Body)
	if err != nil {
		a.log.Warnf("DELETE-CHECK: %s: unparsable body: %v", u, err)
		return existsFailed
	}
	if mt, ok := doc.TryGetField("modelType"); ok {
		if other := fetch.KindForResultType(mt.StringOr("")); other != kind {
			a.log.Warnf("DELETE-WRONGTYPE: %q at %s is a %s, expected %s", id, u, mt.StringOr("?"), kind.Name)
			return existsWrongType
		}
	}
	if _, err := kind.Deserialize(doc.Raw()); err != nil {
		a.log.Warnf("DELETE-WRONGTYPE: %q at %s is not a %s: %v", id, u, kind.Name, err)
		return existsWrongType
	}
	return existsFound
}

// DeleteSummary tallies a delete phase.
type DeleteSummary struct {
	Deleted  int
	Failed   int
	Declined bool
}

// DeleteConfirmed deletes the found ids of report after confirm approves the
// report. A nil confirm declines.
func (a *Assistant) DeleteConfirmed(ctx context.Context, kind *fetch.ElementKind, base *url.URL, report ExistenceReport, confirm func(ExistenceReport) bool) (DeleteSummary, error) {
	var sum DeleteSummary
	if len(report.Found) == 0 {
		return sum, nil
	}
	if confirm == nil || !confirm(report) {
		sum.Declined = true
		a.log.Infof("delete of %d %s entities declined", len(report.Found), kind.Name)
		return sum, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.ParallelWrites)
	for _, id := range report.Found {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			ok := a.deleteOne(gctx, kind, base, id)
			mu.Lock()
			if ok {
				sum.Deleted++
			} else {
				sum.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	a.log.Infof("deleted %d %s entities, %d failed", sum.Deleted, kind.Name, sum.Failed)
	if err := ctx.Err(); err != nil {
		return sum, common.NewErrCanceled("delete", err)
	}
	return sum, nil
}

func (a *Assistant) deleteOne(ctx context.Context, kind *fetch.ElementKind, base *url.URL, id string) bool {
	if ctx.Err() != nil {
		return false
	}
	u := kind.SingleURI(base, id, a.opts.EncryptIDs, false)
	resp, err := a.pool.Delete(ctx, u)
	if err != nil {
		a.log.Warnf("DELETE-FAILED: %s: %v", u, err)
		return false
	}
	if !resp.OK() {
		a.log.Warnf("DELETE-FAILED: DELETE %s returned status %d", u, resp.StatusCode)
		return false
	}
	if env := a.opts.Mirror; env != nil {
		kind.Store(env).Remove(id)
	}
	return true
}

// BatchDelete checks which ids exist and deletes them once confirmed.
func (a *Assistant) BatchDelete(ctx context.Context, kind *fetch.ElementKind, base *url.URL, ids []string, confirm func(ExistenceReport) bool) (ExistenceReport, DeleteSummary, error) {
	rep, err := a.CheckExistence(ctx, kind, base, ids)
	if err != nil {
		return rep, DeleteSummary{}, err
	}
	sum, err := a.DeleteConfirmed(ctx, kind, base, rep, confirm)
	return rep, sum, err
}
