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

// Package syncback writes locally modified entities of an Environment back
// to the servers they belong to.
package syncback

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/FriedJannik/aas-go-sdk/jsonization"
	"github.com/FriedJannik/aas-go-sdk/types"
	"golang.org/x/sync/errgroup"

	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common/logger"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/endpoints"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/fetch"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/sideinfo"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/transport"
)

// DefaultParallelWrites is used when Options.ParallelWrites is not positive.
const DefaultParallelWrites = 4

// NewEntityBase decides where an entity without any endpoint knowledge is
// created. defaultBase is the configured repository of the entity's kind, or
// empty. Returning an empty or non-absolute URI skips the entity.
type NewEntityBase func(defaultBase string, entity types.IIdentifiable) string

// UseDefaultBase accepts the configured repository for every new entity.
func UseDefaultBase(defaultBase string, _ types.IIdentifiable) string { return defaultBase }

type Options struct {
	ParallelWrites int
	// BaseURIs supplies the default repository per kind.
	BaseURIs   endpoints.BaseURIDict
	EncryptIDs bool
	Logger     *logger.Logger
}

// Summary tallies one sync pass.
type Summary struct {
	OK      int
	NotOK   int
	Skipped int
	// Total is the number of entities considered, stubs and clean ones included.
	Total int
}

type Engine struct {
	pool *transport.Pool
	opts Options
	log  *logger.Logger
}

func NewEngine(pool *transport.Pool, opts Options) *Engine {
	if opts.ParallelWrites <= 0 {
		opts.ParallelWrites = DefaultParallelWrites
	}
	log := opts.Logger
	if log == nil {
		log = logger.New("AASSYNC")
	}
	return &Engine{pool: pool, opts: opts, log: log}
}

type job struct {
	kind   *fetch.ElementKind
	entity types.IIdentifiable
	target *url.URL
	create bool
	// slot revision read before the entity; the taint is cleared only if it still holds
	rev uint64
}

// SyncTainted PUTs every modified entity to its designated or queried
// endpoint and POSTs entities without endpoint knowledge to the base chosen
// by baseForNew. Successful writes clear the taint; failures keep it for the
// next pass. Only cancellation is returned as an error.
func (e *Engine) SyncTainted(ctx context.Context, env *fetch.Environment, baseForNew NewEntityBase) (Summary, error) {
	var sum Summary
	var jobs []job

	for _, kind := range fetch.Kinds {
		st := kind.Store(env)
		for _, idx := range st.Indices() {
			rev := st.Revision(idx)
			data, side, taint, ok := st.Get(idx)
			if !ok {
				continue
			}
			sum.Total++
			if data == nil {
				// stubs are placeholders, never sync targets
				sum.Skipped++
				continue
			}
			if taint == sideinfo.TaintCleared {
				continue
			}
			j, ok := e.plan(kind, data, side, baseForNew)
			if !ok {
				sum.Skipped++
				continue
			}
			j.rev = rev
			jobs = append(jobs, j)
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.ParallelWrites)
	for _, j := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					e.log.Errorf("SYNC-UNIT-PANIC: %s %q: %v", j.kind.Name, j.entity.ID(), rec)
					mu.Lock()
					sum.NotOK++
					mu.Unlock()
					err = nil
				}
			}()
			if gctx.Err() != nil {
				return nil
			}
			werr := e.write(gctx, env, j)
			mu.Lock()
			if werr != nil {
				sum.NotOK++
			} else {
				sum.OK++
			}
			mu.Unlock()
			if werr != nil {
				e.log.Warnf("SYNC-WRITE: %s %q: %v", j.kind.Name, j.entity.ID(), werr)
			}
			return nil
		})
	}
	_ = g.Wait()

	e.log.Infof("sync finished: %d ok, %d failed, %d skipped of %d entities", sum.OK, sum.NotOK, sum.Skipped, sum.Total)
	if err := ctx.Err(); err != nil {
		return sum, common.NewErrCanceled("sync", err)
	}
	return sum, nil
}

// plan resolves the destination of one tainted entity: designated endpoint,
// then queried endpoint, then the canonical URI below the caller's base.
func (e *Engine) plan(kind *fetch.ElementKind, entity types.IIdentifiable, side *sideinfo.SideInfo, baseForNew NewEntityBase) (job, bool) {
	if side != nil {
		if side.IsStub {
			return job{}, false
		}
		if side.DesignatedEndpoint != nil {
			return job{kind: kind, entity: entity, target: side.DesignatedEndpoint}, true
		}
		if side.QueriedEndpoint != nil {
			return job{kind: kind, entity: entity, target: side.QueriedEndpoint}, true
		}
	}

	defaultBase, _ := e.opts.BaseURIs.Get(kind.Role)
	raw := defaultBase
	if baseForNew != nil {
		raw = baseForNew(defaultBase, entity)
	}
	base := endpoints.ParseBase(raw)
	if base == nil {
		e.log.Debugf("SYNC-NOBASE: no base for %s %q, skipped", kind.Name, entity.ID())
		return job{}, false
	}
	if side != nil {
		// known entity that lost its endpoints: address it canonically
		return job{kind: kind, entity: entity, target: kind.SingleURI(base, entity.ID(), e.opts.EncryptIDs, false)}, true
	}
	return job{kind: kind, entity: entity, target: kind.SingleURI(base, entity.ID(), e.opts.EncryptIDs, true), create: true}, true
}

func (e *Engine) write(ctx context.Context, env *fetch.Environment, j job) error {
	jsonable, err := jsonization.ToJsonable(j.entity)
	if err != nil {
		return fmt.Errorf("SYNC-SERIALIZE: %w", err)
	}
	body, err := common.Marshal(jsonable)
	if err != nil {
		return fmt.Errorf("SYNC-SERIALIZE: %w", err)
	}

	var resp *transport.Response
	if j.create {
		resp, err = e.pool.Post(ctx, j.target, transport.ContentTypeJSON, body)
	} else {
		resp, err = e.pool.Put(ctx, j.target, transport.ContentTypeJSON, body)
	}
	if err != nil {
		return err
	}
	if !resp.OK() {
		return common.NewErrProtocol(j.target.String(), resp.StatusCode)
	}

	st := j.kind.Store(env)
	idx := st.IndexOf(j.entity.ID())
	if idx < 0 {
		// removed locally while the write was in flight
		return nil
	}
	if j.create {
		single := j.kind.SingleURI(endpoints.APIBase(j.target), j.entity.ID(), e.opts.EncryptIDs, false)
		st.SetSide(idx, fetch.NewLoadedSide(j.entity, single, single))
	}
	if !st.ClearTaintIfUnchanged(idx, j.rev) {
		e.log.Debugf("SYNC-CHANGED: %s %q changed during the write, stays tainted", j.kind.Name, j.entity.ID())
	}
	return nil
}
