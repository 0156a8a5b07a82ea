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

package fetch

import (
	"context"
	"fmt"
	"net/url"

	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/endpoints"
)

// FetchMore loads the next page of the last fetch of env using the cursor
// the server returned.
func (o *Orchestrator) FetchMore(ctx context.Context, env *Environment) (*Environment, error) {
	if env == nil {
		return nil, common.NewErrBadRequest("FETCH-MORE-NOENV")
	}
	fc := env.FetchContext()
	if fc.Record == nil {
		return nil, common.NewErrInvalidRecord("no previous fetch to continue")
	}
	if fc.Cursor == "" {
		return nil, common.NewErrNotFound("FETCH-MORE-NOCURSOR: " + fc.Location)
	}
	rec := fc.Record
	rec.Cursor = fc.Cursor
	rec.PageOffset += fc.Result.Page
	rec.PageSkip = 0
	return o.LoadFromSource(ctx, fc.Location, env, rec)
}

// HydrateStub loads the entity behind the stub at index of kind's list.
// Already loaded slots are left alone.
func (o *Orchestrator) HydrateStub(ctx context.Context, env *Environment, kind *ElementKind, index int) error {
	st := kind.Store(env)
	data, side, _, ok := st.Get(index)
	if !ok {
		return common.NewErrNotFound(fmt.Sprintf("%s slot %d", kind.Name, index))
	}
	if data != nil {
		return nil
	}
	if side == nil || side.ID == "" {
		return common.NewErrBadRequest(fmt.Sprintf("FETCH-HYDRATE-NOID: %s slot %d", kind.Name, index))
	}

	u := o.stubEndpoint(kind, side.QueriedEndpoint, side.DesignatedEndpoint, side.ID, o.encryptIDs(env))
	if u == nil {
		return common.NewErrInvalidBaseURI(fmt.Sprintf("FETCH-HYDRATE-NOENDPOINT: no endpoint known for %s %q", kind.Name, side.ID))
	}

	entity, err := o.getEntity(ctx, kind, u)
	if err != nil {
		return err
	}
	if entity.ID() != side.ID {
		o.log.Warnf("FETCH-HYDRATE-IDMISMATCH: %s asked for %q, got %q", u, side.ID, entity.ID())
	}
	if err := st.Update(index, entity); err != nil {
		return err
	}
	if side.DesignatedEndpoint == nil {
		side.DesignatedEndpoint = cloneURL(u)
	}
	side.ID = entity.ID()
	side.QueriedEndpoint = cloneURL(u)
	side.IDShort, side.Version, side.Revision = sideFields(entity)
	st.SetSide(index, side)
	st.MarkHydrated(index)
	env.track(entity, false)
	return nil
}

// stubEndpoint picks the endpoint a stub is read from: the queried endpoint,
// the designated one, or the configured repository of kind.
func (o *Orchestrator) stubEndpoint(kind *ElementKind, queried, designated *url.URL, id string, encrypt bool) *url.URL {
	if queried != nil {
		return queried
	}
	if designated != nil {
		return designated
	}
	if d := o.opts.BaseURIs; d != nil {
		if base := d.Resolve(kind.Role); base != nil {
			return kind.SingleURI(base, id, encrypt, false)
		}
	}
	return nil
}

// encryptIDs tells how ids of env are encoded in URIs: as the last fetch
// into env did, else as configured.
func (o *Orchestrator) encryptIDs(env *Environment) bool {
	if env != nil {
		if rec := env.FetchContext().Record; rec != nil {
			return rec.EncryptIDs
		}
	}
	return o.opts.EncryptIDs
}

// LoadThumbnail fetches the thumbnail of the shell aasID on demand from the
// shell's own server.
func (o *Orchestrator) LoadThumbnail(ctx context.Context, env *Environment, aasID string) (Thumbnail, error) {
	if t, ok := env.Thumbnail(aasID); ok {
		return t, nil
	}
	slot, ok := env.Shells.GetByID(aasID)
	if !ok {
		return Thumbnail{}, common.NewErrNotFound(aasID)
	}
	var base *url.URL
	if slot.Side != nil {
		if slot.Side.DesignatedEndpoint != nil {
			base = endpoints.APIBase(slot.Side.DesignatedEndpoint)
		} else if slot.Side.QueriedEndpoint != nil {
			base = endpoints.APIBase(slot.Side.QueriedEndpoint)
		}
	}
	if base == nil && o.opts.BaseURIs != nil {
		base = o.opts.BaseURIs.Resolve(endpoints.RoleAASRepo)
	}
	if base == nil {
		return Thumbnail{}, common.NewErrInvalidBaseURI("no repository known for shell " + aasID)
	}
	loaded, err := o.loadThumbnail(ctx, env, base, aasID, o.encryptIDs(env))
	if err != nil {
		return Thumbnail{}, err
	}
	if !loaded {
		return Thumbnail{}, common.NewErrNotFound("thumbnail of " + aasID)
	}
	t, _ := env.Thumbnail(aasID)
	return t, nil
}
