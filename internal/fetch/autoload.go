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
	"net/http"
	"net/url"
	"strings"

	"github.com/FriedJannik/aas-go-sdk/types"

	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/endpoints"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/sideinfo"
)

// autoLoadSubmodels loads, or registers as stubs, the submodels referenced
// by the shells this run added.
func (r *run) autoLoadSubmodels(ctx context.Context) error {
	r.mu.Lock()
	shells := append([]types.IAssetAdministrationShell(nil), r.newShells...)
	r.mu.Unlock()

	seen := make(map[string]struct{})
	var ids []string
	for _, aas := range shells {
		for _, id := range submodelIDs(aas) {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return r.loadOrStub(ctx, KindSubmodel, "FETCH-AUTOLOAD-SUBMODEL", ids, false)
}

// autoLoadConceptDescriptions loads the concept descriptions named by the
// semantic ids of the submodels this run added.
func (r *run) autoLoadConceptDescriptions(ctx context.Context) error {
	r.mu.Lock()
	submodels := append([]types.ISubmodel(nil), r.newSubmodels...)
	r.mu.Unlock()

	seen := make(map[string]struct{})
	var ids []string
	for _, sm := range submodels {
		for _, id := range semanticIDs(sm) {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	// Semantic ids often name external dictionaries; a 404 is expected.
	return r.loadOrStub(ctx, KindConceptDescription, "FETCH-AUTOLOAD-CD", ids, true)
}

// loadOrStub fetches each id not yet in the environment from the
// repository of kind, or adds a stub for it when loading on demand.
func (r *run) loadOrStub(ctx context.Context, kind *ElementKind, phase string, ids []string, quietNotFound bool) error {
	base := r.repoBase(kind)
	if base == nil || len(ids) == 0 {
		return nil
	}
	st := kind.Store(r.env)
	var pending []string
	for _, id := range ids {
		if st.IndexOf(id) < 0 {
			pending = append(pending, id)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	if r.rec.AutoLoadOnDemand {
		for _, id := range pending {
			single := kind.SingleURI(base, id, r.rec.EncryptIDs, false)
			side := sideinfo.NewStub(id, single)
			side.DesignatedEndpoint = cloneURL(single)
			st.AddStub(side)
		}
		r.log.Debugf("%s: registered %d %s stubs", phase, len(pending), kind.Name)
		return nil
	}

	r.log.Debugf("%s: loading %d %s entities from %s", phase, len(pending), kind.Name, base)
	return r.fanOut(ctx, phase, len(pending), func(ctx context.Context, i int) error {
		id := pending[i]
		single := kind.SingleURI(base, id, r.rec.EncryptIDs, false)
		_, err := r.fetchSingle(ctx, kind, single, single)
		if quietNotFound && common.IsErrProtocolStatus(err, http.StatusNotFound) {
			r.log.Debugf("%s: %s %q not found", phase, kind.Name, id)
			return nil
		}
		return err
	})
}

// semanticIDs returns the first key values of the semantic ids of a
// submodel and all its elements.
func semanticIDs(sm types.ISubmodel) []string {
	var out []string
	add := func(ref types.IReference) {
		if ref == nil {
			return
		}
		keys := ref.Keys()
		if len(keys) == 0 || keys[0] == nil {
			return
		}
		if v := strings.TrimSpace(keys[0].Value()); v != "" {
			out = append(out, v)
		}
	}
	add(sm.SemanticID())

	var walk func(elems []types.ISubmodelElement)
	walk = func(elems []types.ISubmodelElement) {
		for _, el := range elems {
			if el == nil {
				continue
			}
			add(el.SemanticID())
			switch e := el.(type) {
			case types.ISubmodelElementCollection:
				walk(e.Value())
			case types.ISubmodelElementList:
				walk(e.Value())
			case types.IEntity:
				walk(e.Statements())
			}
		}
	}
	walk(sm.SubmodelElements())
	return out
}

// autoLoadThumbnails loads the default thumbnail of every shell this run
// added. When loading on demand thumbnails are left to LoadThumbnail.
func (r *run) autoLoadThumbnails(ctx context.Context) error {
	if r.rec.AutoLoadOnDemand {
		return nil
	}
	r.mu.Lock()
	shells := append([]types.IAssetAdministrationShell(nil), r.newShells...)
	r.mu.Unlock()

	base := r.repoBase(KindAAS)
	if base == nil {
		return nil
	}
	return r.fanOut(ctx, "FETCH-AUTOLOAD-THUMBNAIL", len(shells), func(ctx context.Context, i int) error {
		id := shells[i].ID()
		if _, ok := r.env.Thumbnail(id); ok {
			return nil
		}
		loaded, err := r.o.loadThumbnail(ctx, r.env, base, id, r.rec.EncryptIDs)
		if err != nil {
			return err
		}
		if loaded {
			r.prog.add(ctx, ChannelOther, 1)
		}
		return nil
	})
}

// loadThumbnail fetches one thumbnail into env. A missing thumbnail is not
// an error.
func (o *Orchestrator) loadThumbnail(ctx context.Context, env *Environment, base *url.URL, aasID string, encrypt bool) (bool, error) {
	u := endpoints.BuildURIForThumbnail(base, aasID, encrypt)
	if u == nil {
		return false, nil
	}
	resp, err := o.pool.Get(ctx, u)
	if err != nil {
		return false, err
	}
	if resp.StatusCode == http.StatusNotFound || len(resp.Body) == 0 {
		return false, nil
	}
	if !resp.OK() {
		return false, common.NewErrProtocol(u.String(), resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(resp.Body)
	}
	env.SetThumbnail(aasID, Thumbnail{ContentType: ct, Data: resp.Body})
	return true, nil
}
