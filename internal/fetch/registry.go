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
	"strings"

	"github.com/FriedJannik/aas-go-sdk/types"

	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common/document"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/endpoints"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/sideinfo"
)

// Interface names of descriptor endpoints.
const (
	InterfaceAAS      = "AAS-1.0"
	InterfaceSubmodel = "SUBMODEL-1.0"
)

const unknownRegistryInfo = "<Unknown>"

func (r *run) fromRegistry(ctx context.Context, location string) error {
	loc := endpoints.ParseLocation(location)
	if loc == nil {
		base := endpoints.ParseBase(location)
		if base == nil {
			return common.NewErrNoOperation(location)
		}
		var u *url.URL
		switch r.rec.Operation() {
		case OperationAllAAS:
			u = endpoints.BuildURIForRegistryAllAAS(base, 0, "")
		case OperationSingleAAS:
			u = endpoints.BuildURIForRegistrySingleAAS(base, r.rec.ItemID, r.rec.EncryptIDs)
		case OperationAASByAssetID:
			u = endpoints.BuildURIForRegistryLookup(base, r.rec.AssetID)
		}
		if u == nil {
			return common.NewErrNoOperation(location)
		}
		if loc = endpoints.ParseLocation(u.String()); loc == nil {
			return common.NewErrNoOperation(u.String())
		}
	}
	return r.registryOperation(ctx, loc)
}

func (r *run) registryOperation(ctx context.Context, loc *endpoints.Location) error {
	regBase := endpoints.APIBase(loc.URI)
	if r.primaryBase == nil {
		r.primaryBase = regBase
	}
	r.result.Operation = loc.Kind

	switch loc.Kind {
	case endpoints.OpRegistryAllAAS:
		return r.listDescriptors(ctx, loc.URI)
	case endpoints.OpRegistrySingleAAS:
		desc, err := r.getJSON(ctx, loc.URI, "FETCH-REG-STATUS")
		if err != nil {
			return err
		}
		r.mu.Lock()
		r.result.Total, r.result.Page = 1, 1
		r.mu.Unlock()
		return r.processDescriptor(ctx, desc)
	case endpoints.OpRegistryAASByAssetID:
		descBase := regBase
		if d := r.o.opts.BaseURIs; d != nil {
			if u := d.Resolve(endpoints.RoleAASReg); u != nil {
				descBase = u
			}
		}
		return r.lookupShells(ctx, loc.URI, descBase, false)
	default:
		// Repository paths handed to a registry connection.
		return r.fromRepository(ctx, loc.URI.String())
	}
}

// listDescriptors reads one page of shell descriptors and resolves each.
func (r *run) listDescriptors(ctx context.Context, uri *url.URL) error {
	rec := r.rec
	limit := 0
	if rec.PageLimit > 0 {
		limit = rec.PageLimit + rec.PageSkip
	}
	req := endpoints.BuildListURI(uri, limit, rec.Cursor)
	doc, err := r.getJSON(ctx, req, "FETCH-REG-STATUS")
	if err != nil {
		return err
	}
	items, cursor := envelope(doc)

	var page []document.Node
	for i, item := range items {
		if i < rec.PageSkip {
			continue
		}
		if rec.PageLimit > 0 && len(page) >= rec.PageLimit {
			break
		}
		page = append(page, item)
	}

	r.mu.Lock()
	r.result.Cursor = cursor
	r.result.Total += len(items)
	r.result.Skipped += min(rec.PageSkip, len(items))
	r.result.Page += len(page)
	r.result.EmptyAfterSkip = len(page) == 0 && (rec.PageSkip > 0 || rec.PageOffset > 0)
	r.mu.Unlock()

	return r.fanOut(ctx, "FETCH-REG-DESCRIPTOR", len(page), func(ctx context.Context, i int) error {
		return r.processDescriptor(ctx, page[i])
	})
}

type submodelEndpoint struct {
	id      string
	idShort string
	href    *url.URL
}

// descriptorHref returns the href of the first endpoint with the given
// interface.
func descriptorHref(desc document.Node, iface string) *url.URL {
	for _, ep := range desc.Field("endpoints").Items() {
		if strings.TrimSpace(ep.Field("interface").StringOr("")) != iface {
			continue
		}
		href, ok := ep.Path("protocolInformation", "href")
		if !ok {
			continue
		}
		if u := endpoints.ParseBase(href.StringOr("")); u != nil {
			return u
		}
	}
	return nil
}

// submodelEndpoints returns the submodel descriptors of desc that carry a
// SUBMODEL-1.0 endpoint, first occurrence of an id winning.
func submodelEndpoints(desc document.Node) []submodelEndpoint {
	seen := make(map[string]struct{})
	var out []submodelEndpoint
	for _, smd := range desc.Field("submodelDescriptors").Items() {
		id := strings.TrimSpace(smd.Field("id").StringOr(""))
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		href := descriptorHref(smd, InterfaceSubmodel)
		if href == nil {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, submodelEndpoint{id: id, idShort: smd.Field("idShort").StringOr(""), href: href})
	}
	return out
}

// processDescriptor loads the shell a descriptor points to, replaces its
// submodel references with the ones the registry knows endpoints for, and
// registers or loads those submodels.
func (r *run) processDescriptor(ctx context.Context, desc document.Node) error {
	descID := desc.Field("id").StringOr("")
	aasHref := descriptorHref(desc, InterfaceAAS)
	if aasHref == nil {
		return fmt.Errorf("FETCH-REG-NOAASENDPOINT: descriptor %q has no %s endpoint", descID, InterfaceAAS)
	}
	sms := submodelEndpoints(desc)

	entity, err := r.o.getEntity(ctx, KindAAS, aasHref)
	if err != nil {
		return err
	}
	aas := entity.(types.IAssetAdministrationShell)

	if declared := len(submodelIDs(aas)); declared != len(sms) {
		r.log.Warnf("FETCH-REG-SMCOUNT: shell %q references %d submodels, registry lists %d submodel endpoints", aas.ID(), declared, len(sms))
	}
	refs := make([]types.IReference, 0, len(sms))
	for _, sm := range sms {
		refs = append(refs, types.NewReference(
			types.ReferenceTypesModelReference,
			[]types.IKey{types.NewKey(types.KeyTypesSubmodel, sm.id)},
		))
	}
	aas.SetSubmodels(refs)

	r.learnRepository(aasHref)
	if _, err := r.storeLoaded(ctx, KindAAS, aas, NewLoadedSide(aas, aasHref, aasHref)); err != nil {
		return err
	}

	if !r.rec.AutoLoadSubmodels || r.rec.AutoLoadOnDemand {
		st := KindSubmodel.Store(r.env)
		for _, sm := range sms {
			side := sideinfo.NewStub(sm.id, sm.href)
			side.DesignatedEndpoint = cloneURL(sm.href)
			if sm.idShort != "" {
				side.IDShort = sm.idShort
				side.RaiseStubLevel(sideinfo.StubIDAndMore)
			}
			side.RaiseStubLevel(sideinfo.StubIDWithEndpoint)
			st.AddStub(side)
		}
		return nil
	}

	return r.fanOut(ctx, "FETCH-REG-SUBMODEL", len(sms), func(ctx context.Context, i int) error {
		sm := sms[i]
		if _, err := r.fetchSingle(ctx, KindSubmodel, sm.href, sm.href); err != nil {
			return fmt.Errorf("submodel %q of %q: %w", sm.id, aas.ID(), err)
		}
		return nil
	})
}

// learnRepository remembers the repository behind the first shell endpoint
// so later phases can find concept descriptions and thumbnails there.
func (r *run) learnRepository(aasHref *url.URL) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.repoHint == nil {
		r.repoHint = endpoints.APIBase(aasHref)
	}
}

func (r *run) fromRegistryOfRegistries(ctx context.Context, location string) error {
	loc := endpoints.ParseLocation(location)
	if loc == nil || loc.Kind != endpoints.OpRegOfRegByAssetID {
		base := endpoints.ParseBase(location)
		if base == nil || r.rec.AssetID == "" {
			return common.NewErrNoOperation(location)
		}
		u := endpoints.BuildURIForRegOfRegByAssetID(base, r.rec.AssetID)
		if loc = endpoints.ParseLocation(u.String()); loc == nil {
			return common.NewErrNoOperation(u.String())
		}
	}
	return r.registryOfRegistriesOperation(ctx, loc)
}

// registryOfRegistriesOperation asks the registry of registries which
// registries know the asset, then resolves the asset at each of them.
func (r *run) registryOfRegistriesOperation(ctx context.Context, loc *endpoints.Location) error {
	r.result.Operation = loc.Kind
	if r.primaryBase == nil {
		r.primaryBase = endpoints.APIBase(loc.URI)
	}
	doc, err := r.getJSON(ctx, loc.URI, "FETCH-ROR-STATUS")
	if err != nil {
		return err
	}

	var entries []document.Node
	switch doc.Kind() {
	case document.KindObject:
		if _, ok := doc.TryGetField("result"); ok {
			entries, _ = envelope(doc)
		} else {
			entries = []document.Node{doc}
		}
	case document.KindArray:
		entries = doc.Items()
	}

	resolved := 0
	for _, e := range entries {
		if err := checkCanceled(ctx, "registry of registries"); err != nil {
			return err
		}
		regURL := endpoints.ParseBase(e.Field("url").StringOr(""))
		if regURL == nil {
			r.log.Warnf("FETCH-ROR-NOURL: registry entry without usable url skipped")
			continue
		}
		info := e.Field("info").StringOr(unknownRegistryInfo)
		if info == "" {
			info = unknownRegistryInfo
		}
		r.log.Infof("asset %q is known to registry %s (%s)", loc.AssetID, regURL, info)

		lookup := endpoints.BuildURIForRegistryLookup(regURL, loc.AssetID)
		if err := r.lookupShells(ctx, lookup, regURL, false); err != nil {
			if common.IsErrCanceled(err) {
				return err
			}
			r.log.Warnf("FETCH-ROR-REGISTRY: registry %s (%s): %v", regURL, info, err)
			r.countError()
			continue
		}
		resolved++
	}
	if resolved == 0 {
		return common.NewErrNotFound(fmt.Sprintf("FETCH-ROR-NOREGISTRY: no registry resolved asset %q", loc.AssetID))
	}
	return nil
}
