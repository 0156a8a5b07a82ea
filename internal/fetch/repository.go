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
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/transport"
)

// repositoryLocation classifies location, or builds the operation URI from
// the record when location is only a server base.
func (r *run) repositoryLocation(location string) (*endpoints.Location, error) {
	if loc := endpoints.ParseLocation(location); loc != nil {
		return loc, nil
	}
	base := endpoints.ParseBase(location)
	if base == nil {
		return nil, common.NewErrNoOperation(location)
	}

	var u *url.URL
	rec := r.rec
	switch rec.Operation() {
	case OperationAllAAS:
		u = endpoints.BuildURIForRepoAllAAS(base, 0, "")
	case OperationSingleAAS:
		u = endpoints.BuildURIForRepoSingleAAS(base, rec.ItemID, rec.EncryptIDs, false)
	case OperationAASByAssetID:
		u = endpoints.BuildURIForRepoAASByAssetID(base, rec.AssetID)
	case OperationAllSubmodels:
		u = endpoints.BuildURIForRepoAllSubmodels(base, 0, "")
	case OperationSingleSubmodel:
		u = endpoints.BuildURIForRepoSingleSubmodel(base, rec.ItemID, rec.EncryptIDs, false)
	case OperationAllCDs:
		u = endpoints.BuildURIForRepoAllCDs(base, 0, "")
	case OperationSingleCD:
		u = endpoints.BuildURIForRepoSingleCD(base, rec.ItemID, rec.EncryptIDs, false)
	case OperationQuery:
		elementType := rec.QueryElementType
		if elementType == "" {
			elementType = endpoints.PathSubmodels
		}
		u = endpoints.BuildURIForQuery(base, elementType, "")
	}
	if u == nil {
		return nil, common.NewErrNoOperation(location)
	}
	loc := endpoints.ParseLocation(u.String())
	if loc == nil {
		return nil, common.NewErrNoOperation(u.String())
	}
	return loc, nil
}

func (r *run) fromRepository(ctx context.Context, location string) error {
	loc, err := r.repositoryLocation(location)
	if err != nil {
		return err
	}
	r.primaryBase = endpoints.APIBase(loc.URI)
	r.result.Operation = loc.Kind

	switch loc.Kind {
	case endpoints.OpRepoAllAAS:
		if err := r.listAll(ctx, KindAAS, loc.URI); err != nil {
			return err
		}
		res := r.snapshotResult()
		if res.Total == 0 && r.rec.HealAasListViaLookup && r.rec.Cursor == "" {
			return r.healShellList(ctx, loc.URI)
		}
		return nil
	case endpoints.OpRepoAllSubmodels:
		return r.listAll(ctx, KindSubmodel, loc.URI)
	case endpoints.OpRepoAllCDs:
		return r.listAll(ctx, KindConceptDescription, loc.URI)
	case endpoints.OpRepoAASByAssetID:
		return r.listAll(ctx, KindAAS, loc.URI)
	case endpoints.OpRepoSingleAAS, endpoints.OpRepoSingleSubmodel, endpoints.OpRepoSingleCD, endpoints.OpRepoSubmodelOfAAS:
		kind := KindForOperation(loc.Kind)
		designated := kind.SingleURI(r.primaryBase, loc.Identifier, r.rec.EncryptIDs, false)
		_, err := r.fetchSingle(ctx, kind, loc.URI, designated)
		if err == nil {
			r.mu.Lock()
			r.result.Total, r.result.Page = 1, 1
			r.mu.Unlock()
		}
		return err
	case endpoints.OpQuery:
		return r.query(ctx, loc)
	case endpoints.OpRegistryAllAAS, endpoints.OpRegistrySingleAAS, endpoints.OpRegistryAASByAssetID:
		// A registry path handed to a repository connection.
		return r.registryOperation(ctx, loc)
	case endpoints.OpRegOfRegByAssetID:
		return r.registryOfRegistriesOperation(ctx, loc)
	default:
		return common.NewErrNoOperation(location)
	}
}

// fetchSingle loads one entity; queried is the URI it is read from,
// designated the URI it will be written back to.
func (r *run) fetchSingle(ctx context.Context, kind *ElementKind, queried, designated *url.URL) (int, error) {
	entity, err := r.o.getEntity(ctx, kind, queried)
	if err != nil {
		return -1, err
	}
	if designated == nil {
		designated = queried
	}
	return r.storeLoaded(ctx, kind, entity, NewLoadedSide(entity, queried, designated))
}

// listAll reads one page of a collection and merges it into the environment.
// PageSkip entries are skipped after the request, which asks for
// PageLimit+PageSkip entries; filters are applied before the page limit.
func (r *run) listAll(ctx context.Context, kind *ElementKind, uri *url.URL) error {
	rec := r.rec
	limit := 0
	if rec.PageLimit > 0 {
		limit = rec.PageLimit + rec.PageSkip
	}
	req := endpoints.BuildListURI(uri, limit, rec.Cursor)
	collection := endpoints.WithoutQuery(uri)
	// Entities are written back to the collection of the server base, not to
	// the filtered URI they were listed from.
	home := r.primaryBase
	if home == nil {
		home = collection
	}

	doc, err := r.getJSON(ctx, req, "FETCH-LIST-STATUS")
	if err != nil {
		return err
	}
	items, cursor := envelope(doc)

	r.mu.Lock()
	r.result.Cursor = cursor
	r.result.Total += len(items)
	r.mu.Unlock()

	page := 0
	skipped, filtered, failed := 0, 0, 0
	first, last := -1, -1
	for i, item := range items {
		if i < rec.PageSkip {
			skipped++
			continue
		}
		if rec.PageLimit > 0 && page >= rec.PageLimit {
			break
		}
		entity, err := kind.Deserialize(item.Raw())
		if err != nil {
			failed++
			r.log.Warnf("FETCH-LIST-DESERIALIZE: entry %d of %s: %v", i, req, err)
			continue
		}
		if !matchesText(entity, rec.FilterText, rec.FilterCaseSensitive) ||
			!matchesExtension(entity, rec.FilterExtName, rec.FilterExtValue, rec.FilterCaseSensitive) {
			filtered++
			continue
		}
		single := kind.SingleURI(home, entity.ID(), rec.EncryptIDs, false)
		idx, err := r.storeLoaded(ctx, kind, entity, NewLoadedSide(entity, single, single))
		if err != nil {
			failed++
			r.log.Warnf("FETCH-LIST-STORE: %v", err)
			continue
		}
		if first < 0 {
			first = idx
		}
		last = idx
		page++
	}

	r.markCursors(kind, first, last)

	r.mu.Lock()
	r.result.Page += page
	r.result.Skipped += skipped
	r.result.Filtered += filtered
	r.result.Errors += failed
	r.result.EmptyAfterSkip = page == 0 && filtered == 0 && (rec.PageSkip > 0 || rec.PageOffset > 0)
	r.mu.Unlock()

	if failed > 0 {
		r.log.Warnf("FETCH-LIST-ERRORS: %d of %d entries of %s could not be loaded", failed, len(items), req)
	}
	return nil
}

// markCursors places the "previous page" marker on the first entry of a page
// that does not start at offset 0 and the "next page" marker on the last
// entry of a limited page.
func (r *run) markCursors(kind *ElementKind, first, last int) {
	if first < 0 {
		return
	}
	st := kind.Store(r.env)
	if r.rec.PageOffset > 0 {
		if _, side, _, ok := st.Get(first); ok && side != nil {
			side.ShowCursorAbove = true
			st.SetSide(first, side)
		}
	}
	if r.rec.PageLimit > 0 {
		if _, side, _, ok := st.Get(last); ok && side != nil {
			side.ShowCursorBelow = true
			st.SetSide(last, side)
		}
	}
}

// healShellList retries an empty shell list through the lookup interface of
// the same server and loads every listed shell by id.
func (r *run) healShellList(ctx context.Context, listURI *url.URL) error {
	lookup := endpoints.BuildURIForRegistryLookup(r.primaryBase, "")
	if lookup == nil {
		return nil
	}
	if q := listURI.Query(); q.Get("assetIds") != "" {
		lq := lookup.Query()
		lq.Set("assetIds", q.Get("assetIds"))
		lookup.RawQuery = lq.Encode()
	}
	r.log.Warnf("FETCH-LIST-HEAL: %s returned no shells, retrying via %s", listURI, lookup)

	r.mu.Lock()
	r.result.HealedViaLookup = true
	r.mu.Unlock()

	return r.lookupShells(ctx, lookup, r.primaryBase, true)
}

// lookupShells reads a lookup result and loads the shells it names. Plain
// ids are fetched by id from base, either from a repository (viaRepository)
// or as descriptors from a registry. Descriptor objects are processed
// directly.
func (r *run) lookupShells(ctx context.Context, lookup *url.URL, base *url.URL, viaRepository bool) error {
	doc, err := r.getJSON(ctx, lookup, "FETCH-LOOKUP-STATUS")
	if err != nil {
		return err
	}
	items, cursor := envelope(doc)

	var ids []string
	var descriptors []document.Node
	for _, item := range items {
		switch item.Kind() {
		case document.KindString:
			if id := strings.TrimSpace(item.StringOr("")); id != "" {
				ids = append(ids, id)
			}
		case document.KindObject:
			descriptors = append(descriptors, item)
		}
	}

	r.mu.Lock()
	r.result.Total += len(items)
	if cursor != "" {
		r.result.Cursor = cursor
	}
	r.mu.Unlock()
	r.log.Infof("lookup %s listed %d ids and %d descriptors", lookup, len(ids), len(descriptors))

	if err := r.fanOut(ctx, "FETCH-LOOKUP-ID", len(ids), func(ctx context.Context, i int) error {
		id := ids[i]
		if viaRepository {
			single := endpoints.BuildURIForRepoSingleAAS(base, id, r.rec.EncryptIDs, false)
			if _, err := r.fetchSingle(ctx, KindAAS, single, single); err != nil {
				return fmt.Errorf("shell %q: %w", id, err)
			}
			return nil
		}
		descURI := endpoints.BuildURIForRegistrySingleAAS(base, id, r.rec.EncryptIDs)
		desc, err := r.getJSON(ctx, descURI, "FETCH-LOOKUP-DESCRIPTOR")
		if err != nil {
			return fmt.Errorf("descriptor %q: %w", id, err)
		}
		return r.processDescriptor(ctx, desc)
	}); err != nil {
		return err
	}

	return r.fanOut(ctx, "FETCH-LOOKUP-DESCRIPTOR", len(descriptors), func(ctx context.Context, i int) error {
		d := descriptors[i]
		if _, ok := d.TryGetField("endpoints"); ok || !viaRepository {
			return r.processDescriptor(ctx, d)
		}
		entity, err := KindAAS.Deserialize(d.Raw())
		if err != nil {
			return common.NewErrDeserialize("lookup entry", err)
		}
		single := endpoints.BuildURIForRepoSingleAAS(base, entity.ID(), r.rec.EncryptIDs, false)
		_, err = r.storeLoaded(ctx, KindAAS, entity, NewLoadedSide(entity, single, single))
		return err
	})
}

// query posts the query text to /query/{elementType}. The resultType of the
// paging metadata, when present, decides how results are deserialized.
func (r *run) query(ctx context.Context, loc *endpoints.Location) error {
	text := loc.Query
	if text == "" {
		text = r.rec.QueryScript
	}
	text = common.CollapseWhitespace(text)
	if text == "" {
		return common.NewErrInvalidRecord("a query requires a query text")
	}

	kind := KindForResultType(loc.ElementType)
	if kind == nil {
		kind = KindForResultType(r.rec.QueryElementType)
	}

	postURI := endpoints.WithoutQuery(loc.URI)
	resp, err := r.o.pool.Post(ctx, postURI, transport.ContentTypeJSON, []byte(text))
	if err != nil {
		return err
	}
	if !resp.OK() {
		r.log.Errorf("FETCH-QUERY-STATUS: POST %s returned status %d", postURI, resp.StatusCode)
		return common.NewErrProtocol(postURI.String(), resp.StatusCode)
	}
	doc, err := document.Parse(resp.Body)
	if err != nil {
		return common.NewErrDeserialize(postURI.String(), err)
	}

	if rt := queryResultType(doc); rt != "" {
		if k := KindForResultType(rt); k != nil {
			kind = k
		}
		r.mu.Lock()
		r.result.ResultType = rt
		r.mu.Unlock()
	}
	if kind == nil {
		return common.NewErrInvalidRecord(fmt.Sprintf("unknown query element type %q", loc.ElementType))
	}

	items, cursor := envelope(doc)
	home := r.repoBase(kind)
	added, failed := 0, 0
	for i, item := range items {
		entity, err := kind.Deserialize(item.Raw())
		if err != nil {
			failed++
			r.log.Debugf("FETCH-QUERY-DESERIALIZE: entry %d: %v", i, err)
			continue
		}
		var single *url.URL
		if home != nil {
			single = kind.SingleURI(home, entity.ID(), r.rec.EncryptIDs, false)
		}
		if _, err := r.storeLoaded(ctx, kind, entity, NewLoadedSide(entity, single, single)); err != nil {
			failed++
			continue
		}
		added++
	}

	r.mu.Lock()
	r.result.Total += len(items)
	r.result.Page += added
	r.result.Errors += failed
	r.result.Cursor = cursor
	r.mu.Unlock()

	if failed > 0 {
		r.log.Warnf("FETCH-QUERY-ERRORS: %d of %d %s results could not be loaded", failed, len(items), kind.Name)
	} else {
		r.log.Infof("query returned %d %s results", len(items), kind.Name)
	}
	return nil
}

// queryResultType reads paging_metadata.resultType; some servers misspell
// it as resulType.
func queryResultType(doc document.Node) string {
	pm, ok := doc.TryGetFieldFold("paging_metadata")
	if !ok {
		return ""
	}
	for _, name := range []string{"resultType", "resulType"} {
		if v, ok := pm.TryGetFieldFold(name); ok {
			if s := strings.TrimSpace(v.StringOr("")); s != "" {
				return s
			}
		}
	}
	return ""
}

// submodelIDs returns the distinct submodel ids a shell references.
func submodelIDs(aas types.IAssetAdministrationShell) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, ref := range aas.Submodels() {
		id := referencedID(ref)
		if id == "" {
			continue
		}
		key := strings.ToLower(id)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, id)
	}
	return out
}

// referencedID returns the value of the last key of ref, trimmed.
func referencedID(ref types.IReference) string {
	if ref == nil {
		return ""
	}
	keys := ref.Keys()
	if len(keys) == 0 || keys[len(keys)-1] == nil {
		return ""
	}
	return strings.TrimSpace(keys[len(keys)-1].Value())
}
