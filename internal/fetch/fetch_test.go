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
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common/logger"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/endpoints"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/sideinfo"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/transport"
)

func shellJSON(id string, submodelIDs ...string) map[string]any {
	refs := make([]any, 0, len(submodelIDs))
	for _, sm := range submodelIDs {
		refs = append(refs, map[string]any{
			"type": "ModelReference",
			"keys": []any{map[string]any{"type": "Submodel", "value": sm}},
		})
	}
	shell := map[string]any{
		"modelType": "AssetAdministrationShell",
		"id":        id,
		"assetInformation": map[string]any{
			"assetKind":     "Instance",
			"globalAssetId": id + ":asset",
		},
	}
	if len(refs) > 0 {
		shell["submodels"] = refs
	}
	return shell
}

func submodelJSON(id string) map[string]any {
	return map[string]any{"modelType": "Submodel", "id": id}
}

func page(cursor string, items ...any) map[string]any {
	doc := map[string]any{"result": items}
	if cursor != "" {
		doc["paging_metadata"] = map[string]any{"cursor": cursor}
	}
	return doc
}

func enc(id string) string { return endpoints.EncodeIdentifier(id, true) }

func newTestOrchestrator(fake *transport.FakeClient, opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	pool := transport.NewPool(fake, nil, transport.Options{}, logger.Discard())
	return NewOrchestrator(pool, opts)
}

func listRecord() *ConnectionRecord {
	rec := NewConnectionRecord(BaseRepository)
	rec.AutoLoadSubmodels = false
	rec.HealAasListViaLookup = false
	return rec
}

func TestListAllPagesWithSkipAndCursorMarkers(t *testing.T) {
	t.Parallel()

	fake := transport.NewFakeClient().OnJSON(http.MethodGet, "http://repo/shells", 200, page("c2",
		shellJSON("urn:aas:0"), shellJSON("urn:aas:1"), shellJSON("urn:aas:2"), shellJSON("urn:aas:3"),
	))
	o := newTestOrchestrator(fake, Options{})

	rec := listRecord()
	rec.PageLimit, rec.PageSkip, rec.PageOffset = 2, 1, 3

	env, err := o.LoadFromSource(context.Background(), "http://repo/shells", nil, rec)
	require.NoError(t, err)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, "http://repo/shells?Limit=3", calls[0].URI)

	slots := env.Shells.Snapshot()
	require.Len(t, slots, 2)
	require.Equal(t, "urn:aas:1", slots[0].ID())
	require.Equal(t, "urn:aas:2", slots[1].ID())
	require.True(t, slots[0].Side.ShowCursorAbove)
	require.False(t, slots[0].Side.ShowCursorBelow)
	require.True(t, slots[1].Side.ShowCursorBelow)
	require.Equal(t, "http://repo/shells/"+enc("urn:aas:1"), slots[0].Side.DesignatedEndpoint.String())

	res := env.FetchContext().Result
	require.Equal(t, 2, res.Page)
	require.Equal(t, 1, res.Skipped)
	require.Equal(t, "c2", res.Cursor)
	require.False(t, res.EmptyAfterSkip)
}

func TestFirstPageHasNoCursorAbove(t *testing.T) {
	t.Parallel()

	fake := transport.NewFakeClient().OnJSON(http.MethodGet, "http://repo/shells", 200, page("",
		shellJSON("urn:aas:0"), shellJSON("urn:aas:1"),
	))
	o := newTestOrchestrator(fake, Options{})

	rec := listRecord()
	rec.PageLimit = 5

	env, err := o.LoadFromSource(context.Background(), "http://repo/shells", nil, rec)
	require.NoError(t, err)
	slots := env.Shells.Snapshot()
	require.Len(t, slots, 2)
	require.False(t, slots[0].Side.ShowCursorAbove)
	require.True(t, slots[1].Side.ShowCursorBelow)
}

func TestEmptyAfterSkip(t *testing.T) {
	t.Parallel()

	fake := transport.NewFakeClient().OnJSON(http.MethodGet, "http://repo/shells", 200, page("",
		shellJSON("urn:aas:0"), shellJSON("urn:aas:1"),
	))
	o := newTestOrchestrator(fake, Options{})

	rec := listRecord()
	rec.PageLimit, rec.PageSkip = 2, 2

	env, err := o.LoadFromSource(context.Background(), "http://repo/shells", nil, rec)
	require.NoError(t, err)
	require.Equal(t, 0, env.Shells.Len())
	require.True(t, env.FetchContext().Result.EmptyAfterSkip)
}

func TestListAllAppliesFilters(t *testing.T) {
	t.Parallel()

	pump := shellJSON("urn:aas:pump")
	pump["idShort"] = "Pump"
	pump["extensions"] = []any{map[string]any{"name": "site", "value": "Berlin"}}
	valve := shellJSON("urn:aas:valve")
	valve["idShort"] = "Valve"
	valve["extensions"] = []any{map[string]any{"name": "site", "value": "Munich"}}

	fake := transport.NewFakeClient().OnJSON(http.MethodGet, "http://repo/shells", 200, page("", pump, valve))
	o := newTestOrchestrator(fake, Options{})

	rec := listRecord()
	rec.FilterText = "PUMP"
	env, err := o.LoadFromSource(context.Background(), "http://repo/shells", nil, rec)
	require.NoError(t, err)
	require.Equal(t, 1, env.Shells.Len())
	require.Equal(t, 1, env.FetchContext().Result.Filtered)

	rec = listRecord()
	rec.FilterText = "PUMP"
	rec.FilterCaseSensitive = true
	env, err = o.LoadFromSource(context.Background(), "http://repo/shells", nil, rec)
	require.NoError(t, err)
	require.Equal(t, 0, env.Shells.Len())
	require.False(t, env.FetchContext().Result.EmptyAfterSkip)

	rec = listRecord()
	rec.FilterExtName, rec.FilterExtValue = "site", "munich"
	env, err = o.LoadFromSource(context.Background(), "http://repo/shells", nil, rec)
	require.NoError(t, err)
	require.Equal(t, 1, env.Shells.Len())
	require.GreaterOrEqual(t, env.Shells.IndexOf("urn:aas:valve"), 0)
}

func TestBadEntriesAreCountedNotFatal(t *testing.T) {
	t.Parallel()

	fake := transport.NewFakeClient().OnJSON(http.MethodGet, "http://repo/submodels", 200, page("",
		submodelJSON("urn:sm:1"), map[string]any{"idShort": 17}, submodelJSON("urn:sm:2"),
	))
	o := newTestOrchestrator(fake, Options{})

	env, err := o.LoadFromSource(context.Background(), "http://repo/submodels", nil, listRecord())
	require.NoError(t, err)
	require.Equal(t, 2, env.Submodels.Len())
	require.Equal(t, 1, env.FetchContext().Result.Errors)
}

func TestParallelSubmodelAutoLoadIsComplete(t *testing.T) {
	t.Parallel()

	ids := make([]string, 100)
	for i := range ids {
		ids[i] = fmt.Sprintf("urn:sm:%03d", i)
	}

	for round := 0; round < 10; round++ {
		fake := transport.NewFakeClient().
			OnJSON(http.MethodGet, "http://repo/shells", 200, page("", shellJSON("urn:aas:big", ids...))).
			Fallback(func(req *http.Request) transport.FakeResponse {
				segment := strings.TrimPrefix(req.URL.Path, "/submodels/")
				id, err := common.DecodeString(segment)
				if err != nil || segment == req.URL.Path {
					return transport.FakeResponse{Status: http.StatusNotFound}
				}
				body, _ := common.Marshal(submodelJSON(id))
				return transport.FakeResponse{Status: http.StatusOK, Body: body}
			})
		o := newTestOrchestrator(fake, Options{ParallelReads: 8})

		rec := NewConnectionRecord(BaseRepository)
		rec.AutoLoadOnDemand = false

		env, err := o.LoadFromSource(context.Background(), "http://repo/shells", nil, rec)
		require.NoError(t, err)
		require.Equal(t, 100, env.Submodels.Len(), "round %d", round)
		require.Empty(t, env.Submodels.Stubs())

		seen := make(map[string]bool)
		for _, sm := range env.Submodels.Items() {
			require.False(t, seen[sm.ID()], "duplicate %s", sm.ID())
			seen[sm.ID()] = true
		}
		for _, id := range ids {
			require.True(t, seen[id], "missing %s", id)
		}
		require.Len(t, env.NewThisSession(), 101)
	}
}

func TestOnDemandRegistersStubsAndHydrates(t *testing.T) {
	t.Parallel()

	fake := transport.NewFakeClient().
		OnJSON(http.MethodGet, "http://repo/shells", 200, page("", shellJSON("urn:aas:1", "urn:sm:a", "urn:sm:b"))).
		OnJSON(http.MethodGet, "http://repo/submodels/"+enc("urn:sm:b"), 200, submodelJSON("urn:sm:b"))
	o := newTestOrchestrator(fake, Options{})

	env, err := o.LoadFromSource(context.Background(), "http://repo/shells", nil, NewConnectionRecord(BaseRepository))
	require.NoError(t, err)
	require.Equal(t, 2, env.Submodels.Len())
	require.Len(t, env.Submodels.Stubs(), 2)
	require.Equal(t, 1, fake.CallCount(http.MethodGet, "http://repo/"))

	idx := env.Submodels.IndexOf("urn:sm:b")
	require.NoError(t, o.HydrateStub(context.Background(), env, KindSubmodel, idx))
	slot, ok := env.Submodels.Get(idx)
	require.True(t, ok)
	require.True(t, slot.HasData())
	require.False(t, slot.Side.IsStub)

	err = o.HydrateStub(context.Background(), env, KindSubmodel, env.Submodels.IndexOf("urn:sm:a"))
	require.Error(t, err)
	require.True(t, common.IsErrProtocol(err))
}

func TestEmptyShellListIsHealedViaLookup(t *testing.T) {
	t.Parallel()

	fake := transport.NewFakeClient().
		OnJSON(http.MethodGet, "http://repo/shells", 200, page("")).
		OnJSON(http.MethodGet, "http://repo/lookup/shells", 200, page("", "urn:aas:hidden")).
		OnJSON(http.MethodGet, "http://repo/shells/"+enc("urn:aas:hidden"), 200, shellJSON("urn:aas:hidden"))
	o := newTestOrchestrator(fake, Options{})

	env, err := o.LoadFromSource(context.Background(), "http://repo/shells", nil, NewConnectionRecord(BaseRepository))
	require.NoError(t, err)
	require.Equal(t, 1, env.Shells.Len())
	require.True(t, env.FetchContext().Result.HealedViaLookup)

	rec := NewConnectionRecord(BaseRepository)
	rec.HealAasListViaLookup = false
	env, err = o.LoadFromSource(context.Background(), "http://repo/shells", nil, rec)
	require.NoError(t, err)
	require.Equal(t, 0, env.Shells.Len())
}

func TestEmptyShellListIsHealedViaLookupDescriptor(t *testing.T) {
	t.Parallel()

	aasHref := "http://other/shells/" + enc("urn:aas:described")
	smHref := "http://other/submodels/" + enc("urn:sm:1")
	fake := transport.NewFakeClient().
		OnJSON(http.MethodGet, "http://repo/shells", 200, page("")).
		OnJSON(http.MethodGet, "http://repo/lookup/shells", 200,
			page("", descriptor("urn:aas:described", aasHref, map[string]string{"urn:sm:1": smHref}))).
		OnJSON(http.MethodGet, aasHref, 200, shellJSON("urn:aas:described", "urn:sm:1"))
	o := newTestOrchestrator(fake, Options{})

	env, err := o.LoadFromSource(context.Background(), "http://repo/shells", nil, NewConnectionRecord(BaseRepository))
	require.NoError(t, err)
	require.True(t, env.FetchContext().Result.HealedViaLookup)

	shells := env.Shells.Items()
	require.Len(t, shells, 1)
	require.Equal(t, "urn:aas:described", shells[0].ID())
	slot, ok := env.Shells.GetByID("urn:aas:described")
	require.True(t, ok)
	require.Equal(t, aasHref, slot.Side.QueriedEndpoint.String())

	stub, ok := env.Submodels.GetByID("urn:sm:1")
	require.True(t, ok)
	require.False(t, stub.HasData())
	require.Equal(t, smHref, stub.Side.DesignatedEndpoint.String())
	require.Equal(t, 0, fake.CallCount(http.MethodGet, "http://repo/shells/"))
}

func descriptor(aasID, aasHref string, submodels map[string]string) map[string]any {
	var smds []any
	for _, id := range []string{"urn:sm:1", "urn:sm:2", "urn:sm:3"} {
		href, ok := submodels[id]
		if !ok {
			continue
		}
		smds = append(smds, map[string]any{
			"id":      id,
			"idShort": strings.ReplaceAll(strings.TrimPrefix(id, "urn:"), ":", "_"),
			"endpoints": []any{map[string]any{
				"interface":           "SUBMODEL-1.0",
				"protocolInformation": map[string]any{"href": href},
			}},
		})
	}
	return map[string]any{
		"id": aasID,
		"endpoints": []any{
			map[string]any{"interface": "AASx-1.0", "protocolInformation": map[string]any{"href": "http://wrong/"}},
			map[string]any{"interface": "AAS-1.0", "protocolInformation": map[string]any{"href": aasHref}},
		},
		"submodelDescriptors": smds,
	}
}

func TestRegistryRebuildsSubmodelReferences(t *testing.T) {
	t.Parallel()

	aasHref := "http://repo/shells/" + enc("urn:aas:1")
	sms := map[string]string{
		"urn:sm:1": "http://repo/submodels/" + enc("urn:sm:1"),
		"urn:sm:2": "http://repo/submodels/" + enc("urn:sm:2"),
		"urn:sm:3": "http://repo/submodels/" + enc("urn:sm:3"),
	}
	fake := transport.NewFakeClient().
		OnJSON(http.MethodGet, "http://reg/shell-descriptors/"+enc("urn:aas:1"), 200, descriptor("urn:aas:1", aasHref, sms)).
		OnJSON(http.MethodGet, aasHref, 200, shellJSON("urn:aas:1", "urn:sm:1", "urn:sm:2"))

	var logs bytes.Buffer
	o := newTestOrchestrator(fake, Options{Logger: logger.NewWithWriter("AASFETCH", &logs)})

	rec := NewConnectionRecord(BaseRegistry)
	rec.SelectOperation(OperationSingleAAS)
	rec.ItemID = "urn:aas:1"

	env, err := o.LoadFromSource(context.Background(), "http://reg", nil, rec)
	require.NoError(t, err)
	require.Contains(t, logs.String(), "FETCH-REG-SMCOUNT")

	shells := env.Shells.Items()
	require.Len(t, shells, 1)
	require.Len(t, shells[0].Submodels(), 3)
	require.Equal(t, "urn:sm:3", referencedID(shells[0].Submodels()[2]))

	slot, ok := env.Shells.GetByID("urn:aas:1")
	require.True(t, ok)
	require.Equal(t, aasHref, slot.Side.QueriedEndpoint.String())

	require.Equal(t, 3, env.Submodels.Len())
	stub, ok := env.Submodels.GetByID("urn:sm:2")
	require.True(t, ok)
	require.False(t, stub.HasData())
	require.Equal(t, sms["urn:sm:2"], stub.Side.QueriedEndpoint.String())
	require.Equal(t, "sm_2", stub.Side.IDShort)
}

func TestRegistryEagerSubmodelLoad(t *testing.T) {
	t.Parallel()

	aasHref := "http://repo/shells/" + enc("urn:aas:1")
	sms := map[string]string{
		"urn:sm:1": "http://repo/submodels/" + enc("urn:sm:1"),
		"urn:sm:2": "http://repo/submodels/" + enc("urn:sm:2"),
	}
	fake := transport.NewFakeClient().
		OnJSON(http.MethodGet, "http://reg/shell-descriptors", 200, page("", descriptor("urn:aas:1", aasHref, sms))).
		OnJSON(http.MethodGet, aasHref, 200, shellJSON("urn:aas:1", "urn:sm:1", "urn:sm:2")).
		OnJSON(http.MethodGet, sms["urn:sm:1"], 200, submodelJSON("urn:sm:1"))

	rec := NewConnectionRecord(BaseRegistry)
	rec.AutoLoadOnDemand = false

	env, err := newTestOrchestrator(fake, Options{}).LoadFromSource(context.Background(), "http://reg/shell-descriptors", nil, rec)
	require.NoError(t, err)
	require.Equal(t, 1, env.Shells.Len())
	require.Equal(t, 1, env.Submodels.Len())
	require.Equal(t, 1, env.FetchContext().Result.Errors)
}

func TestRegistryOfRegistriesResolvesAsset(t *testing.T) {
	t.Parallel()

	aasHref := "http://repo/shells/" + enc("urn:aas:1")
	fake := transport.NewFakeClient().
		OnJSON(http.MethodGet, "http://ror/registry-descriptors/"+common.EncodeString("urn:asset:1"), 200,
			[]any{map[string]any{"url": "http://reg", "info": "plant"}, map[string]any{"info": "broken"}}).
		OnJSON(http.MethodGet, "http://reg/lookup/shells", 200, page("", "urn:aas:1")).
		OnJSON(http.MethodGet, "http://reg/shell-descriptors/"+enc("urn:aas:1"), 200, descriptor("urn:aas:1", aasHref, nil)).
		OnJSON(http.MethodGet, aasHref, 200, shellJSON("urn:aas:1"))

	rec := NewConnectionRecord(BaseRegistryOfRegistries)
	rec.SelectOperation(OperationAASByAssetID)
	rec.AssetID = "urn:asset:1"

	env, err := newTestOrchestrator(fake, Options{}).LoadFromSource(context.Background(), "http://ror", nil, rec)
	require.NoError(t, err)
	require.Equal(t, 1, env.Shells.Len())

	var lookup string
	for _, c := range fake.Calls() {
		if strings.HasPrefix(c.URI, "http://reg/lookup/shells") {
			lookup = c.URI
		}
	}
	require.Contains(t, lookup, "assetIds=")
}

func TestQueryHonoursMisspelledResultType(t *testing.T) {
	t.Parallel()

	fake := transport.NewFakeClient().OnJSON(http.MethodPost, "http://repo/query/shells", 200, map[string]any{
		"paging_metadata": map[string]any{"resulType": "submodel"},
		"result":          []any{submodelJSON("urn:sm:q"), map[string]any{"id": 5}},
	})
	o := newTestOrchestrator(fake, Options{})

	rec := listRecord()
	rec.SelectOperation(OperationQuery)
	location := endpoints.BuildURIForQuery(endpoints.ParseBase("http://repo"), "shells", "select   *\n where x").String()

	env, err := o.LoadFromSource(context.Background(), location, nil, rec)
	require.NoError(t, err)
	require.Equal(t, 0, env.Shells.Len())
	require.Equal(t, 1, env.Submodels.Len())

	res := env.FetchContext().Result
	require.Equal(t, "submodel", res.ResultType)
	require.Equal(t, 1, res.Errors)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, "select * where x", string(calls[0].Body))
}

func TestQueryWithoutTextIsRejected(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(transport.NewFakeClient(), Options{})
	rec := listRecord()
	rec.SelectOperation(OperationQuery)

	_, err := o.LoadFromSource(context.Background(), "http://repo", nil, rec)
	require.True(t, common.IsErrInvalidRecord(err))
}

func TestFetchMoreContinuesWithCursor(t *testing.T) {
	t.Parallel()

	fake := transport.NewFakeClient().
		OnJSON(http.MethodGet, "http://repo/shells?Limit=1", 200, page("next", shellJSON("urn:aas:1"))).
		OnJSON(http.MethodGet, "http://repo/shells?Cursor=next&Limit=1", 200, page("", shellJSON("urn:aas:2")))
	o := newTestOrchestrator(fake, Options{})

	rec := listRecord()
	rec.PageLimit = 1

	env, err := o.LoadFromSource(context.Background(), "http://repo/shells", nil, rec)
	require.NoError(t, err)
	require.Equal(t, "next", env.FetchContext().Cursor)

	env, err = o.FetchMore(context.Background(), env)
	require.NoError(t, err)
	require.Equal(t, 2, env.Shells.Len())

	slot, ok := env.Shells.GetByID("urn:aas:2")
	require.True(t, ok)
	require.True(t, slot.Side.ShowCursorAbove)
	require.Equal(t, 1, env.FetchContext().Record.PageOffset)

	_, err = o.FetchMore(context.Background(), env)
	require.True(t, common.IsErrNotFound(err))
}

func TestProgressEvents(t *testing.T) {
	t.Parallel()

	fake := transport.NewFakeClient().OnJSON(http.MethodGet, "http://repo/shells", 200, page("",
		shellJSON("urn:aas:1"), shellJSON("urn:aas:2"),
	))
	events := make(chan ProgressEvent, 16)
	o := newTestOrchestrator(fake, Options{Progress: events})

	_, err := o.LoadFromSource(context.Background(), "http://repo/shells", nil, listRecord())
	require.NoError(t, err)
	close(events)

	var got []ProgressEvent
	for ev := range events {
		got = append(got, ev)
	}
	require.Len(t, got, 4)
	started, ok := got[0].(Started)
	require.True(t, ok)
	require.Equal(t, "http://repo/shells", started.Location)
	finished, ok := got[3].(Finished)
	require.True(t, ok)
	require.NoError(t, finished.Err)
	require.Equal(t, 2, finished.Counts.AAS)
	require.Equal(t, started.OpID, finished.OpID)
}

func TestPrimaryFailures(t *testing.T) {
	t.Parallel()

	fake := transport.NewFakeClient().On(http.MethodGet, "http://repo/shells", 500, "boom")
	o := newTestOrchestrator(fake, Options{})

	_, err := o.LoadFromSource(context.Background(), "http://repo/shells", nil, listRecord())
	require.True(t, common.IsErrProtocol(err))

	_, err = o.LoadFromSource(context.Background(), "http://repo/unknown/path", nil, listRecord())
	require.True(t, common.IsErrNoOperation(err))

	_, err = o.LoadFromSource(context.Background(), "http://repo/shells", nil, nil)
	require.True(t, common.IsErrInvalidRecord(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = o.LoadFromSource(ctx, "http://repo/shells", nil, listRecord())
	require.True(t, common.IsErrCanceled(err))
}

func TestExistingEntitiesWinOverFetch(t *testing.T) {
	t.Parallel()

	fake := transport.NewFakeClient().OnJSON(http.MethodGet, "http://repo/shells", 200, page("", shellJSON("urn:aas:1")))
	o := newTestOrchestrator(fake, Options{})

	env, err := o.LoadFromSource(context.Background(), "http://repo/shells", nil, listRecord())
	require.NoError(t, err)
	first := env.Shells.Items()[0]
	require.True(t, env.MarkTainted("urn:aas:1"))

	env, err = o.LoadFromSource(context.Background(), "http://repo/shells", env, listRecord())
	require.NoError(t, err)
	require.Equal(t, 1, env.Shells.Len())
	require.Same(t, first, env.Shells.Items()[0])
	require.Equal(t, 0, env.FetchContext().Result.Added)
}

func TestOnDemandLoadsHonourPlainIDs(t *testing.T) {
	t.Parallel()

	fake := transport.NewFakeClient().
		OnJSON(http.MethodGet, "http://repo/submodels/urn:sm:plain", 200, submodelJSON("urn:sm:plain")).
		OnResponse(http.MethodGet, "http://repo/shells/urn:aas:plain/asset-information/thumbnail", transport.FakeResponse{
			Status: 200, Body: []byte("png-bytes"), Header: http.Header{"Content-Type": []string{"image/png"}},
		})
	o := newTestOrchestrator(fake, Options{BaseURIs: endpoints.BaseURIDict{"*": "http://repo"}, EncryptIDs: false})

	env := NewEnvironment()
	idx, _ := env.Submodels.AddIfNew(nil, sideinfo.NewStub("urn:sm:plain", nil))
	require.NoError(t, o.HydrateStub(context.Background(), env, KindSubmodel, idx))
	slot, ok := env.Submodels.Get(idx)
	require.True(t, ok)
	require.True(t, slot.HasData())

	aas, err := KindAAS.Deserialize(shellJSON("urn:aas:plain"))
	require.NoError(t, err)
	_, _, err = KindAAS.Store(env).AddIfNew(aas, nil, sideinfo.TaintCleared)
	require.NoError(t, err)
	thumb, err := o.LoadThumbnail(context.Background(), env, "urn:aas:plain")
	require.NoError(t, err)
	require.Equal(t, []byte("png-bytes"), thumb.Data)

	// the record of the last fetch decides over the options
	rec := NewConnectionRecord(BaseRepository)
	rec.EncryptIDs = true
	env = NewEnvironment()
	env.RestoreFetchContext(FetchContext{Record: rec, Location: "http://repo/shells"})
	idx, _ = env.Submodels.AddIfNew(nil, sideinfo.NewStub("urn:sm:plain", nil))
	require.Error(t, o.HydrateStub(context.Background(), env, KindSubmodel, idx))
	require.Equal(t, 1, fake.CallCount(http.MethodGet, "http://repo/submodels/"+enc("urn:sm:plain")))
}
