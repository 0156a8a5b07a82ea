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

package renamedelete

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/FriedJannik/aas-go-sdk/jsonization"
	"github.com/stretchr/testify/require"

	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common/logger"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/endpoints"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/fetch"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/sideinfo"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/transport"
)

var base = &url.URL{Scheme: "http", Host: "repo"}

func enc(id string) string { return endpoints.EncodeIdentifier(id, true) }

func shell(id string) map[string]any {
	return map[string]any{
		"modelType":        "AssetAdministrationShell",
		"id":               id,
		"idShort":          "Robot",
		"assetInformation": map[string]any{"assetKind": "Instance"},
	}
}

func newTestAssistant(fake *transport.FakeClient, mirror *fetch.Environment) *Assistant {
	pool := transport.NewPool(fake, nil, transport.Options{}, logger.Discard())
	return New(pool, Options{EncryptIDs: true, Mirror: mirror, Logger: logger.Discard()})
}

func methods(calls []transport.RecordedCall) []string {
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Method+" "+c.URI)
	}
	return out
}

func TestRenameShellMovesThumbnail(t *testing.T) {
	t.Parallel()

	oldURI := "http://repo/shells/" + enc("urn:aas:old")
	newThumb := "http://repo/shells/" + enc("urn:aas:new") + "/asset-information/thumbnail"
	fake := transport.NewFakeClient().
		OnJSON(http.MethodGet, oldURI, 200, shell("urn:aas:old")).
		OnResponse(http.MethodGet, oldURI+"/asset-information/thumbnail", transport.FakeResponse{
			Status: 200, Body: []byte("png-bytes"), Header: http.Header{"Content-Type": []string{"image/png"}},
		}).
		On(http.MethodPost, "http://repo/shells", 201, "").
		On(http.MethodPut, newThumb, 204, "").
		On(http.MethodDelete, oldURI, 204, "")

	mirror := fetch.NewEnvironment()
	aas, err := jsonization.AssetAdministrationShellFromJsonable(shell("urn:aas:old"))
	require.NoError(t, err)
	mirror.Shells.AddIfNewWithTaint(aas, sideinfo.NewLoaded("urn:aas:old", nil, nil), sideinfo.TaintCleared)
	mirror.SetThumbnail("urn:aas:old", fetch.Thumbnail{ContentType: "image/png", Data: []byte("png-bytes")})

	newURI, err := newTestAssistant(fake, mirror).Rename(context.Background(), fetch.KindAAS, base, "urn:aas:old", "urn:aas:new")
	require.NoError(t, err)
	require.Equal(t, "http://repo/shells/"+enc("urn:aas:new"), newURI.String())

	require.Equal(t, []string{
		"GET " + oldURI,
		"GET " + oldURI + "/asset-information/thumbnail",
		"POST http://repo/shells",
		"PUT " + newThumb,
		"DELETE " + oldURI,
	}, methods(fake.Calls()))

	posted := fake.Calls()[2]
	require.Contains(t, string(posted.Body), `"urn:aas:new"`)
	require.True(t, strings.HasPrefix(fake.Calls()[3].Header.Get("Content-Type"), "multipart/form-data"))

	require.Equal(t, -1, mirror.Shells.IndexOf("urn:aas:old"))
	require.Equal(t, 0, mirror.Shells.IndexOf("urn:aas:new"))
	_, ok := mirror.Thumbnail("urn:aas:new")
	require.True(t, ok)
}

func TestRenameAbortsWhenOriginalIsMissing(t *testing.T) {
	t.Parallel()

	fake := transport.NewFakeClient()
	_, err := newTestAssistant(fake, nil).Rename(context.Background(), fetch.KindSubmodel, base, "urn:sm:old", "urn:sm:new")
	require.True(t, common.IsErrNotFound(err))
	require.Len(t, fake.Calls(), 1)
}

func TestRenameKeepsOriginalWhenCreateFails(t *testing.T) {
	t.Parallel()

	oldURI := "http://repo/submodels/" + enc("urn:sm:old")
	fake := transport.NewFakeClient().
		OnJSON(http.MethodGet, oldURI, 200, map[string]any{"modelType": "Submodel", "id": "urn:sm:old"}).
		On(http.MethodPost, "http://repo/submodels", 409, "")

	_, err := newTestAssistant(fake, nil).Rename(context.Background(), fetch.KindSubmodel, base, "urn:sm:old", "urn:sm:new")
	require.True(t, common.IsErrProtocol(err))
	require.Equal(t, 0, fake.CallCount(http.MethodDelete, "http://repo/"))
}

func TestRenameSucceedsWhenDeleteFails(t *testing.T) {
	t.Parallel()

	oldURI := "http://repo/submodels/" + enc("urn:sm:old")
	fake := transport.NewFakeClient().
		OnJSON(http.MethodGet, oldURI, 200, map[string]any{"modelType": "Submodel", "id": "urn:sm:old"}).
		On(http.MethodPost, "http://repo/submodels", 201, "").
		On(http.MethodDelete, oldURI, 500, "")

	newURI, err := newTestAssistant(fake, nil).Rename(context.Background(), fetch.KindSubmodel, base, "urn:sm:old", "urn:sm:new")
	require.NoError(t, err)
	require.NotNil(t, newURI)
	require.Equal(t, 0, fake.CallCount(http.MethodGet, "http://repo/shells"))
}

func batchFake() *transport.FakeClient {
	return transport.NewFakeClient().
		OnJSON(http.MethodGet, "http://repo/concept-descriptions/"+enc("urn:cd:a"), 200, map[string]any{"modelType": "ConceptDescription", "id": "urn:cd:a"}).
		OnJSON(http.MethodGet, "http://repo/concept-descriptions/"+enc("urn:cd:c"), 200, map[string]any{"modelType": "Submodel", "id": "urn:cd:c"}).
		On(http.MethodDelete, "http://repo/concept-descriptions/"+enc("urn:cd:a"), 204, "")
}

func TestBatchDeleteSortsAndDeletes(t *testing.T) {
	t.Parallel()

	fake := batchFake()
	mirror := fetch.NewEnvironment()
	mirror.ConceptDescriptions.AddIfNew(nil, sideinfo.NewStub("urn:cd:a", nil))

	var seen ExistenceReport
	rep, sum, err := newTestAssistant(fake, mirror).BatchDelete(context.Background(), fetch.KindConceptDescription, base,
		[]string{"urn:cd:a", "urn:cd:b", "urn:cd:c"},
		func(r ExistenceReport) bool { seen = r; return true })
	require.NoError(t, err)

	require.Equal(t, []string{"urn:cd:a"}, rep.Found)
	require.Equal(t, []string{"urn:cd:b"}, rep.NotFound)
	require.Equal(t, []string{"urn:cd:c"}, rep.WrongType)
	require.Equal(t, rep, seen)
	require.Equal(t, DeleteSummary{Deleted: 1}, sum)
	require.Equal(t, 1, fake.CallCount(http.MethodDelete, "http://repo/"))
	require.Equal(t, 0, mirror.ConceptDescriptions.Len())
}

func TestBatchDeleteHonoursConfirmation(t *testing.T) {
	t.Parallel()

	fake := batchFake()
	_, sum, err := newTestAssistant(fake, nil).BatchDelete(context.Background(), fetch.KindConceptDescription, base,
		[]string{"urn:cd:a", "urn:cd:c"}, func(ExistenceReport) bool { return false })
	require.NoError(t, err)
	require.True(t, sum.Declined)
	require.Equal(t, 0, fake.CallCount(http.MethodDelete, "http://repo/"))
}

func TestCheckExistenceCountsUncheckedIDsAsFailed(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fake := transport.NewFakeClient().Fallback(func(*http.Request) transport.FakeResponse {
		cancel()
		return transport.FakeResponse{Status: http.StatusNotFound}
	})
	pool := transport.NewPool(fake, nil, transport.Options{}, logger.Discard())
	a := New(pool, Options{ParallelReads: 1, EncryptIDs: true, Logger: logger.Discard()})

	ids := []string{"urn:cd:a", "urn:cd:b", "urn:cd:c", "urn:cd:d"}
	rep, err := a.CheckExistence(ctx, fetch.KindConceptDescription, base, ids)
	require.True(t, common.IsErrCanceled(err))
	require.Empty(t, rep.Found)
	require.Empty(t, rep.WrongType)
	require.Equal(t, len(ids), len(rep.NotFound)+len(rep.Failed))
	require.LessOrEqual(t, len(rep.NotFound), 1)
}

func TestCheckExistenceUnparsableBodyIsFailed(t *testing.T) {
	t.Parallel()

	fake := transport.NewFakeClient().
		On(http.MethodGet, "http://repo/concept-descriptions/"+enc("urn:cd:x"), 200, "<html>maintenance</html>")
	rep, err := newTestAssistant(fake, nil).CheckExistence(context.Background(), fetch.KindConceptDescription, base, []string{"urn:cd:x"})
	require.NoError(t, err)
	require.Equal(t, []string{"urn:cd:x"}, rep.Failed)
	require.Empty(t, rep.WrongType)
}

func TestDeleteConfirmedWithoutConfirmationDeclines(t *testing.T) {
	t.Parallel()

	fake := batchFake()
	rep := ExistenceReport{Found: []string{"urn:cd:a"}}
	sum, err := newTestAssistant(fake, nil).DeleteConfirmed(context.Background(), fetch.KindConceptDescription, base, rep, nil)
	require.NoError(t, err)
	require.True(t, sum.Declined)
	require.Equal(t, 0, fake.CallCount(http.MethodDelete, "http://repo/"))
}

func submodelWithFiles(id string) map[string]any {
	return map[string]any{
		"modelType": "Submodel",
		"id":        id,
		"submodelElements": []any{
			map[string]any{
				"modelType": "SubmodelElementCollection",
				"idShort":   "Docs",
				"value": []any{
					map[string]any{"modelType": "File", "idShort": "My File", "contentType": "application/pdf", "value": "/aasx/a.pdf"},
					map[string]any{"modelType": "File", "idShort": "Manual", "contentType": "application/pdf", "value": "/aasx/manual.pdf"},
				},
			},
			map[string]any{
				"modelType":            "SubmodelElementList",
				"idShort":              "Gallery",
				"typeValueListElement": "File",
				"value": []any{
					map[string]any{"modelType": "File", "contentType": "image/png", "value": "front.png"},
				},
			},
		},
	}
}

func attachment(smID, idShortPath string) string {
	return "http://repo/submodels/" + enc(smID) + "/submodel-elements/" + idShortPath + "/attachment"
}

func TestRenameSubmodelCopiesAttachments(t *testing.T) {
	t.Parallel()

	oldURI := "http://repo/submodels/" + enc("urn:sm:old")
	fake := transport.NewFakeClient().
		OnJSON(http.MethodGet, oldURI, 200, submodelWithFiles("urn:sm:old")).
		On(http.MethodPost, "http://repo/submodels", 201, "").
		OnResponse(http.MethodGet, attachment("urn:sm:old", "Docs.Manual"), transport.FakeResponse{
			Status: 200, Body: []byte("%PDF"), Header: http.Header{"Content-Type": []string{"application/pdf"}},
		}).
		On(http.MethodGet, attachment("urn:sm:old", "Gallery%5B0%5D"), 200, "png-bytes").
		On(http.MethodPut, attachment("urn:sm:new", "Docs.Manual"), 204, "").
		On(http.MethodPut, attachment("urn:sm:new", "Gallery%5B0%5D"), 204, "").
		On(http.MethodDelete, oldURI, 204, "")

	_, err := newTestAssistant(fake, nil).Rename(context.Background(), fetch.KindSubmodel, base, "urn:sm:old", "urn:sm:new")
	require.NoError(t, err)

	require.Equal(t, 2, fake.CallCount(http.MethodPut, "http://repo/submodels/"+enc("urn:sm:new")))
	require.Equal(t, 2, fake.CallCount(http.MethodGet, oldURI+"/submodel-elements/"))
	for _, c := range fake.Calls() {
		require.NotContains(t, c.URI, "My")
	}
	calls := methods(fake.Calls())
	require.Equal(t, "DELETE "+oldURI, calls[len(calls)-1])
}

func TestCopyAttachmentsContinuesPastFailures(t *testing.T) {
	t.Parallel()

	jsonable := submodelWithFiles("urn:sm:a")
	sm, err := jsonization.SubmodelFromJsonable(jsonable)
	require.NoError(t, err)

	fake := transport.NewFakeClient().
		On(http.MethodGet, attachment("urn:sm:a", "Docs.Manual"), 500, "").
		On(http.MethodGet, attachment("urn:sm:a", "Gallery%5B0%5D"), 200, "png-bytes").
		On(http.MethodPut, attachment("urn:sm:b", "Gallery%5B0%5D"), 204, "")

	sum := newTestAssistant(fake, nil).CopyAttachments(context.Background(), base, sm, "urn:sm:a", "urn:sm:b")
	require.Equal(t, AttachmentSummary{OK: 1, Failed: 1, Skipped: 1, Total: 3}, sum)
	require.Equal(t, 1, fake.CallCount(http.MethodPut, "http://repo/"))
}
