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

// Package endpoints classifies AAS server URIs by the operation they address
// and builds canonical URIs for repositories, registries, discovery,
// registry-of-registries and query endpoints. It performs no I/O; malformed
// input yields OpNone or nil instead of an error.
package endpoints

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common"
)

// OperationKind is the remote operation a URI addresses.
type OperationKind int

const (
	OpNone OperationKind = iota
	OpRepoAllAAS
	OpRepoSingleAAS
	OpRepoAASByAssetID
	OpRepoAllSubmodels
	OpRepoSingleSubmodel
	OpRepoSubmodelOfAAS
	OpRepoAllCDs
	OpRepoSingleCD
	OpRegistryAllAAS
	OpRegistrySingleAAS
	OpRegistryAASByAssetID
	OpRegOfRegByAssetID
	OpQuery
)

var operationNames = map[OperationKind]string{
	OpNone:                 "None",
	OpRepoAllAAS:           "RepoAllAAS",
	OpRepoSingleAAS:        "RepoSingleAAS",
	OpRepoAASByAssetID:     "RepoAASByAssetId",
	OpRepoAllSubmodels:     "RepoAllSubmodels",
	OpRepoSingleSubmodel:   "RepoSingleSubmodel",
	OpRepoSubmodelOfAAS:    "RepoSubmodelOfAAS",
	OpRepoAllCDs:           "RepoAllConceptDescriptions",
	OpRepoSingleCD:         "RepoSingleConceptDescription",
	OpRegistryAllAAS:       "RegistryAllAAS",
	OpRegistrySingleAAS:    "RegistrySingleAAS",
	OpRegistryAASByAssetID: "RegistryAASByAssetId",
	OpRegOfRegByAssetID:    "RegOfRegByAssetId",
	OpQuery:                "Query",
}

func (k OperationKind) String() string {
	if n, ok := operationNames[k]; ok {
		return n
	}
	return "Unknown"
}

type routeEntry struct {
	Pattern string
	Kind    OperationKind
	// Terminal entries stop the suffix search without producing an
	// operation; they shadow shorter, less specific matches such as the
	// "/submodels" tail of "/shells/{id}/submodels".
	Terminal bool
}

var routeTable = []routeEntry{
	{"/shells", OpRepoAllAAS, false},
	{"/shells/{aasIdentifier}", OpRepoSingleAAS, false},
	{"/shells/{aasIdentifier}/submodels", OpNone, true},
	{"/shells/{aasIdentifier}/submodels/{submodelIdentifier}", OpRepoSubmodelOfAAS, false},
	{"/shells/{aasIdentifier}/asset-information", OpNone, true},
	{"/shells/{aasIdentifier}/asset-information/thumbnail", OpNone, true},
	{"/submodels", OpRepoAllSubmodels, false},
	{"/submodels/{submodelIdentifier}", OpRepoSingleSubmodel, false},
	{"/submodels/{submodelIdentifier}/submodel-elements", OpNone, true},
	{"/concept-descriptions", OpRepoAllCDs, false},
	{"/concept-descriptions/{cdIdentifier}", OpRepoSingleCD, false},
	{"/shell-descriptors", OpRegistryAllAAS, false},
	{"/shell-descriptors/{aasIdentifier}", OpRegistrySingleAAS, false},
	{"/shell-descriptors/{aasIdentifier}/submodel-descriptors", OpNone, true},
	{"/lookup/shells", OpRegistryAASByAssetID, false},
	{"/lookup/shells/{aasIdentifier}", OpNone, true},
	{"/registry-descriptors", OpNone, true},
	{"/registry-descriptors/{registryIdentifier}", OpRegOfRegByAssetID, false},
	{"/query/{elementType}", OpQuery, false},
}

var (
	classifier     = chi.NewRouter()
	routeByPattern = map[string]routeEntry{}
)

func init() {
	noop := func(http.ResponseWriter, *http.Request) {}
	for _, rt := range routeTable {
		classifier.Get(rt.Pattern, noop)
		routeByPattern[rt.Pattern] = rt
	}
}

// Location is a classified URI with the parameters extracted from it.
type Location struct {
	Kind OperationKind
	URI  *url.URL

	// Identifier is the decoded id of single-entity operations.
	Identifier string
	// AASIdentifier is the decoded shell id of OpRepoSubmodelOfAAS.
	AASIdentifier string
	// AssetID is the decoded asset id of asset lookups.
	AssetID string
	// ElementType is the {elementType} segment of OpQuery.
	ElementType string
	// Query is the base64url-decoded "query" parameter of OpQuery.
	Query string
}

// ClassifyLocation returns the operation the URI addresses, or OpNone.
func ClassifyLocation(uri string) OperationKind {
	loc := ParseLocation(uri)
	if loc == nil {
		return OpNone
	}
	return loc.Kind
}

// ParseLocation classifies the URI and extracts its parameters. It returns
// nil for unparsable or non-absolute URIs and for URIs matching no operation.
//
// The path is matched tail first against the route table: the longest tail
// matching a route wins, so any base path in front of the API is ignored. A
// path containing a "query" segment only classifies as OpQuery, and an
// "assetIds" parameter turns the shell list into an asset lookup.
func ParseLocation(uri string) *Location {
	u, err := url.Parse(strings.TrimSpace(uri))
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil
	}

	segments := splitPath(u.EscapedPath())
	hasQuerySegment := false
	for _, s := range segments {
		if s == "query" {
			hasQuerySegment = true
			break
		}
	}

	for i := 0; i < len(segments); i++ {
		rt, rctx, ok := matchRoute("/" + strings.Join(segments[i:], "/"))
		if !ok {
			continue
		}
		if rt.Terminal {
			return nil
		}
		if hasQuerySegment && rt.Kind != OpQuery {
			return nil
		}
		loc := &Location{Kind: rt.Kind, URI: u}
		if !fillParameters(loc, rctx, u.Query()) {
			return nil
		}
		return loc
	}
	return nil
}

// matchRoute matches an escaped path exactly against the route table.
func matchRoute(path string) (routeEntry, *chi.Context, bool) {
	rctx := chi.NewRouteContext()
	pattern := classifier.Find(rctx, http.MethodGet, path)
	if pattern == "" {
		return routeEntry{}, nil, false
	}
	rt, ok := routeByPattern[pattern]
	return rt, rctx, ok
}

func splitPath(escaped string) []string {
	var out []string
	for _, s := range strings.Split(escaped, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func fillParameters(loc *Location, rctx *chi.Context, q url.Values) bool {
	param := func(name string) string {
		return rctx.URLParam(name)
	}

	switch loc.Kind {
	case OpRepoAllAAS:
		if raw := q.Get("assetIds"); raw != "" {
			assetID, ok := DecodeAssetLookup(raw)
			if !ok {
				return false
			}
			loc.Kind = OpRepoAASByAssetID
			loc.AssetID = assetID
		}
	case OpRegistryAASByAssetID:
		if raw := q.Get("assetIds"); raw != "" {
			assetID, ok := DecodeAssetLookup(raw)
			if !ok {
				return false
			}
			loc.AssetID = assetID
		}
	case OpRepoSingleAAS, OpRegistrySingleAAS:
		loc.Identifier = DecodeIdentifier(param("aasIdentifier"))
	case OpRepoSingleSubmodel:
		loc.Identifier = DecodeIdentifier(param("submodelIdentifier"))
	case OpRepoSubmodelOfAAS:
		loc.AASIdentifier = DecodeIdentifier(param("aasIdentifier"))
		loc.Identifier = DecodeIdentifier(param("submodelIdentifier"))
	case OpRepoSingleCD:
		loc.Identifier = DecodeIdentifier(param("cdIdentifier"))
	case OpRegOfRegByAssetID:
		loc.AssetID = DecodeIdentifier(param("registryIdentifier"))
	case OpQuery:
		loc.ElementType = param("elementType")
		if raw := q.Get("query"); raw != "" {
			decoded, err := common.DecodeString(raw)
			if err != nil {
				return false
			}
			loc.Query = decoded
		}
	}
	return true
}

// DecodeIdentifier decodes an identifier path segment. Segments that are not
// valid base64url are taken as plain (path-unescaped) identifiers.
func DecodeIdentifier(segment string) string {
	unescaped, err := url.PathUnescape(segment)
	if err != nil {
		unescaped = segment
	}
	if decoded, err := common.DecodeString(unescaped); err == nil && decoded != "" && isPrintable(decoded) {
		return decoded
	}
	return unescaped
}

func isPrintable(s string) bool {
	for _, r := range s {
		if r < 0x20 || r == 0x7f || r == 0xfffd {
			return false
		}
	}
	return true
}
