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

package endpoints

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common/document"
)

// Collection path segments of the AAS HTTP/REST API.
const (
	PathShells              = "shells"
	PathSubmodels           = "submodels"
	PathConceptDescriptions = "concept-descriptions"
	PathShellDescriptors    = "shell-descriptors"
	PathLookupShells        = "lookup/shells"
	PathRegistryDescriptors = "registry-descriptors"
	PathQuery               = "query"
	PathThumbnail           = "asset-information/thumbnail"
)

// ParseBase parses an absolute base URI; it returns nil otherwise.
func ParseBase(raw string) *url.URL {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil
	}
	return u
}

// join appends already escaped path elements to base, dropping query and fragment.
func join(base *url.URL, escaped ...string) *url.URL {
	if base == nil {
		return nil
	}
	b := *base
	b.RawQuery = ""
	b.Fragment = ""
	b.RawPath = ""
	b.Path = strings.TrimRight(b.Path, "/")
	if b.Path == "" {
		b.Path = "/"
	}
	return b.JoinPath(escaped...)
}

// EncodeIdentifier returns the path segment for id: base64url without padding
// when encrypt is set, otherwise the path-escaped raw id.
func EncodeIdentifier(id string, encrypt bool) string {
	if encrypt {
		return common.EncodeString(id)
	}
	return url.PathEscape(id)
}

// BuildListURI appends the paging parameters to a collection URI. Limit is
// only added for a positive pageLimit and Cursor only when non-empty. The
// cursor is server issued and passed through unvalidated.
func BuildListURI(base *url.URL, pageLimit int, cursor string) *url.URL {
	if base == nil {
		return nil
	}
	u := *base
	q := u.Query()
	if pageLimit > 0 {
		q.Set("Limit", strconv.Itoa(pageLimit))
	}
	if cursor != "" {
		q.Set("Cursor", cursor)
	}
	u.RawQuery = q.Encode()
	return &u
}

// BuildSingleURI returns the URI of one entity below the collection URI base.
// With usePost the collection URI itself is returned, since POST creates.
func BuildSingleURI(base *url.URL, id string, encrypt bool, usePost bool) *url.URL {
	if base == nil {
		return nil
	}
	if usePost {
		u := *base
		return &u
	}
	if id == "" {
		return nil
	}
	return join(base, EncodeIdentifier(id, encrypt))
}

func BuildURIForRepoAllAAS(base *url.URL, pageLimit int, cursor string) *url.URL {
	return BuildListURI(join(base, PathShells), pageLimit, cursor)
}

func BuildURIForRepoSingleAAS(base *url.URL, id string, encrypt bool, usePost bool) *url.URL {
	return BuildSingleURI(join(base, PathShells), id, encrypt, usePost)
}

func BuildURIForRepoAllSubmodels(base *url.URL, pageLimit int, cursor string) *url.URL {
	return BuildListURI(join(base, PathSubmodels), pageLimit, cursor)
}

func BuildURIForRepoSingleSubmodel(base *url.URL, id string, encrypt bool, usePost bool) *url.URL {
	return BuildSingleURI(join(base, PathSubmodels), id, encrypt, usePost)
}

func BuildURIForRepoAllCDs(base *url.URL, pageLimit int, cursor string) *url.URL {
	return BuildListURI(join(base, PathConceptDescriptions), pageLimit, cursor)
}

func BuildURIForRepoSingleCD(base *url.URL, id string, encrypt bool, usePost bool) *url.URL {
	return BuildSingleURI(join(base, PathConceptDescriptions), id, encrypt, usePost)
}

func BuildURIForRegistryAllAAS(base *url.URL, pageLimit int, cursor string) *url.URL {
	return BuildListURI(join(base, PathShellDescriptors), pageLimit, cursor)
}

func BuildURIForRegistrySingleAAS(base *url.URL, id string, encrypt bool) *url.URL {
	return BuildSingleURI(join(base, PathShellDescriptors), id, encrypt, false)
}

// BuildURIForRepoAASByAssetID filters the shell collection by global asset id.
func BuildURIForRepoAASByAssetID(base *url.URL, assetID string) *url.URL {
	return withAssetIDs(join(base, PathShells), assetID)
}

// BuildURIForRegistryLookup addresses the discovery lookup of shell ids by
// global asset id. An empty assetID lists all shell ids.
func BuildURIForRegistryLookup(base *url.URL, assetID string) *url.URL {
	return withAssetIDs(join(base, PathLookupShells), assetID)
}

func withAssetIDs(u *url.URL, assetID string) *url.URL {
	if u == nil || assetID == "" {
		return u
	}
	q := u.Query()
	q.Set("assetIds", EncodeAssetLookup(assetID))
	u.RawQuery = q.Encode()
	return u
}

// BuildURIForRegOfRegByAssetID resolves an asset id at a registry of registries.
func BuildURIForRegOfRegByAssetID(base *url.URL, assetID string) *url.URL {
	if assetID == "" {
		return nil
	}
	return join(base, PathRegistryDescriptors, common.EncodeString(assetID))
}

// BuildURIForQuery addresses /query/{elementType}; a non-empty query is
// carried base64url encoded in the "query" parameter.
func BuildURIForQuery(base *url.URL, elementType string, query string) *url.URL {
	if elementType == "" {
		return nil
	}
	u := join(base, PathQuery, url.PathEscape(elementType))
	if u != nil && query != "" {
		q := u.Query()
		q.Set("query", common.EncodeString(query))
		u.RawQuery = q.Encode()
	}
	return u
}

// BuildURIForThumbnail addresses the default thumbnail of a shell.
func BuildURIForThumbnail(base *url.URL, aasID string, encrypt bool) *url.URL {
	if aasID == "" {
		return nil
	}
	return join(base, PathShells, EncodeIdentifier(aasID, encrypt), PathThumbnail)
}

// WithoutQuery returns a copy of u without query string, which is the
// collection URI a list operation was issued against.
func WithoutQuery(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}
	c := *u
	c.RawQuery = ""
	c.Fragment = ""
	return &c
}

// APIBase strips the recognised operation path (and everything after it)
// from a classified URI, leaving the server base the operation was issued
// against.
func APIBase(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}
	segments := splitPath(u.EscapedPath())
	for i := range segments {
		rt, _, ok := matchRoute("/" + strings.Join(segments[i:], "/"))
		if !ok || rt.Terminal {
			continue
		}
		b := *u
		b.RawQuery = ""
		b.Fragment = ""
		b.RawPath = ""
		b.Path = ""
		if i == 0 {
			return &b
		}
		b.Path = "/"
		return b.JoinPath(segments[:i]...)
	}
	return WithoutQuery(u)
}

// EncodeAssetLookup encodes the asset id filter of a lookup. Servers expect a
// single {"name":"globalAssetId","value":...} object (not an array) encoded
// as base64url.
func EncodeAssetLookup(assetID string) string {
	body, err := common.Marshal(map[string]string{"name": "globalAssetId", "value": assetID})
	if err != nil {
		return ""
	}
	return common.Encode(body)
}

// DecodeAssetLookup is the inverse of EncodeAssetLookup. It also accepts an
// array of such objects (first entry wins) and plain encoded strings.
func DecodeAssetLookup(raw string) (string, bool) {
	decoded, err := common.Decode(raw)
	if err != nil {
		return "", false
	}
	doc, err := document.Parse(decoded)
	if err != nil {
		s := strings.TrimSpace(string(decoded))
		return s, s != ""
	}
	if doc.Kind() == document.KindArray {
		items := doc.Items()
		if len(items) == 0 {
			return "", false
		}
		doc = items[0]
	}
	if v, ok := doc.Field("value").AsString(); ok && v != "" {
		return v, true
	}
	if s, ok := doc.AsString(); ok && s != "" {
		return s, true
	}
	return "", false
}
