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
	"regexp"
	"sort"
	"strings"

	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common/document"
)

// Role keys of a BaseURIDict.
const (
	RoleDefault   = "*"
	RoleAASEnv    = "AAS-ENV"
	RoleAASRepo   = "AAS-REPO"
	RoleSMRepo    = "SM-REPO"
	RoleCDRepo    = "CD-REPO"
	RoleRegistry  = "REG"
	RoleAASReg    = "AAS-REG"
	RoleSMReg     = "SM-REG"
	RoleDiscovery = "DISCOVERY"
	RoleQuery     = "QUERY"
	RoleRoR       = "ROR"
)

var fallbackChains = map[string][]string{
	RoleAASRepo:   {RoleAASRepo, RoleAASEnv, RoleDefault},
	RoleSMRepo:    {RoleSMRepo, RoleAASEnv, RoleDefault},
	RoleCDRepo:    {RoleCDRepo, RoleAASEnv, RoleDefault},
	RoleAASEnv:    {RoleAASEnv, RoleDefault},
	RoleAASReg:    {RoleAASReg, RoleRegistry, RoleDefault},
	RoleSMReg:     {RoleSMReg, RoleAASReg, RoleRegistry, RoleDefault},
	RoleDiscovery: {RoleDiscovery, RoleAASReg, RoleRegistry, RoleDefault},
	RoleRegistry:  {RoleRegistry, RoleDefault},
	RoleQuery:     {RoleQuery, RoleAASEnv, RoleDefault},
	RoleRoR:       {RoleRoR, RoleDefault},
}

const maxExpansionDepth = 8

var referencePattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_*\-]+)\s*\}\}`)

// BaseURIDict maps role keys to base URIs. A valid dict has the default key "*".
type BaseURIDict map[string]string

// ParseBaseURIDict parses a plain absolute URL (stored under "*"), a JSON
// object, or the {{ "KEY":"value", ... }} template form. Values may reference
// other keys as {{KEY}}; references are expanded up to a fixed depth, and
// unresolvable ones are left in place. The result is nil for unparsable input.
func ParseBaseURIDict(raw string) BaseURIDict {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	var body string
	switch {
	case strings.HasPrefix(s, "{{") && strings.HasSuffix(s, "}}") && strings.Contains(s, ":") && strings.Contains(s, `"`):
		body = "{" + strings.TrimSpace(s[2:len(s)-2]) + "}"
	case strings.HasPrefix(s, "{"):
		body = s
	default:
		if ParseBase(s) == nil {
			return nil
		}
		return BaseURIDict{RoleDefault: s}
	}

	doc, err := document.Parse([]byte(body))
	if err != nil || doc.Kind() != document.KindObject {
		return nil
	}
	entries, _ := doc.Raw().(map[string]any)
	dict := BaseURIDict{}
	for k, v := range entries {
		if str, ok := v.(string); ok {
			dict[strings.TrimSpace(k)] = strings.TrimSpace(str)
		}
	}
	dict.expand()
	return dict
}

func (d BaseURIDict) expand() {
	for depth := 0; depth < maxExpansionDepth; depth++ {
		changed := false
		for k, v := range d {
			nv := referencePattern.ReplaceAllStringFunc(v, func(m string) string {
				key := referencePattern.FindStringSubmatch(m)[1]
				if key == k {
					return m
				}
				if repl, ok := d[key]; ok {
					return repl
				}
				return m
			})
			if nv != v {
				d[k] = nv
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

// IsValid reports whether the dict has a usable default entry.
func (d BaseURIDict) IsValid() bool {
	if d == nil {
		return false
	}
	v, ok := d[RoleDefault]
	return ok && ParseBase(v) != nil
}

// Get resolves the base URI string of role through its fallback chain.
// Unknown roles fall back to "*" directly.
func (d BaseURIDict) Get(role string) (string, bool) {
	chain, ok := fallbackChains[role]
	if !ok {
		chain = []string{role, RoleDefault}
	}
	for _, key := range chain {
		if v, ok := d[key]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// Resolve returns the parsed base URI of role, or nil if none resolves to an
// absolute URI.
func (d BaseURIDict) Resolve(role string) *url.URL {
	v, ok := d.Get(role)
	if !ok {
		return nil
	}
	return ParseBase(v)
}

// ResolveOrError is Resolve returning a descriptive error.
func (d BaseURIDict) ResolveOrError(role string) (*url.URL, error) {
	if u := d.Resolve(role); u != nil {
		return u, nil
	}
	return nil, common.NewErrInvalidBaseURI("no absolute base URI for role " + role)
}

// Keys lists the configured role keys in sorted order.
func (d BaseURIDict) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
