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
	"strings"

	"github.com/FriedJannik/aas-go-sdk/types"
)

// matchesText reports whether text occurs in the id, idShort, any
// description or any display name of entity. An empty text matches all.
func matchesText(entity types.IIdentifiable, text string, caseSensitive bool) bool {
	if text == "" {
		return true
	}
	norm := func(s string) string {
		if caseSensitive {
			return s
		}
		return strings.ToLower(s)
	}
	needle := norm(text)
	contains := func(s string) bool { return s != "" && strings.Contains(norm(s), needle) }

	if contains(entity.ID()) {
		return true
	}
	if p := entity.IDShort(); p != nil && contains(*p) {
		return true
	}
	for _, d := range entity.Description() {
		if d != nil && contains(d.Text()) {
			return true
		}
	}
	for _, d := range entity.DisplayName() {
		if d != nil && contains(d.Text()) {
			return true
		}
	}
	return false
}

// matchesExtension reports whether entity carries an extension called name
// whose value equals value. An empty name matches all; an empty value only
// requires the extension to exist.
func matchesExtension(entity types.IIdentifiable, name, value string, caseSensitive bool) bool {
	if name == "" {
		return true
	}
	eq := func(a, b string) bool {
		if caseSensitive {
			return a == b
		}
		return strings.EqualFold(a, b)
	}
	for _, ext := range entity.Extensions() {
		if ext == nil || !eq(ext.Name(), name) {
			continue
		}
		if value == "" {
			return true
		}
		if v := ext.Value(); v != nil && eq(*v, value) {
			return true
		}
	}
	return false
}

func sideFields(entity types.IIdentifiable) (idShort, version, revision string) {
	if p := entity.IDShort(); p != nil {
		idShort = *p
	}
	if adm := entity.Administration(); adm != nil {
		if v := adm.Version(); v != nil {
			version = *v
		}
		if r := adm.Revision(); r != nil {
			revision = *r
		}
	}
	return idShort, version, revision
}
