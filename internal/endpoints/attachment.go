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
	"strconv"
	"strings"

	"github.com/FriedJannik/aas-go-sdk/types"
)

// an idShort, optionally followed by list indices as in "Gallery[0][1]"
var idShortSegment = regexp.MustCompile(`^[A-Za-z0-9_]+(\[[0-9]+\])*$`)

// ValidIDShortPath reports whether every dot-separated segment of path is a
// plain idShort with optional [n] list indices.
func ValidIDShortPath(path string) bool {
	if path == "" {
		return false
	}
	for _, seg := range strings.Split(path, ".") {
		if !idShortSegment.MatchString(seg) {
			return false
		}
	}
	return true
}

// BuildAttachmentURI addresses the attachment of a File element. With a
// non-empty aasID the submodel is addressed through its shell. An invalid
// idShortPath is passed to onError (if set) and yields nil.
func BuildAttachmentURI(base *url.URL, submodelID string, idShortPath string, aasID string, encrypt bool, onError func(idShortPath string)) *url.URL {
	if base == nil || submodelID == "" {
		return nil
	}
	if !ValidIDShortPath(idShortPath) {
		if onError != nil {
			onError(idShortPath)
		}
		return nil
	}
	elems := make([]string, 0, 7)
	if aasID != "" {
		elems = append(elems, PathShells, EncodeIdentifier(aasID, encrypt))
	}
	elems = append(elems, PathSubmodels, EncodeIdentifier(submodelID, encrypt), "submodel-elements", url.PathEscape(idShortPath), "attachment")
	return join(base, elems...)
}

// FileElementRef is a File element found in a submodel.
type FileElementRef struct {
	IDShortPath string
	Value       string
	File        types.IFile
}

// FindAllUsedFileElements walks the submodel and returns every File element
// carrying a value. Children of a SubmodelElementList are addressed by index,
// e.g. "Gallery[0]", whatever their idShort. Files whose idShortPath is not
// valid for an attachment URI are reported through onPathError and left out.
func FindAllUsedFileElements(sm types.ISubmodel, onPathError func(idShortPath string)) []FileElementRef {
	if sm == nil {
		return nil
	}
	var out []FileElementRef
	var walk func(elems []types.ISubmodelElement, prefix string, indexed bool)
	walk = func(elems []types.ISubmodelElement, prefix string, indexed bool) {
		for i, el := range elems {
			if el == nil {
				continue
			}
			var path string
			switch {
			case indexed:
				path = prefix + "[" + strconv.Itoa(i) + "]"
			case prefix == "":
				path = idShortOf(el)
			default:
				path = prefix + "." + idShortOf(el)
			}

			switch el.ModelType() {
			case types.ModelTypeFile:
				f, ok := el.(types.IFile)
				if !ok || f.Value() == nil || *f.Value() == "" {
					continue
				}
				if !ValidIDShortPath(path) {
					if onPathError != nil {
						onPathError(path)
					}
					continue
				}
				out = append(out, FileElementRef{IDShortPath: path, Value: *f.Value(), File: f})
			case types.ModelTypeSubmodelElementCollection:
				if c, ok := el.(types.ISubmodelElementCollection); ok {
					walk(c.Value(), path, false)
				}
			case types.ModelTypeSubmodelElementList:
				if l, ok := el.(types.ISubmodelElementList); ok {
					walk(l.Value(), path, true)
				}
			case types.ModelTypeEntity:
				if e, ok := el.(types.IEntity); ok {
					walk(e.Statements(), path, false)
				}
			}
		}
	}
	walk(sm.SubmodelElements(), "", false)
	return out
}

func idShortOf(el types.ISubmodelElement) string {
	if p := el.IDShort(); p != nil {
		return *p
	}
	return ""
}
