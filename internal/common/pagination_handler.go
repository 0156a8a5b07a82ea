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

//nolint:revive
package common

import (
	"strconv"
)

// PagingMetadata carries the cursor of the next page, if any.
type PagingMetadata struct {
	Cursor string `json:"cursor,omitempty"`
}

// PagedResult is the AAS list envelope: {"paging_metadata":{...},"result":[...]}.
type PagedResult struct {
	PagingMetadata PagingMetadata `json:"paging_metadata"`
	Result         any            `json:"result"`
}

// EncodeIndexCursor turns a slot index into an opaque cursor.
func EncodeIndexCursor(index int) string {
	return EncodeString(strconv.Itoa(index))
}

// DecodeIndexCursor is the inverse of EncodeIndexCursor. An empty cursor is index 0.
func DecodeIndexCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := DecodeString(cursor)
	if err != nil {
		return 0, NewErrBadRequest("invalid cursor " + cursor)
	}
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 0 {
		return 0, NewErrBadRequest("invalid cursor " + cursor)
	}
	return idx, nil
}
