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

package common

import (
	"bytes"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// UnmarshalAndDisallowUnknownFields decodes value into v and rejects unknown fields.
func UnmarshalAndDisallowUnknownFields(value []byte, v any) error {
	dec := jsonAPI.NewDecoder(bytes.NewReader(value))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// Unmarshal decodes value into v.
func Unmarshal(value []byte, v any) error {
	dec := jsonAPI.NewDecoder(bytes.NewReader(value))
	return dec.Decode(v)
}

// Marshal encodes v with the standard-library compatible jsoniter config.
func Marshal(v any) ([]byte, error) {
	return jsonAPI.Marshal(v)
}

// UnmarshalJsonable decodes a JSON payload into the generic map/slice tree the
// aas-go-sdk jsonization functions consume.
func UnmarshalJsonable(value []byte) (any, error) {
	var out any
	if err := jsonAPI.Unmarshal(value, &out); err != nil {
		return nil, err
	}
	return out, nil
}
