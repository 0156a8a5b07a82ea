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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeIdentifiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Empty", input: "", expected: ""},
		{name: "Urn", input: "urn:aas:1", expected: "dXJuOmFhczox"},
		{name: "NeedsUrlSafeAlphabet", input: "hello+world/test", expected: "aGVsbG8rd29ybGQvdGVzdA"},
		{name: "NoPadding", input: "a", expected: "YQ"},
		{name: "NonASCII", input: "こんにちは", expected: "44GT44KT44Gr44Gh44Gv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, EncodeString(tt.input))
		})
	}
}

func TestDecodeTolerance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		input       string
		expected    string
		expectError bool
	}{
		{name: "Raw", input: "YWI", expected: "ab"},
		{name: "Padded", input: "YWI=", expected: "ab"},
		{name: "StandardAlphabet", input: "AAECA//+", expected: string([]byte{0, 1, 2, 3, 255, 254})},
		{name: "UrlAlphabet", input: "AAECA__-", expected: string([]byte{0, 1, 2, 3, 255, 254})},
		{name: "Garbage", input: "!@#$%^", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeString(tt.input)
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, got)
		})
	}
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	t.Parallel()

	for _, id := range []string{
		"",
		"https://example.com/ids/aas/7600_5912_3951_6917",
		"urn:uuid:3b6c6f5e-6d2e-4f3b-9a0c-2d2b7f0c1a11",
		"Special chars: !@#$%^&*()_+-=[]{}|;':\",./<>?",
	} {
		decoded, err := DecodeString(EncodeString(id))
		require.NoError(t, err)
		require.Equal(t, id, decoded)
	}
}
