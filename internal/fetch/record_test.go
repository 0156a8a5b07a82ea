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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common"
)

func TestSelectOperationIsExclusive(t *testing.T) {
	t.Parallel()

	rec := NewConnectionRecord(BaseRepository)
	rec.SelectOperation(OperationAllAAS)
	require.True(t, rec.GetAllAAS())

	rec.SelectOperation(OperationSingleCD)
	require.False(t, rec.GetAllAAS())
	require.True(t, rec.GetSingleCD())
	require.Equal(t, OperationSingleCD, rec.Operation())
}

func TestRecordValidation(t *testing.T) {
	t.Parallel()

	rec := NewConnectionRecord(BaseRepository)
	rec.SelectOperation(OperationSingleAAS)
	require.True(t, common.IsErrInvalidRecord(rec.Validate()))
	rec.ItemID = "urn:aas:1"
	require.NoError(t, rec.Validate())

	rec = NewConnectionRecord(BaseRepository)
	rec.PageSkip = -1
	require.True(t, common.IsErrInvalidRecord(rec.Validate()))

	rec = NewConnectionRecord(BaseRegistryOfRegistries)
	rec.SelectOperation(OperationAllSubmodels)
	require.True(t, common.IsErrInvalidRecord(rec.Validate()))
	rec.SelectOperation(OperationAASByAssetID)
	rec.AssetID = "urn:asset:1"
	require.NoError(t, rec.Validate())
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()

	rec := NewConnectionRecord(BaseRegistry)
	rec.SelectOperation(OperationAllAAS)
	c := rec.Clone()
	c.PageLimit = 10
	c.SelectOperation(OperationQuery)

	require.Equal(t, 0, rec.PageLimit)
	require.True(t, rec.GetAllAAS())
	require.Nil(t, (*ConnectionRecord)(nil).Clone())
}

func TestParseNames(t *testing.T) {
	t.Parallel()

	for op, name := range operationNames {
		got, err := ParseOperation(name)
		require.NoError(t, err)
		require.Equal(t, op, got)
	}
	_, err := ParseOperation("everything")
	require.Error(t, err)

	bt, err := ParseBaseType("RoR")
	require.NoError(t, err)
	require.Equal(t, BaseRegistryOfRegistries, bt)
	_, err = ParseBaseType("cloud")
	require.Error(t, err)
}

func TestKindForResultType(t *testing.T) {
	t.Parallel()

	require.Same(t, KindSubmodel, KindForResultType("Submodel"))
	require.Same(t, KindAAS, KindForResultType(" shells "))
	require.Same(t, KindConceptDescription, KindForResultType("concept-descriptions"))
	require.Nil(t, KindForResultType("assets"))
}
