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

package sideinfo

import (
	"fmt"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type entity struct {
	id      string
	payload string
}

func (e *entity) ID() string { return e.id }

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestAddIfNewFirstAddWins(t *testing.T) {
	t.Parallel()

	l := NewList[*entity]()

	idx, added := l.AddIfNew(&entity{id: "a", payload: "first"}, nil)
	require.True(t, added)
	require.Equal(t, 0, idx)

	idx, added = l.AddIfNew(&entity{id: "a", payload: "second"}, &SideInfo{ID: "a", IsStub: true})
	require.False(t, added)
	require.Equal(t, 0, idx)

	slot, ok := l.Get(0)
	require.True(t, ok)
	require.Equal(t, "first", slot.Data.payload)
	require.Nil(t, slot.Side)
	require.Equal(t, 1, l.Len())
}

func TestAddIfNewMatchesStubBySideInfoID(t *testing.T) {
	t.Parallel()

	l := NewList[*entity]()
	_, added := l.AddIfNew(nil, NewStub("sm-1", mustURL(t, "http://repo/submodels/c20tMQ")))
	require.True(t, added)

	_, added = l.AddIfNew(&entity{id: "sm-1"}, nil)
	require.False(t, added)

	_, added = l.AddIfNew(nil, &SideInfo{ID: "sm-1"})
	require.False(t, added)
	require.Equal(t, 1, l.Len())
}

func TestAddIfNewRejectsEmptySlot(t *testing.T) {
	t.Parallel()

	l := NewList[*entity]()
	idx, added := l.AddIfNew(nil, nil)
	require.False(t, added)
	require.Equal(t, -1, idx)

	idx, added = l.AddIfNew(nil, &SideInfo{})
	require.False(t, added)
	require.Equal(t, -1, idx)
	require.Equal(t, 0, l.Len())
}

func TestAddIfNewDeduplicatesArbitrarySequences(t *testing.T) {
	t.Parallel()

	l := NewList[*entity]()
	ids := []string{"a", "b", "a", "c", "b", "b", "d", "a"}
	firstPayload := map[string]string{}
	for i, id := range ids {
		payload := fmt.Sprintf("p%d", i)
		if _, added := l.AddIfNew(&entity{id: id, payload: payload}, nil); added {
			firstPayload[id] = payload
		}
	}

	require.Equal(t, 4, l.Len())
	seen := map[string]bool{}
	for _, slot := range l.Snapshot() {
		require.False(t, seen[slot.ID()], "duplicate id %s", slot.ID())
		seen[slot.ID()] = true
		require.Equal(t, firstPayload[slot.ID()], slot.Data.payload)
	}
}

func TestUpdatePreservesSideInfo(t *testing.T) {
	t.Parallel()

	l := NewList[*entity]()
	side := NewStub("sm-1", mustURL(t, "http://repo/submodels/c20tMQ"))
	side.ShowCursorBelow = true
	idx, added := l.AddIfNew(nil, side)
	require.True(t, added)

	before, _ := l.Get(idx)
	require.True(t, l.Update(idx, &entity{id: "sm-1", payload: "hydrated"}))
	after, _ := l.Get(idx)

	require.Equal(t, before.Side, after.Side)
	require.Equal(t, "hydrated", after.Data.payload)
	require.True(t, after.Side.IsStub)
}

func TestUpdateRejectsCollisionsAndBadIndex(t *testing.T) {
	t.Parallel()

	l := NewList[*entity]()
	l.AddIfNew(&entity{id: "a"}, nil)
	l.AddIfNew(&entity{id: "b"}, nil)

	require.False(t, l.Update(5, &entity{id: "a"}))
	require.False(t, l.Update(0, nil))
	require.False(t, l.Update(0, &entity{id: "b"}))

	require.True(t, l.Update(0, &entity{id: "z"}))
	require.Equal(t, 0, l.IndexOf("z"))
	require.Equal(t, -1, l.IndexOf("a"))
}

func TestSideInfoIsCopiedOnTheWayInAndOut(t *testing.T) {
	t.Parallel()

	l := NewList[*entity]()
	side := &SideInfo{ID: "a", IDShort: "orig"}
	idx, _ := l.AddIfNew(nil, side)
	side.IDShort = "mutated"

	slot, _ := l.Get(idx)
	require.Equal(t, "orig", slot.Side.IDShort)
	slot.Side.IDShort = "mutated-again"

	slot, _ = l.Get(idx)
	require.Equal(t, "orig", slot.Side.IDShort)
}

func TestSetSideKeepsInvariant(t *testing.T) {
	t.Parallel()

	l := NewList[*entity]()
	stubIdx, _ := l.AddIfNew(nil, &SideInfo{ID: "stub"})
	loadedIdx, _ := l.AddIfNew(&entity{id: "loaded"}, nil)

	require.False(t, l.SetSide(stubIdx, nil))
	require.True(t, l.SetSide(loadedIdx, &SideInfo{StubLevel: StubIDWithEndpoint}))
	require.False(t, l.SetSide(loadedIdx, &SideInfo{ID: "other"}))

	slot, _ := l.Get(loadedIdx)
	require.Equal(t, "loaded", slot.Side.ID)
}

func TestTaintLifecycle(t *testing.T) {
	t.Parallel()

	l := NewList[*entity]()
	idx, _ := l.AddIfNewWithTaint(&entity{id: "a"}, nil, TaintCleared)
	require.Equal(t, TaintCleared, l.Taint(idx))

	require.True(t, l.MarkTainted("a"))
	require.Equal(t, TaintSet, l.Taint(idx))
	require.False(t, l.MarkTainted("missing"))

	require.True(t, l.SetTaint(idx, TaintCleared))
	require.Equal(t, TaintCleared, l.Taint(idx))
}

func TestClearTaintIfUnchanged(t *testing.T) {
	t.Parallel()

	l := NewList[*entity]()
	idx, _ := l.AddIfNewWithTaint(&entity{id: "a"}, nil, TaintSet)
	rev := l.Revision(idx)
	require.NotZero(t, rev)

	require.True(t, l.Update(idx, &entity{id: "a", payload: "edited"}))
	require.True(t, l.MarkTainted("a"))
	require.False(t, l.ClearTaintIfUnchanged(idx, rev))
	require.Equal(t, TaintSet, l.Taint(idx))

	rev = l.Revision(idx)
	require.True(t, l.ClearTaintIfUnchanged(idx, rev))
	require.Equal(t, TaintCleared, l.Taint(idx))
	require.False(t, l.ClearTaintIfUnchanged(7, rev))
}

func TestMarkHydratedClearsStub(t *testing.T) {
	t.Parallel()

	l := NewList[*entity]()
	idx, _ := l.AddIfNew(nil, NewStub("a", nil))
	require.False(t, l.MarkHydrated(idx))

	require.True(t, l.Update(idx, &entity{id: "a"}))
	require.True(t, l.MarkHydrated(idx))

	slot, _ := l.Get(idx)
	require.False(t, slot.Side.IsStub)
	require.Equal(t, StubIDWithEndpoint, slot.Side.StubLevel)
	require.Empty(t, l.Stubs())
}

func TestRemoveReindexes(t *testing.T) {
	t.Parallel()

	l := NewList[*entity]()
	for _, id := range []string{"a", "b", "c"} {
		l.AddIfNew(&entity{id: id}, nil)
	}
	require.True(t, l.Remove("a"))
	require.False(t, l.Remove("a"))
	require.Equal(t, 0, l.IndexOf("b"))
	require.Equal(t, 1, l.IndexOf("c"))

	_, added := l.AddIfNew(&entity{id: "a"}, nil)
	require.True(t, added)
}

func TestConcurrentAddIfNewKeepsIdsUnique(t *testing.T) {
	t.Parallel()

	for run := 0; run < 20; run++ {
		l := NewList[*entity]()
		var wg sync.WaitGroup
		for w := 0; w < 8; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					l.AddIfNew(&entity{id: fmt.Sprintf("id-%d", i)}, nil)
				}
			}()
		}
		wg.Wait()
		require.Equal(t, 100, l.Len())
	}
}

func TestStubLevelIsMonotonic(t *testing.T) {
	t.Parallel()

	si := &SideInfo{StubLevel: StubIDAndMore}
	si.RaiseStubLevel(StubIDOnly)
	require.Equal(t, StubIDAndMore, si.StubLevel)
	si.RaiseStubLevel(StubIDWithEndpoint)
	require.Equal(t, StubIDWithEndpoint, si.StubLevel)
}
