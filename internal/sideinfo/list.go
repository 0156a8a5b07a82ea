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
	"reflect"
	"sync"
)

// Identifiable is the only thing a List needs from its entities.
type Identifiable interface {
	ID() string
}

// Slot is a copy of one list position.
type Slot[T Identifiable] struct {
	Index int
	Data  T
	Side  *SideInfo
	Taint Taint
}

// HasData reports whether the slot holds a loaded entity.
func (s Slot[T]) HasData() bool {
	return !isAbsent(s.Data)
}

// ID returns the entity id, falling back to the side information.
func (s Slot[T]) ID() string {
	if !isAbsent(s.Data) {
		return s.Data.ID()
	}
	if s.Side != nil {
		return s.Side.ID
	}
	return ""
}

// List is an ordered collection of (entity, side information) slots, kept
// as parallel arrays addressed by the same index. No two slots share an id.
// All methods are safe for concurrent use; each list has its own lock.
type List[T Identifiable] struct {
	mu    sync.RWMutex
	data  []T
	side  []*SideInfo
	taint []Taint
	rev   []uint64
	byID  map[string]int
	// last revision handed out; bumped by every entity or taint change
	clock uint64
}

// NewList creates an empty list.
func NewList[T Identifiable]() *List[T] {
	return &List[T]{byID: make(map[string]int)}
}

func isAbsent[T Identifiable](v T) bool {
	if any(v) == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	default:
		return false
	}
}

func slotID[T Identifiable](entity T, side *SideInfo) string {
	if !isAbsent(entity) {
		if id := entity.ID(); id != "" {
			return id
		}
	}
	if side != nil {
		return side.ID
	}
	return ""
}

// AddIfNew appends the slot unless an existing slot carries the same id. It
// returns the index of the new or the existing slot and whether it was added.
// A slot without entity and without side information (or without any id) is
// rejected with index -1. New slots start with TaintUnknown.
func (l *List[T]) AddIfNew(entity T, side *SideInfo) (int, bool) {
	return l.AddIfNewWithTaint(entity, side, TaintUnknown)
}

// AddIfNewWithTaint is AddIfNew with an explicit initial taint state.
func (l *List[T]) AddIfNewWithTaint(entity T, side *SideInfo, taint Taint) (int, bool) {
	id := slotID(entity, side)
	if id == "" {
		return -1, false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.byID == nil {
		l.byID = make(map[string]int)
	}
	if idx, ok := l.byID[id]; ok {
		return idx, false
	}
	if side != nil && side.ID != "" && side.ID != id {
		if idx, ok := l.byID[side.ID]; ok {
			return idx, false
		}
	}
	side = side.Clone()
	if side != nil && side.ID == "" {
		side.ID = id
	}

	l.data = append(l.data, entity)
	l.side = append(l.side, side)
	l.taint = append(l.taint, taint)
	l.clock++
	l.rev = append(l.rev, l.clock)
	idx := len(l.data) - 1
	l.byID[id] = idx
	return idx, true
}

// Update replaces the entity at index and leaves its side information alone.
// It fails for an out-of-range index, an absent entity, or an entity whose id
// is already used by another slot.
func (l *List[T]) Update(index int, entity T) bool {
	if isAbsent(entity) {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if index < 0 || index >= len(l.data) {
		return false
	}
	oldID := slotID(l.data[index], l.side[index])
	newID := entity.ID()
	if newID != "" && newID != oldID {
		if other, ok := l.byID[newID]; ok && other != index {
			return false
		}
		delete(l.byID, oldID)
		l.byID[newID] = index
	}
	l.data[index] = entity
	l.bumpLocked(index)
	return true
}

func (l *List[T]) bumpLocked(index int) {
	l.clock++
	l.rev[index] = l.clock
}

// Revision returns the revision of the slot at index, or 0. The revision
// changes whenever the entity is replaced or the slot is marked tainted.
func (l *List[T]) Revision(index int) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= len(l.rev) {
		return 0
	}
	return l.rev[index]
}

// ClearTaintIfUnchanged clears the taint of the slot at index only if the
// slot still has revision rev.
func (l *List[T]) ClearTaintIfUnchanged(index int, rev uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.rev) || l.rev[index] != rev {
		return false
	}
	l.taint[index] = TaintCleared
	return true
}

// IndexOf returns the index of the slot with the given id, or -1.
func (l *List[T]) IndexOf(id string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if idx, ok := l.byID[id]; ok {
		return idx
	}
	return -1
}

// Len returns the number of slots.
func (l *List[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.data)
}

// Get returns a copy of the slot at index.
func (l *List[T]) Get(index int) (Slot[T], bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= len(l.data) {
		return Slot[T]{Index: -1}, false
	}
	return l.slotLocked(index), true
}

// GetByID returns a copy of the slot with the given id.
func (l *List[T]) GetByID(id string) (Slot[T], bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	idx, ok := l.byID[id]
	if !ok {
		return Slot[T]{Index: -1}, false
	}
	return l.slotLocked(idx), true
}

func (l *List[T]) slotLocked(index int) Slot[T] {
	return Slot[T]{
		Index: index,
		Data:  l.data[index],
		Side:  l.side[index].Clone(),
		Taint: l.taint[index],
	}
}

// SetSide replaces the side information at index. The id of the new side
// information must be empty or match the slot id.
func (l *List[T]) SetSide(index int, side *SideInfo) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.data) {
		return false
	}
	id := slotID(l.data[index], l.side[index])
	side = side.Clone()
	if side != nil {
		if side.ID == "" {
			side.ID = id
		} else if side.ID != id {
			return false
		}
	} else if isAbsent(l.data[index]) {
		// would leave a slot with neither entity nor side information
		return false
	}
	l.side[index] = side
	return true
}

// MarkHydrated clears the stub flag of the slot at index once its entity has
// been fetched.
func (l *List[T]) MarkHydrated(index int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.data) || isAbsent(l.data[index]) {
		return false
	}
	if l.side[index] != nil {
		l.side[index].IsStub = false
		l.side[index].RaiseStubLevel(StubIDWithEndpoint)
	}
	l.taint[index] = TaintCleared
	return true
}

// Taint returns the taint state of the slot at index.
func (l *List[T]) Taint(index int) Taint {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= len(l.taint) {
		return TaintUnknown
	}
	return l.taint[index]
}

// SetTaint sets the taint state of the slot at index.
func (l *List[T]) SetTaint(index int, taint Taint) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.taint) {
		return false
	}
	l.taint[index] = taint
	if taint == TaintSet {
		l.bumpLocked(index)
	}
	return true
}

// MarkTainted flags the entity with the given id as locally modified.
func (l *List[T]) MarkTainted(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx, ok := l.byID[id]
	if !ok {
		return false
	}
	l.taint[idx] = TaintSet
	l.bumpLocked(idx)
	return true
}

// Remove deletes the slot with the given id. Later slots shift down by one.
func (l *List[T]) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx, ok := l.byID[id]
	if !ok {
		return false
	}
	l.data = append(l.data[:idx], l.data[idx+1:]...)
	l.side = append(l.side[:idx], l.side[idx+1:]...)
	l.taint = append(l.taint[:idx], l.taint[idx+1:]...)
	l.rev = append(l.rev[:idx], l.rev[idx+1:]...)
	delete(l.byID, id)
	for k, v := range l.byID {
		if v > idx {
			l.byID[k] = v - 1
		}
	}
	return true
}

// Snapshot returns copies of all slots in list order.
func (l *List[T]) Snapshot() []Slot[T] {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Slot[T], len(l.data))
	for i := range l.data {
		out[i] = l.slotLocked(i)
	}
	return out
}

// Items returns all loaded entities in list order.
func (l *List[T]) Items() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]T, 0, len(l.data))
	for _, d := range l.data {
		if !isAbsent(d) {
			out = append(out, d)
		}
	}
	return out
}

// Stubs returns the indices of slots whose entity is not loaded.
func (l *List[T]) Stubs() []int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []int
	for i, d := range l.data {
		if isAbsent(d) {
			out = append(out, i)
		}
	}
	return out
}
