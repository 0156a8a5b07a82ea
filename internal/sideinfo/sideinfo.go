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

// Package sideinfo implements the lazily hydrated entity lists of a fetch
// session: every slot pairs an identifiable (which may not be loaded yet) with
// side information about where it came from and how much of it is known.
package sideinfo

import (
	"net/url"
)

// StubLevel describes how much is known about an entity that has not been
// fetched. Levels only ever increase.
type StubLevel int

const (
	StubNone StubLevel = iota
	StubIDOnly
	StubIDAndMore
	StubIDWithEndpoint
)

func (l StubLevel) String() string {
	switch l {
	case StubIDOnly:
		return "IdOnly"
	case StubIDAndMore:
		return "IdAndMore"
	case StubIDWithEndpoint:
		return "IdWithEndpoint"
	default:
		return "None"
	}
}

// SideInfo is the metadata attached to one list slot.
type SideInfo struct {
	ID        string
	IDShort   string
	Version   string
	Revision  string
	IsStub    bool
	StubLevel StubLevel

	// QueriedEndpoint is the exact endpoint the entity was discovered or
	// fetched from; repeat fetches reuse it.
	QueriedEndpoint *url.URL

	// DesignatedEndpoint is where the entity should live. It may differ from
	// QueriedEndpoint, e.g. a registry hit that will later be written to a
	// repository.
	DesignatedEndpoint *url.URL

	ShowCursorAbove bool
	ShowCursorBelow bool
}

// NewStub creates side information for an entity known only by id and endpoint.
func NewStub(id string, endpoint *url.URL) *SideInfo {
	si := &SideInfo{ID: id, IsStub: true, StubLevel: StubIDOnly}
	if endpoint != nil {
		si.QueriedEndpoint = endpoint
		si.StubLevel = StubIDWithEndpoint
	}
	return si
}

// NewLoaded creates side information for a fully fetched entity.
func NewLoaded(id string, queried, designated *url.URL) *SideInfo {
	return &SideInfo{
		ID:                 id,
		StubLevel:          StubIDWithEndpoint,
		QueriedEndpoint:    queried,
		DesignatedEndpoint: designated,
	}
}

// RaiseStubLevel sets the level if it is higher than the current one.
func (s *SideInfo) RaiseStubLevel(level StubLevel) {
	if level > s.StubLevel {
		s.StubLevel = level
	}
}

// HasEndpoint reports whether a queried or designated endpoint is known.
func (s *SideInfo) HasEndpoint() bool {
	return s != nil && (s.QueriedEndpoint != nil || s.DesignatedEndpoint != nil)
}

// Clone returns a deep copy.
func (s *SideInfo) Clone() *SideInfo {
	if s == nil {
		return nil
	}
	c := *s
	c.QueriedEndpoint = cloneURL(s.QueriedEndpoint)
	c.DesignatedEndpoint = cloneURL(s.DesignatedEndpoint)
	return &c
}

func cloneURL(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}
	c := *u
	if u.User != nil {
		user := *u.User
		c.User = &user
	}
	return &c
}

// Taint records whether an entity differs from its server copy.
type Taint int

const (
	// TaintUnknown marks entities created locally; they are sync candidates.
	TaintUnknown Taint = iota
	// TaintSet marks entities modified since they were fetched or synced.
	TaintSet
	// TaintCleared marks entities known to equal the server copy.
	TaintCleared
)

func (t Taint) String() string {
	switch t {
	case TaintSet:
		return "tainted"
	case TaintCleared:
		return "clean"
	default:
		return "unknown"
	}
}
