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
	"net/url"
	"sync"

	"github.com/FriedJannik/aas-go-sdk/types"

	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/sideinfo"
)

// Thumbnail is the default thumbnail of a shell.
type Thumbnail struct {
	ContentType string
	Data        []byte
}

// FetchContext remembers the last fetch so it can be continued.
type FetchContext struct {
	Record   *ConnectionRecord
	Location string
	Cursor   string
	Result   Result
}

// Environment is the partially loaded working set of one session. The three
// lists, the thumbnail map, the tracking lists and the fetch context each
// have their own lock; no lock is held while taking another.
type Environment struct {
	Shells              *sideinfo.List[types.IAssetAdministrationShell]
	Submodels           *sideinfo.List[types.ISubmodel]
	ConceptDescriptions *sideinfo.List[types.IConceptDescription]

	thumbMu    sync.RWMutex
	thumbnails map[string]Thumbnail

	trackMu sync.Mutex
	loaded  []types.IIdentifiable
	created []types.IIdentifiable

	ctxMu sync.RWMutex
	fetch FetchContext
}

// NewEnvironment creates an empty environment.
func NewEnvironment() *Environment {
	return &Environment{
		Shells:              sideinfo.NewList[types.IAssetAdministrationShell](),
		Submodels:           sideinfo.NewList[types.ISubmodel](),
		ConceptDescriptions: sideinfo.NewList[types.IConceptDescription](),
		thumbnails:          make(map[string]Thumbnail),
	}
}

// SetThumbnail stores the thumbnail of the shell aasID.
func (e *Environment) SetThumbnail(aasID string, t Thumbnail) {
	e.thumbMu.Lock()
	defer e.thumbMu.Unlock()
	e.thumbnails[aasID] = t
}

// Thumbnail returns the stored thumbnail of the shell aasID.
func (e *Environment) Thumbnail(aasID string) (Thumbnail, bool) {
	e.thumbMu.RLock()
	defer e.thumbMu.RUnlock()
	t, ok := e.thumbnails[aasID]
	return t, ok
}

// ThumbnailCount returns the number of stored thumbnails.
func (e *Environment) ThumbnailCount() int {
	e.thumbMu.RLock()
	defer e.thumbMu.RUnlock()
	return len(e.thumbnails)
}

// RenameThumbnail moves a stored thumbnail to a new shell id.
func (e *Environment) RenameThumbnail(oldID, newID string) {
	e.thumbMu.Lock()
	defer e.thumbMu.Unlock()
	if t, ok := e.thumbnails[oldID]; ok {
		delete(e.thumbnails, oldID)
		e.thumbnails[newID] = t
	}
}

// Thumbnails returns a copy of all stored thumbnails keyed by shell id.
func (e *Environment) Thumbnails() map[string]Thumbnail {
	e.thumbMu.RLock()
	defer e.thumbMu.RUnlock()
	out := make(map[string]Thumbnail, len(e.thumbnails))
	for k, v := range e.thumbnails {
		out[k] = v
	}
	return out
}

func (e *Environment) track(entity types.IIdentifiable, isNew bool) {
	e.trackMu.Lock()
	defer e.trackMu.Unlock()
	e.loaded = append(e.loaded, entity)
	if isNew {
		e.created = append(e.created, entity)
	}
}

// LoadedThisSession returns every entity touched by a fetch since the last
// ResetTracking, in arrival order.
func (e *Environment) LoadedThisSession() []types.IIdentifiable {
	e.trackMu.Lock()
	defer e.trackMu.Unlock()
	return append([]types.IIdentifiable(nil), e.loaded...)
}

// NewThisSession returns the entities a fetch added to the environment since
// the last ResetTracking.
func (e *Environment) NewThisSession() []types.IIdentifiable {
	e.trackMu.Lock()
	defer e.trackMu.Unlock()
	return append([]types.IIdentifiable(nil), e.created...)
}

func (e *Environment) ResetTracking() {
	e.trackMu.Lock()
	defer e.trackMu.Unlock()
	e.loaded = nil
	e.created = nil
}

// FetchContext returns a copy of the context of the last fetch.
func (e *Environment) FetchContext() FetchContext {
	e.ctxMu.RLock()
	defer e.ctxMu.RUnlock()
	c := e.fetch
	c.Record = e.fetch.Record.Clone()
	return c
}

// RestoreFetchContext installs a fetch context saved elsewhere, so FetchMore
// can continue a restored session.
func (e *Environment) RestoreFetchContext(c FetchContext) {
	c.Record = c.Record.Clone()
	e.setFetchContext(c)
}

func (e *Environment) setFetchContext(c FetchContext) {
	e.ctxMu.Lock()
	defer e.ctxMu.Unlock()
	e.fetch = c
}

// MarkTainted flags the entity with the given id, in whichever list holds
// it, as locally modified.
func (e *Environment) MarkTainted(id string) bool {
	return e.Shells.MarkTainted(id) || e.Submodels.MarkTainted(id) || e.ConceptDescriptions.MarkTainted(id)
}

// Counts returns the number of slots per list.
func (e *Environment) Counts() Counts {
	return Counts{
		AAS:                 e.Shells.Len(),
		Submodels:           e.Submodels.Len(),
		ConceptDescriptions: e.ConceptDescriptions.Len(),
		Other:               e.ThumbnailCount(),
	}
}

func cloneURL(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
