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
	"fmt"
	"net/url"
	"strings"

	"github.com/FriedJannik/aas-go-sdk/jsonization"
	"github.com/FriedJannik/aas-go-sdk/types"

	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/endpoints"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/sideinfo"
)

// Store is the element-type independent view of one Environment list.
type Store interface {
	Len() int
	IndexOf(id string) int
	Get(index int) (types.IIdentifiable, *sideinfo.SideInfo, sideinfo.Taint, bool)
	AddIfNew(entity types.IIdentifiable, side *sideinfo.SideInfo, taint sideinfo.Taint) (int, bool, error)
	AddStub(side *sideinfo.SideInfo) (int, bool)
	Update(index int, entity types.IIdentifiable) error
	SetSide(index int, side *sideinfo.SideInfo) bool
	MarkHydrated(index int) bool
	SetTaint(index int, taint sideinfo.Taint) bool
	Revision(index int) uint64
	ClearTaintIfUnchanged(index int, rev uint64) bool
	Remove(id string) bool
	Indices() []int
}

type typedStore[T types.IIdentifiable] struct {
	list *sideinfo.List[T]
	kind string
}

func (s typedStore[T]) Len() int { return s.list.Len() }

func (s typedStore[T]) IndexOf(id string) int { return s.list.IndexOf(id) }

func (s typedStore[T]) Get(index int) (types.IIdentifiable, *sideinfo.SideInfo, sideinfo.Taint, bool) {
	slot, ok := s.list.Get(index)
	if !ok {
		return nil, nil, sideinfo.TaintUnknown, false
	}
	if !slot.HasData() {
		return nil, slot.Side, slot.Taint, true
	}
	return slot.Data, slot.Side, slot.Taint, true
}

func (s typedStore[T]) cast(entity types.IIdentifiable) (T, error) {
	t, ok := entity.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("FETCH-STORE-WRONGTYPE: %T is not a %s", entity, s.kind)
	}
	return t, nil
}

func (s typedStore[T]) AddIfNew(entity types.IIdentifiable, side *sideinfo.SideInfo, taint sideinfo.Taint) (int, bool, error) {
	t, err := s.cast(entity)
	if err != nil {
		return -1, false, err
	}
	idx, added := s.list.AddIfNewWithTaint(t, side, taint)
	return idx, added, nil
}

func (s typedStore[T]) AddStub(side *sideinfo.SideInfo) (int, bool) {
	var zero T
	return s.list.AddIfNew(zero, side)
}

func (s typedStore[T]) Update(index int, entity types.IIdentifiable) error {
	t, err := s.cast(entity)
	if err != nil {
		return err
	}
	if !s.list.Update(index, t) {
		return fmt.Errorf("FETCH-STORE-UPDATE: cannot update %s at index %d with %q", s.kind, index, entity.ID())
	}
	return nil
}

func (s typedStore[T]) SetSide(index int, side *sideinfo.SideInfo) bool {
	return s.list.SetSide(index, side)
}

func (s typedStore[T]) MarkHydrated(index int) bool { return s.list.MarkHydrated(index) }

func (s typedStore[T]) SetTaint(index int, taint sideinfo.Taint) bool {
	return s.list.SetTaint(index, taint)
}

func (s typedStore[T]) Revision(index int) uint64 { return s.list.Revision(index) }

func (s typedStore[T]) ClearTaintIfUnchanged(index int, rev uint64) bool {
	return s.list.ClearTaintIfUnchanged(index, rev)
}

func (s typedStore[T]) Remove(id string) bool { return s.list.Remove(id) }

func (s typedStore[T]) Indices() []int {
	n := s.list.Len()
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// ElementKind is the capability record of one identifiable type: how to
// deserialize it, where it lives and which list and progress channel it uses.
type ElementKind struct {
	Name    string
	Channel Channel
	// Role is the base URI role of its repository.
	Role       string
	Collection string

	Deserialize func(jsonable any) (types.IIdentifiable, error)
	ListURI     func(base *url.URL, pageLimit int, cursor string) *url.URL
	SingleURI   func(base *url.URL, id string, encrypt bool, usePost bool) *url.URL
	Store       func(env *Environment) Store
}

var (
	KindAAS = &ElementKind{
		Name:       "AAS",
		Channel:    ChannelAAS,
		Role:       endpoints.RoleAASRepo,
		Collection: endpoints.PathShells,
		Deserialize: func(jsonable any) (types.IIdentifiable, error) {
			aas, err := jsonization.AssetAdministrationShellFromJsonable(jsonable)
			if err != nil {
				return nil, err
			}
			return aas, nil
		},
		ListURI:   endpoints.BuildURIForRepoAllAAS,
		SingleURI: endpoints.BuildURIForRepoSingleAAS,
		Store: func(env *Environment) Store {
			return typedStore[types.IAssetAdministrationShell]{list: env.Shells, kind: "AAS"}
		},
	}

	KindSubmodel = &ElementKind{
		Name:       "Submodel",
		Channel:    ChannelSubmodel,
		Role:       endpoints.RoleSMRepo,
		Collection: endpoints.PathSubmodels,
		Deserialize: func(jsonable any) (types.IIdentifiable, error) {
			sm, err := jsonization.SubmodelFromJsonable(jsonable)
			if err != nil {
				return nil, err
			}
			return sm, nil
		},
		ListURI:   endpoints.BuildURIForRepoAllSubmodels,
		SingleURI: endpoints.BuildURIForRepoSingleSubmodel,
		Store: func(env *Environment) Store {
			return typedStore[types.ISubmodel]{list: env.Submodels, kind: "Submodel"}
		},
	}

	KindConceptDescription = &ElementKind{
		Name:       "ConceptDescription",
		Channel:    ChannelConceptDescription,
		Role:       endpoints.RoleCDRepo,
		Collection: endpoints.PathConceptDescriptions,
		Deserialize: func(jsonable any) (types.IIdentifiable, error) {
			cd, err := jsonization.ConceptDescriptionFromJsonable(jsonable)
			if err != nil {
				return nil, err
			}
			return cd, nil
		},
		ListURI:   endpoints.BuildURIForRepoAllCDs,
		SingleURI: endpoints.BuildURIForRepoSingleCD,
		Store: func(env *Environment) Store {
			return typedStore[types.IConceptDescription]{list: env.ConceptDescriptions, kind: "ConceptDescription"}
		},
	}

	// Kinds lists all element kinds in environment order.
	Kinds = []*ElementKind{KindAAS, KindSubmodel, KindConceptDescription}
)

// KindForOperation returns the element kind a repository operation returns.
func KindForOperation(op endpoints.OperationKind) *ElementKind {
	switch op {
	case endpoints.OpRepoAllAAS, endpoints.OpRepoSingleAAS, endpoints.OpRepoAASByAssetID:
		return KindAAS
	case endpoints.OpRepoAllSubmodels, endpoints.OpRepoSingleSubmodel, endpoints.OpRepoSubmodelOfAAS:
		return KindSubmodel
	case endpoints.OpRepoAllCDs, endpoints.OpRepoSingleCD:
		return KindConceptDescription
	default:
		return nil
	}
}

// KindOf returns the element kind of an entity.
func KindOf(entity types.IIdentifiable) *ElementKind {
	switch entity.(type) {
	case types.IAssetAdministrationShell:
		return KindAAS
	case types.ISubmodel:
		return KindSubmodel
	case types.IConceptDescription:
		return KindConceptDescription
	default:
		return nil
	}
}

// KindForResultType maps the element type names used in query paths and in
// the resultType of query responses.
func KindForResultType(name string) *ElementKind {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "aas", "shell", "shells", "assetadministrationshell", "assetadministrationshells":
		return KindAAS
	case "sm", "submodel", "submodels":
		return KindSubmodel
	case "cd", "cds", "conceptdescription", "conceptdescriptions", "concept-descriptions", "concept-description":
		return KindConceptDescription
	default:
		return nil
	}
}
