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
	"strings"

	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common"
)

// BaseType is the kind of server a fetch starts from.
type BaseType int

const (
	BaseRepository BaseType = iota
	BaseRegistry
	BaseRegistryOfRegistries
)

func (b BaseType) String() string {
	switch b {
	case BaseRegistry:
		return "registry"
	case BaseRegistryOfRegistries:
		return "registryOfRegistries"
	default:
		return "repository"
	}
}

// ParseBaseType accepts the configuration spellings of a BaseType.
func ParseBaseType(s string) (BaseType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "repository", "repo":
		return BaseRepository, nil
	case "registry", "reg":
		return BaseRegistry, nil
	case "registryofregistries", "registry-of-registries", "ror":
		return BaseRegistryOfRegistries, nil
	default:
		return BaseRepository, common.NewErrInvalidRecord("unknown base type " + s)
	}
}

// Operation is the retrieval a ConnectionRecord asks for. Being a single
// value, at most one operation is ever selected.
type Operation int

const (
	OperationNone Operation = iota
	OperationAllAAS
	OperationSingleAAS
	OperationAASByAssetID
	OperationAllSubmodels
	OperationSingleSubmodel
	OperationAllCDs
	OperationSingleCD
	OperationQuery
)

var operationNames = map[Operation]string{
	OperationNone:           "none",
	OperationAllAAS:         "allAAS",
	OperationSingleAAS:      "singleAAS",
	OperationAASByAssetID:   "aasByAssetId",
	OperationAllSubmodels:   "allSubmodels",
	OperationSingleSubmodel: "singleSubmodel",
	OperationAllCDs:         "allConceptDescriptions",
	OperationSingleCD:       "singleConceptDescription",
	OperationQuery:          "query",
}

func (o Operation) String() string {
	if n, ok := operationNames[o]; ok {
		return n
	}
	return "unknown"
}

// ParseOperation is the inverse of Operation.String (case-insensitive).
func ParseOperation(s string) (Operation, error) {
	for op, name := range operationNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return op, nil
		}
	}
	return OperationNone, common.NewErrInvalidRecord("unknown operation " + s)
}

// ConnectionRecord configures one fetch. It is copied into the FetchContext
// of the target Environment so the fetch can be continued.
type ConnectionRecord struct {
	BaseType  BaseType
	operation Operation

	ItemID           string
	AssetID          string
	QueryScript      string
	QueryElementType string

	PageLimit  int
	PageSkip   int
	PageOffset int
	Cursor     string

	FilterText          string
	FilterCaseSensitive bool
	FilterExtName       string
	FilterExtValue      string

	AutoLoadSubmodels  bool
	AutoLoadCDs        bool
	AutoLoadThumbnails bool
	AutoLoadOnDemand   bool

	// ParallelReads overrides Options.ParallelReads when positive.
	ParallelReads int
	EncryptIDs    bool
	// HealAasListViaLookup retries an empty repository shell list through
	// /lookup/shells.
	HealAasListViaLookup bool
}

// NewConnectionRecord returns a record with the defaults used by the CLI.
func NewConnectionRecord(base BaseType) *ConnectionRecord {
	return &ConnectionRecord{
		BaseType:             base,
		EncryptIDs:           true,
		AutoLoadSubmodels:    true,
		AutoLoadOnDemand:     true,
		HealAasListViaLookup: true,
	}
}

// SelectOperation selects op and deselects every other operation.
func (r *ConnectionRecord) SelectOperation(op Operation) {
	r.operation = op
}

func (r *ConnectionRecord) Operation() Operation { return r.operation }

func (r *ConnectionRecord) GetAllAAS() bool         { return r.operation == OperationAllAAS }
func (r *ConnectionRecord) GetSingleAAS() bool      { return r.operation == OperationSingleAAS }
func (r *ConnectionRecord) GetAASByAssetID() bool   { return r.operation == OperationAASByAssetID }
func (r *ConnectionRecord) GetAllSubmodels() bool   { return r.operation == OperationAllSubmodels }
func (r *ConnectionRecord) GetSingleSubmodel() bool { return r.operation == OperationSingleSubmodel }
func (r *ConnectionRecord) GetAllCDs() bool         { return r.operation == OperationAllCDs }
func (r *ConnectionRecord) GetSingleCD() bool       { return r.operation == OperationSingleCD }
func (r *ConnectionRecord) GetQuery() bool          { return r.operation == OperationQuery }

// Clone returns a copy.
func (r *ConnectionRecord) Clone() *ConnectionRecord {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// Validate checks that the fields required by the selected operation are set.
func (r *ConnectionRecord) Validate() error {
	if r.PageLimit < 0 || r.PageSkip < 0 || r.PageOffset < 0 {
		return common.NewErrInvalidRecord("paging values must not be negative")
	}
	switch r.operation {
	case OperationSingleAAS, OperationSingleSubmodel, OperationSingleCD:
		if strings.TrimSpace(r.ItemID) == "" {
			return common.NewErrInvalidRecord(r.operation.String() + " requires an item id")
		}
	case OperationAASByAssetID:
		if strings.TrimSpace(r.AssetID) == "" {
			return common.NewErrInvalidRecord(r.operation.String() + " requires an asset id")
		}
	}
	if r.BaseType == BaseRegistryOfRegistries && r.operation != OperationNone && r.operation != OperationAASByAssetID {
		return common.NewErrInvalidRecord("a registry of registries only resolves asset ids")
	}
	return nil
}
