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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/fetch"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/renamedelete"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/sideinfo"
)

func TestCommandTree(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	require.Subset(t, names, []string{"fetch", "sync", "rename", "delete", "snapshot"})

	snap, _, err := root.Find([]string{"snapshot", "list"})
	require.NoError(t, err)
	require.Equal(t, "list", snap.Name())
}

func TestLoadConfigAppliesOverrides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "aasfetch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source:\n  location: http://from-file/shells\nfetch:\n  pageLimit: 5\n"), 0o600))

	f := &rootFlags{configPath: path, pageLimit: -1}
	cfg, err := f.loadConfig()
	require.NoError(t, err)
	require.Equal(t, "http://from-file/shells", cfg.Source.Location)
	require.Equal(t, 5, cfg.Fetch.PageLimit)
	require.True(t, cfg.Fetch.EncryptIDs)

	f = &rootFlags{configPath: path, location: "http://flag/shells", baseType: "registry", pageLimit: 0, parallelReads: 8, plainIDs: true}
	cfg, err = f.loadConfig()
	require.NoError(t, err)
	require.Equal(t, "http://flag/shells", cfg.Source.Location)
	require.Equal(t, "registry", cfg.Source.BaseType)
	require.Equal(t, 0, cfg.Fetch.PageLimit)
	require.Equal(t, 8, cfg.Fetch.ParallelReads)
	require.False(t, cfg.Fetch.EncryptIDs)
}

func TestFetchFlagsSelectOperation(t *testing.T) {
	t.Parallel()

	rec := fetch.NewConnectionRecord(fetch.BaseRepository)
	flags := &fetchFlags{operation: "singleSubmodel", itemID: "urn:sm:1", eager: true}
	require.NoError(t, flags.applyTo(rec))
	require.True(t, rec.GetSingleSubmodel())
	require.Equal(t, "urn:sm:1", rec.ItemID)
	require.False(t, rec.AutoLoadOnDemand)

	flags = &fetchFlags{operation: "teleport"}
	require.Error(t, flags.applyTo(fetch.NewConnectionRecord(fetch.BaseRepository)))
}

func TestPrintEnvironmentMarksStubs(t *testing.T) {
	t.Parallel()

	env := fetch.NewEnvironment()
	env.Submodels.AddIfNew(nil, sideinfo.NewStub("urn:sm:stub", nil))

	var out bytes.Buffer
	printEnvironment(&out, env)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[1], "urn:sm:stub")
	require.Contains(t, lines[1], "stub")
	require.Contains(t, lines[1], "unknown")
}

func TestConfirmOnStdin(t *testing.T) {
	t.Parallel()

	rep := renamedelete.ExistenceReport{Found: []string{"urn:a"}, NotFound: []string{"urn:b"}}
	var out bytes.Buffer
	require.True(t, confirmOnStdin(strings.NewReader("y\n"), &out, false)(rep))
	require.Contains(t, out.String(), "delete urn:a")
	require.False(t, confirmOnStdin(strings.NewReader("\n"), &out, false)(rep))
	require.True(t, confirmOnStdin(strings.NewReader(""), &out, true)(rep))
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	kind, err := parseKind("submodel")
	require.NoError(t, err)
	require.Equal(t, fetch.KindSubmodel, kind)
	_, err = parseKind("widget")
	require.Error(t, err)
}
