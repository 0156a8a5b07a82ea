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
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/FriedJannik/aas-go-sdk/jsonization"
	"github.com/FriedJannik/aas-go-sdk/types"
	"github.com/spf13/cobra"

	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/endpoints"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/fetch"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/renamedelete"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/sideinfo"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/snapshot"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/syncback"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/wiring"
)

type fetchFlags struct {
	operation  string
	itemID     string
	assetID    string
	query      string
	queryType  string
	filter     string
	skip       int
	eager      bool
	cds        bool
	thumbnails bool
	allPages   bool
	session    string
}

// applyTo copies the command line selection into rec.
func (f *fetchFlags) applyTo(rec *fetch.ConnectionRecord) error {
	if f.operation != "" {
		op, err := fetch.ParseOperation(f.operation)
		if err != nil {
			return err
		}
		rec.SelectOperation(op)
	}
	rec.ItemID = f.itemID
	rec.AssetID = f.assetID
	rec.QueryScript = f.query
	rec.QueryElementType = f.queryType
	rec.FilterText = f.filter
	rec.PageSkip = f.skip
	if f.eager {
		rec.AutoLoadOnDemand = false
		rec.AutoLoadSubmodels = true
	}
	if f.cds {
		rec.AutoLoadCDs = true
	}
	if f.thumbnails {
		rec.AutoLoadThumbnails = true
	}
	return rec.Validate()
}

func newFetchCmd(root *rootFlags) *cobra.Command {
	flags := &fetchFlags{}
	cmd := &cobra.Command{
		Use:   "fetch [location]",
		Short: "Load entities from a repository, registry or registry of registries",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			location := cfg.Source.Location
			if len(args) == 1 {
				location = args[0]
			}
			if location == "" {
				return common.NewErrBadRequest("no location given and source.location is empty")
			}
			rec, err := wiring.Record(cfg)
			if err != nil {
				return err
			}
			if err := flags.applyTo(rec); err != nil {
				return err
			}

			events := make(chan fetch.ProgressEvent, 64)
			done := make(chan struct{})
			go func() {
				defer close(done)
				printProgress(cmd.ErrOrStderr(), events)
			}()

			c, err := root.build(cfg, wiring.Options{Progress: events})
			if err != nil {
				close(events)
				<-done
				return err
			}
			env, err := loadAll(cmd.Context(), c.Orchestrator, location, rec, flags.allPages)
			close(events)
			<-done
			if err != nil {
				return err
			}

			printEnvironment(cmd.OutOrStdout(), env)
			if flags.session == "" {
				return nil
			}
			return withStore(cmd.Context(), c, func(store *snapshot.Store) error {
				if err := store.SaveEnvironment(cmd.Context(), flags.session, env); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "saved as session %q\n", flags.session)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.operation, "operation", "", "allAAS | singleAAS | aasByAssetId | allSubmodels | singleSubmodel | allConceptDescriptions | singleConceptDescription | query")
	f.StringVar(&flags.itemID, "id", "", "identifier for single element operations")
	f.StringVar(&flags.assetID, "asset-id", "", "asset id for aasByAssetId")
	f.StringVar(&flags.query, "query", "", "query text for the query operation")
	f.StringVar(&flags.queryType, "query-type", "", "element type of the query (shells, submodels, concept-descriptions)")
	f.StringVar(&flags.filter, "filter", "", "only keep entities whose id or idShort contains this text")
	f.IntVar(&flags.skip, "skip", 0, "skip this many entries of the first page")
	f.BoolVar(&flags.eager, "eager", false, "load referenced submodels instead of creating stubs")
	f.BoolVar(&flags.cds, "concept-descriptions", false, "also load concept descriptions referenced by semantic ids")
	f.BoolVar(&flags.thumbnails, "thumbnails", false, "also load shell thumbnails")
	f.BoolVar(&flags.allPages, "all-pages", false, "follow the server cursor until the last page")
	f.StringVar(&flags.session, "save", "", "save the result as snapshot session")
	return cmd
}

func loadAll(ctx context.Context, orch *fetch.Orchestrator, location string, rec *fetch.ConnectionRecord, allPages bool) (*fetch.Environment, error) {
	env, err := orch.LoadFromSource(ctx, location, nil, rec)
	if err != nil {
		return nil, err
	}
	for allPages && env.FetchContext().Cursor != "" {
		if env, err = orch.FetchMore(ctx, env); err != nil {
			return nil, err
		}
	}
	return env, nil
}

func printProgress(w io.Writer, events <-chan fetch.ProgressEvent) {
	for ev := range events {
		switch e := ev.(type) {
		case fetch.Started:
			_, _ = fmt.Fprintf(w, "▶️  %s: %s\n", e.OpID, e.Location)
		case fetch.ItemCompleted:
			_, _ = fmt.Fprintf(w, "   %s +%d (total %d)\n", e.Channel, e.Delta, e.Counts.Total())
		case fetch.Finished:
			if e.Err != nil {
				_, _ = fmt.Fprintf(w, "❌ %s: %v\n", e.OpID, e.Err)
				continue
			}
			_, _ = fmt.Fprintf(w, "✅ %s: %d AAS, %d submodels, %d concept descriptions\n",
				e.OpID, e.Counts.AAS, e.Counts.Submodels, e.Counts.ConceptDescriptions)
		}
	}
}

func printEnvironment(w io.Writer, env *fetch.Environment) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "KIND\tID\tIDSHORT\tSTATE\tTAINT\tENDPOINT")
	for _, kind := range fetch.Kinds {
		st := kind.Store(env)
		for _, idx := range st.Indices() {
			data, side, taint, ok := st.Get(idx)
			if !ok {
				continue
			}
			id, idShort, state, endpoint := "", "", "loaded", ""
			if side != nil {
				id, idShort = side.ID, side.IDShort
				if side.DesignatedEndpoint != nil {
					endpoint = side.DesignatedEndpoint.String()
				} else if side.QueriedEndpoint != nil {
					endpoint = side.QueriedEndpoint.String()
				}
			}
			if data == nil {
				state = "stub"
			} else {
				id = data.ID()
			}
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", kind.Name, id, idShort, state, taint, endpoint)
		}
	}
	_ = tw.Flush()
	fc := env.FetchContext()
	if fc.Cursor != "" {
		_, _ = fmt.Fprintf(w, "more results available (cursor %s)\n", fc.Cursor)
	}
	if fc.Result.EmptyAfterSkip {
		_, _ = fmt.Fprintln(w, "skip moved past the last entry")
	}
}

func withStore(ctx context.Context, c *wiring.Components, fn func(*snapshot.Store) error) error {
	store, err := wiring.OpenSnapshotStore(ctx, c.Config, c.Log)
	if err != nil {
		return err
	}
	if store == nil {
		return common.NewErrBadRequest("snapshots need postgres.enabled")
	}
	defer func() { _ = store.Close() }()
	return fn(store)
}

// importEnvironment adds all identifiables of an AAS environment file as new
// entities.
func importEnvironment(path string, env *fetch.Environment) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	jsonable, err := common.UnmarshalJsonable(data)
	if err != nil {
		return 0, common.NewErrDeserialize(path, err)
	}
	parsed, err := jsonization.EnvironmentFromJsonable(jsonable)
	if err != nil {
		return 0, common.NewErrDeserialize(path, err)
	}

	var all []types.IIdentifiable
	for _, aas := range parsed.AssetAdministrationShells() {
		all = append(all, aas)
	}
	for _, sm := range parsed.Submodels() {
		all = append(all, sm)
	}
	for _, cd := range parsed.ConceptDescriptions() {
		all = append(all, cd)
	}
	n := 0
	for _, entity := range all {
		_, added, err := fetch.KindOf(entity).Store(env).AddIfNew(entity, nil, sideinfo.TaintUnknown)
		if err != nil {
			return n, err
		}
		if added {
			n++
		}
	}
	return n, nil
}

func newSyncCmd(root *rootFlags) *cobra.Command {
	var session, file, newBase string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Write modified and new entities back to their servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (session == "") == (file == "") {
				return common.NewErrBadRequest("give exactly one of --session and --file")
			}
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			c, err := root.build(cfg, wiring.Options{})
			if err != nil {
				return err
			}
			baseForNew := syncback.UseDefaultBase
			if newBase != "" {
				baseForNew = func(string, types.IIdentifiable) string { return newBase }
			}

			run := func(env *fetch.Environment) error {
				sum, err := c.Engine.SyncTainted(cmd.Context(), env, baseForNew)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d written, %d failed, %d skipped, %d considered\n", sum.OK, sum.NotOK, sum.Skipped, sum.Total)
				if sum.NotOK > 0 {
					return fmt.Errorf("%d writes failed; the entities stay tainted", sum.NotOK)
				}
				return nil
			}

			if file != "" {
				env := fetch.NewEnvironment()
				n, err := importEnvironment(file, env)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d identifiables from %s\n", n, file)
				return run(env)
			}
			return withStore(cmd.Context(), c, func(store *snapshot.Store) error {
				env, err := store.LoadEnvironment(cmd.Context(), session)
				if err != nil {
					return err
				}
				syncErr := run(env)
				if err := store.SaveEnvironment(cmd.Context(), session, env); err != nil {
					return err
				}
				return syncErr
			})
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "snapshot session to sync")
	cmd.Flags().StringVar(&file, "file", "", "AAS environment JSON file to upload")
	cmd.Flags().StringVar(&newBase, "new-base", "", "repository for entities without a known endpoint")
	return cmd
}

func parseKind(s string) (*fetch.ElementKind, error) {
	kind := fetch.KindForResultType(s)
	if kind == nil {
		return nil, common.NewErrBadRequest("unknown element type " + s + " (use aas, submodel or cd)")
	}
	return kind, nil
}

// kindBase picks the repository of kind: --base, else the configured base URIs.
func kindBase(c *wiring.Components, kind *fetch.ElementKind, flag string) (*url.URL, error) {
	if flag != "" {
		if u := endpoints.ParseBase(flag); u != nil {
			return u, nil
		}
		return nil, common.NewErrInvalidBaseURI(flag)
	}
	if c.BaseURIs == nil {
		return nil, common.NewErrInvalidBaseURI("give --base or configure source.baseUris")
	}
	return c.BaseURIs.ResolveOrError(kind.Role)
}

func newRenameCmd(root *rootFlags) *cobra.Command {
	var base string
	cmd := &cobra.Command{
		Use:   "rename <aas|submodel|cd> <old-id> <new-id>",
		Short: "Give an identifiable a new id on its server",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			c, err := root.build(cfg, wiring.Options{})
			if err != nil {
				return err
			}
			u, err := kindBase(c, kind, base)
			if err != nil {
				return err
			}
			newURI, err := c.Assistant(nil).Rename(cmd.Context(), kind, u, args[1], args[2])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "renamed %s %q to %q (%s)\n", kind.Name, args[1], args[2], newURI)
			return nil
		},
	}
	cmd.Flags().StringVar(&base, "base", "", "repository base URI")
	return cmd
}

// confirmOnStdin prints the existence report and asks for confirmation.
func confirmOnStdin(in io.Reader, out io.Writer, assumeYes bool) func(renamedelete.ExistenceReport) bool {
	return func(rep renamedelete.ExistenceReport) bool {
		_, _ = fmt.Fprintf(out, "found: %d, not found: %d, wrong type: %d, failed: %d\n",
			len(rep.Found), len(rep.NotFound), len(rep.WrongType), len(rep.Failed))
		for _, id := range rep.Found {
			_, _ = fmt.Fprintf(out, "  delete %s\n", id)
		}
		if assumeYes {
			return true
		}
		_, _ = fmt.Fprint(out, "delete these? [y/N] ")
		line, _ := bufio.NewReader(in).ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}
}

func newDeleteCmd(root *rootFlags) *cobra.Command {
	var base string
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <aas|submodel|cd> <id>...",
		Short: "Delete identifiables after checking they exist",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			c, err := root.build(cfg, wiring.Options{})
			if err != nil {
				return err
			}
			u, err := kindBase(c, kind, base)
			if err != nil {
				return err
			}
			_, sum, err := c.Assistant(nil).BatchDelete(cmd.Context(), kind, u, args[1:],
				confirmOnStdin(cmd.InOrStdin(), cmd.OutOrStdout(), yes))
			if err != nil {
				return err
			}
			if sum.Declined {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "nothing deleted")
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d deleted, %d failed\n", sum.Deleted, sum.Failed)
			if sum.Failed > 0 {
				return fmt.Errorf("%d deletions failed", sum.Failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&base, "base", "", "repository base URI")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newSnapshotCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "List or delete saved sessions",
	}
	withComponents := func(cmd *cobra.Command, fn func(*snapshot.Store) error) error {
		cfg, err := root.loadConfig()
		if err != nil {
			return err
		}
		c, err := root.build(cfg, wiring.Options{})
		if err != nil {
			return err
		}
		return withStore(cmd.Context(), c, fn)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withComponents(cmd, func(store *snapshot.Store) error {
				sessions, err := store.ListSessions(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "SESSION\tSAVED\tLOCATION")
				for _, s := range sessions {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.SavedAt.Format("2006-01-02 15:04:05"), s.Location)
				}
				return tw.Flush()
			})
		},
	}, &cobra.Command{
		Use:   "delete <session>",
		Short: "Delete a saved session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComponents(cmd, func(store *snapshot.Store) error {
				return store.DeleteSession(cmd.Context(), args[0])
			})
		},
	})
	return cmd
}
