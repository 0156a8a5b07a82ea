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

package renamedelete

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"sync"

	"github.com/FriedJannik/aas-go-sdk/types"
	"golang.org/x/sync/errgroup"

	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/endpoints"
)

// AttachmentSummary tallies one attachment copy.
type AttachmentSummary struct {
	OK      int
	Failed  int
	Skipped int
	Total   int
}

// CopyAttachments reads the attachment of every File element of sm from the
// submodel fromID and uploads it to the submodel toID, both below base.
// Files with an idShortPath that cannot be addressed are skipped; a failed
// file never stops the others.
func (a *Assistant) CopyAttachments(ctx context.Context, base *url.URL, sm types.ISubmodel, fromID, toID string) AttachmentSummary {
	var sum AttachmentSummary
	refs := endpoints.FindAllUsedFileElements(sm, func(p string) {
		sum.Skipped++
		a.log.Warnf("RENAME-ATTACHMENT-PATH: %q in %q cannot be addressed, skipped", p, fromID)
	})
	sum.Total = len(refs) + sum.Skipped

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.ParallelWrites)
	for _, ref := range refs {
		if gctx.Err() != nil {
			mu.Lock()
			sum.Failed++
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			ok := a.copyAttachment(gctx, base, ref, fromID, toID)
			mu.Lock()
			if ok {
				sum.OK++
			} else {
				sum.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if sum.Total > 0 {
		a.log.Infof("attachments of %q: %d ok, %d failed, %d skipped of %d", toID, sum.OK, sum.Failed, sum.Skipped, sum.Total)
	}
	return sum
}

func (a *Assistant) copyAttachment(ctx context.Context, base *url.URL, ref endpoints.FileElementRef, fromID, toID string) bool {
	src := endpoints.BuildAttachmentURI(base, fromID, ref.IDShortPath, "", a.opts.EncryptIDs, nil)
	dst := endpoints.BuildAttachmentURI(base, toID, ref.IDShortPath, "", a.opts.EncryptIDs, nil)
	if src == nil || dst == nil {
		return false
	}

	resp, err := a.pool.Get(ctx, src)
	if err != nil {
		a.log.Warnf("RENAME-ATTACHMENT-READ: %s: %v", src, err)
		return false
	}
	if !resp.OK() {
		a.log.Warnf("RENAME-ATTACHMENT-READ: GET %s returned status %d", src, resp.StatusCode)
		return false
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" && ref.File != nil && ref.File.ContentType() != nil {
		ct = *ref.File.ContentType()
	}
	if ct == "" {
		ct = http.DetectContentType(resp.Body)
	}
	name := path.Base(ref.Value)
	if name == "." || name == "/" {
		name = ref.IDShortPath
	}

	pr, err := a.pool.PutFile(ctx, dst, name, ct, resp.Body)
	if err != nil {
		a.log.Warnf("RENAME-ATTACHMENT-WRITE: %s: %v", dst, err)
		return false
	}
	if !pr.OK() {
		a.log.Warnf("RENAME-ATTACHMENT-WRITE: PUT %s returned status %d", dst, pr.StatusCode)
		return false
	}
	return true
}
