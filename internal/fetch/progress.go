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
	"context"
	"sync"
)

// Channel is one of the four progress counters.
type Channel int

const (
	ChannelAAS Channel = iota
	ChannelSubmodel
	ChannelConceptDescription
	ChannelOther
)

func (c Channel) String() string {
	switch c {
	case ChannelAAS:
		return "AAS"
	case ChannelSubmodel:
		return "Submodel"
	case ChannelConceptDescription:
		return "ConceptDescription"
	default:
		return "Other"
	}
}

// Counts is a four-channel tally.
type Counts struct {
	AAS                 int
	Submodels           int
	ConceptDescriptions int
	Other               int
}

func (c Counts) Total() int {
	return c.AAS + c.Submodels + c.ConceptDescriptions + c.Other
}

// ProgressEvent is one of Started, ItemCompleted or Finished.
type ProgressEvent interface {
	progressEvent()
}

// Started is sent once when a fetch begins.
type Started struct {
	OpID     string
	Location string
}

// ItemCompleted is sent after each unit of work that added or hydrated
// entities.
type ItemCompleted struct {
	OpID    string
	Channel Channel
	Delta   int
	Counts  Counts
}

// Finished is sent once when a fetch ends; Err is nil on success.
type Finished struct {
	OpID   string
	Counts Counts
	Err    error
}

func (Started) progressEvent()       {}
func (ItemCompleted) progressEvent() {}
func (Finished) progressEvent()      {}

// progress counts completed units and forwards events to an optional
// channel. Sends block until the caller drains the channel or ctx ends.
type progress struct {
	opID   string
	sink   chan<- ProgressEvent
	mu     sync.Mutex
	counts Counts
}

func newProgress(opID string, sink chan<- ProgressEvent) *progress {
	return &progress{opID: opID, sink: sink}
}

func (p *progress) send(ctx context.Context, ev ProgressEvent) {
	if p.sink == nil {
		return
	}
	select {
	case p.sink <- ev:
	case <-ctx.Done():
	}
}

func (p *progress) started(ctx context.Context, location string) {
	p.send(ctx, Started{OpID: p.opID, Location: location})
}

func (p *progress) add(ctx context.Context, ch Channel, delta int) {
	if delta == 0 {
		return
	}
	p.mu.Lock()
	switch ch {
	case ChannelAAS:
		p.counts.AAS += delta
	case ChannelSubmodel:
		p.counts.Submodels += delta
	case ChannelConceptDescription:
		p.counts.ConceptDescriptions += delta
	default:
		p.counts.Other += delta
	}
	snapshot := p.counts
	p.mu.Unlock()

	p.send(ctx, ItemCompleted{OpID: p.opID, Channel: ch, Delta: delta, Counts: snapshot})
}

func (p *progress) snapshot() Counts {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts
}

func (p *progress) finished(ctx context.Context, err error) {
	// Finished is delivered even after cancellation if the sink has room.
	if p.sink == nil {
		return
	}
	ev := Finished{OpID: p.opID, Counts: p.snapshot(), Err: err}
	if ctx.Err() != nil {
		select {
		case p.sink <- ev:
		default:
		}
		return
	}
	p.send(ctx, ev)
}
