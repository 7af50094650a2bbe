// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package progress turns a stream of backend progress events into ordered
// placeholder updates and owns the transient preview artifacts along the way.
package progress

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ipapadil7-star/nexus/internal/backend"
)

// ErrStreamClosed is returned when a stream closes without a final event.
var ErrStreamClosed = errors.New("progress stream closed without a result")

// Artifact is a locally materialized preview that must be released once
// nothing displays it anymore.
type Artifact interface {
	URL() string
	Release() error
}

// Materializer turns preview bytes into an Artifact.
type Materializer interface {
	Materialize(m *backend.Media) (Artifact, error)
}

// Update is one progress step for the placeholder.
type Update struct {
	Status  string
	Percent int
	// PreviewURL is set only when a new preview replaced the old one.
	PreviewURL string
}

// Tracker follows one stream. At most one artifact is live at a time.
type Tracker struct {
	mat    Materializer
	logger *zap.Logger
	live   Artifact
}

// NewTracker returns a tracker that materializes previews with mat.
func NewTracker(mat Materializer, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{mat: mat, logger: logger}
}

// Follow applies every event from events in order until the final one and
// returns its result. A new preview is applied before the previous artifact
// is released; the last artifact is released when Follow returns, whatever
// the outcome. An error from apply stops the stream.
func (t *Tracker) Follow(ctx context.Context, events <-chan backend.VideoEvent, apply func(Update) error) (*backend.Media, error) {
	defer t.releaseLive()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil, ErrStreamClosed
			}
			if err := t.handle(ev, apply); err != nil {
				return nil, err
			}
			if ev.Err != nil {
				return nil, ev.Err
			}
			if ev.Result != nil {
				return ev.Result, nil
			}
		}
	}
}

func (t *Tracker) handle(ev backend.VideoEvent, apply func(Update) error) error {
	if ev.Err != nil {
		return nil
	}
	u := Update{Status: ev.Status, Percent: ev.Percent}

	var fresh Artifact
	if ev.Preview != nil && t.mat != nil {
		art, err := t.mat.Materialize(ev.Preview)
		if err != nil {
			t.logger.Warn("preview materialize failed", zap.Error(err))
		} else {
			fresh = art
			u.PreviewURL = art.URL()
		}
	}

	if u.Status == "" && u.PreviewURL == "" && u.Percent == 0 {
		return nil
	}
	if err := apply(u); err != nil {
		if fresh != nil {
			t.release(fresh)
		}
		return fmt.Errorf("apply progress: %w", err)
	}
	if fresh != nil {
		t.releaseLive()
		t.live = fresh
	}
	return nil
}

func (t *Tracker) releaseLive() {
	if t.live != nil {
		t.release(t.live)
		t.live = nil
	}
}

func (t *Tracker) release(a Artifact) {
	if err := a.Release(); err != nil {
		t.logger.Warn("preview release failed", zap.String("url", a.URL()), zap.Error(err))
	}
}
