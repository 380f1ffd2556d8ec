// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatview

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/vcpchat-tui/internal/model"
)

// =============================================================================
// SAVER
// =============================================================================

// saveJob is one history snapshot waiting to be written.
type saveJob struct {
	agentID string
	topicID string
	msgs    []model.Message
}

func (j saveJob) sameTopic(o saveJob) bool {
	return j.agentID == o.agentID && j.topicID == o.topicID
}

// saver writes history snapshots. When async, writes happen on one
// background goroutine in submission order, and a newer snapshot of a topic
// replaces an older one still waiting. Otherwise save writes inline.
type saver struct {
	persister Persister
	logger    *zap.Logger
	timeout   time.Duration
	async     bool

	mu      sync.Mutex
	queue   []saveJob
	running bool
	idle    *sync.Cond
}

func newSaver(p Persister, logger *zap.Logger, timeout time.Duration, async bool) *saver {
	s := &saver{
		persister: p,
		logger:    logger,
		timeout:   timeout,
		async:     async,
	}
	s.idle = sync.NewCond(&s.mu)
	return s
}

// save records job for writing.
func (s *saver) save(job saveJob) {
	if !s.async {
		s.write(job)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.queue {
		if s.queue[i].sameTopic(job) {
			s.queue[i] = job
			return
		}
	}
	s.queue = append(s.queue, job)
	if !s.running {
		s.running = true
		go s.drain()
	}
}

// drain writes queued jobs until the queue is empty.
func (s *saver) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.idle.Broadcast()
			s.mu.Unlock()
			return
		}
		job := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.write(job)
	}
}

// saveNow writes job before returning, after everything already queued.
func (s *saver) saveNow(job saveJob) {
	s.flush()
	s.write(job)
}

// flush blocks until every queued snapshot has been written.
func (s *saver) flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.running {
		s.idle.Wait()
	}
}

func (s *saver) write(job saveJob) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.persister.SaveChatHistory(ctx, job.agentID, job.topicID, job.msgs); err != nil {
		s.logger.Error("failed to save history",
			zap.String("agent_id", job.agentID),
			zap.String("topic_id", job.topicID),
			zap.Error(err))
	}
}

// =============================================================================
// VIEW HOOKS
// =============================================================================

// persist saves a snapshot of the whole history. Headless views and views
// without a topic do nothing.
func (v *View) persist() {
	if job, ok := v.snapshot(); ok {
		v.saver.save(job)
	}
}

// persistNow is persist for destructive edits that must reach the store
// before the caller continues.
func (v *View) persistNow() {
	if job, ok := v.snapshot(); ok {
		v.saver.saveNow(job)
	}
}

func (v *View) snapshot() (saveJob, bool) {
	if v.opts.Headless || v.saver == nil || v.agentID == "" || v.topicID == "" {
		return saveJob{}, false
	}
	return saveJob{
		agentID: v.agentID,
		topicID: v.topicID,
		msgs:    v.store.Snapshot(),
	}, true
}

// Flush blocks until every history save started so far has finished. Views
// without a Dispatcher save inline and return at once.
func (v *View) Flush() {
	if v.saver != nil {
		v.saver.flush()
	}
}
