// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jeranaias/vcpchat-tui/internal/model"
	"github.com/jeranaias/vcpchat-tui/internal/render"
)

// gatedPersister blocks every save until gate is closed.
type gatedPersister struct {
	gate    chan struct{}
	entered chan struct{}

	mu    sync.Mutex
	saves []savedHistory
}

func newGatedPersister() *gatedPersister {
	return &gatedPersister{
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 16),
	}
}

func (p *gatedPersister) SaveChatHistory(_ context.Context, agentID, topicID string, msgs []model.Message) error {
	p.entered <- struct{}{}
	<-p.gate
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves = append(p.saves, savedHistory{agentID, topicID, msgs})
	return nil
}

func (p *gatedPersister) written() []savedHistory {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]savedHistory(nil), p.saves...)
}

func job(agentID, topicID, content string) saveJob {
	return saveJob{agentID, topicID, []model.Message{msg("m1", model.RoleUser, content)}}
}

func TestSaver_CoalescesPendingSnapshots(t *testing.T) {
	p := newGatedPersister()
	s := newSaver(p, zap.NewNop(), time.Second, true)

	s.save(job("nova", "t1", "v1"))
	<-p.entered

	s.save(job("nova", "t1", "v2"))
	s.save(job("nova", "t2", "other"))
	s.save(job("nova", "t1", "v3"))

	close(p.gate)
	s.flush()

	saves := p.written()
	require.Len(t, saves, 3)
	assert.Equal(t, "v1", saves[0].msgs[0].Content)
	assert.Equal(t, "t1", saves[1].topicID)
	assert.Equal(t, "v3", saves[1].msgs[0].Content)
	assert.Equal(t, "t2", saves[2].topicID)
}

func TestSaver_SaveNowWritesAfterQueue(t *testing.T) {
	p := newGatedPersister()
	s := newSaver(p, zap.NewNop(), time.Second, true)

	s.save(job("nova", "t1", "queued"))
	<-p.entered
	close(p.gate)
	s.saveNow(job("nova", "t1", "truncated"))

	saves := p.written()
	require.Len(t, saves, 2)
	assert.Equal(t, "queued", saves[0].msgs[0].Content)
	assert.Equal(t, "truncated", saves[1].msgs[0].Content)
}

func TestSaver_LogsFailures(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	p := &fakePersister{err: errors.New("disk full")}
	s := newSaver(p, zap.New(core), time.Second, false)

	s.save(job("nova", "t1", "x"))
	s.flush()

	require.Len(t, p.saves, 1)
	entries := logs.FilterMessage("failed to save history").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "t1", entries[0].ContextMap()["topic_id"])
}

func TestView_PersistDoesNotBlockEventThread(t *testing.T) {
	loop := NewEventLoop(0)
	defer loop.Close()
	p := newGatedPersister()

	v, err := New(Refs{Parser: render.NewMarkdown(), Persister: p}, Options{Dispatcher: loop})
	require.NoError(t, err)
	v.SetCurrentAgentID("nova")
	v.SetCurrentTopicID("topic_1")

	done := make(chan struct{})
	go func() {
		defer close(done)
		v.RenderMessage(msg("u1", model.RoleUser, "hi"), false)
		v.RenderMessage(msg("a1", model.RoleAssistant, "hello"), false)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RenderMessage waited for the save")
	}
	assert.Len(t, v.Messages(), 2)

	close(p.gate)
	require.NoError(t, v.Close())

	saves := p.written()
	require.NotEmpty(t, saves)
	last := saves[len(saves)-1].msgs
	require.Len(t, last, 2)
	assert.Equal(t, "hello", last[1].Content)
}
