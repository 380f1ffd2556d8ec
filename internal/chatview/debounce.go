// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatview

import "time"

// debouncer keeps at most one pending task per message id. Event thread only.
type debouncer struct {
	sched Scheduler
	tasks map[string]func() // message id -> cancel
}

func newDebouncer(s Scheduler) *debouncer {
	return &debouncer{sched: s, tasks: make(map[string]func())}
}

// schedule replaces any pending task for id.
func (d *debouncer) schedule(id string, delay time.Duration, fn func()) {
	d.cancel(id)
	d.tasks[id] = d.sched.AfterFunc(delay, func() {
		delete(d.tasks, id)
		fn()
	})
}

// cancel drops the pending task for id, if any.
func (d *debouncer) cancel(id string) {
	if stop, ok := d.tasks[id]; ok {
		stop()
		delete(d.tasks, id)
	}
}

func (d *debouncer) pending(id string) bool {
	_, ok := d.tasks[id]
	return ok
}

func (d *debouncer) cancelAll() {
	for id, stop := range d.tasks {
		stop()
		delete(d.tasks, id)
	}
}
