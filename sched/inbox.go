package sched

import "sync"

// completionInbox collects retired tasks. Any worker may push; only the
// coordinator takes.
type completionInbox struct {
	mu    sync.Mutex
	items []*envelope
}

func (in *completionInbox) push(env *envelope) {
	in.mu.Lock()
	in.items = append(in.items, env)
	in.mu.Unlock()
}

// takeAll swaps the pending slice out, preserving retirement order.
func (in *completionInbox) takeAll() []*envelope {
	in.mu.Lock()
	items := in.items
	in.items = nil
	in.mu.Unlock()
	return items
}

func (in *completionInbox) len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.items)
}
