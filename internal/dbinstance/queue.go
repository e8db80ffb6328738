package dbinstance

import (
	"github.com/koustreak/datforge/internal/instance"
	"github.com/koustreak/datforge/internal/model"
)

type pendingKey struct {
	target      string
	degenerated bool
}

// pending is one queued batch of partial tuples owed to a relation.
type pending struct {
	pendingKey
	partials []model.Values
}

// queue drains obligations first in, first out. Enqueueing for a key that
// is still waiting appends to the waiting batch instead of adding a new one.
type queue struct {
	items   []*pending
	waiting map[pendingKey]*pending
}

func newQueue() *queue {
	return &queue{waiting: make(map[pendingKey]*pending)}
}

func (q *queue) push(ob *instance.Obligations, degenerated bool) {
	if ob == nil {
		return
	}
	for _, target := range ob.Targets() {
		k := pendingKey{target: target, degenerated: degenerated}
		if p, ok := q.waiting[k]; ok {
			p.partials = append(p.partials, ob.For(target)...)
			continue
		}
		p := &pending{pendingKey: k, partials: append([]model.Values(nil), ob.For(target)...)}
		q.items = append(q.items, p)
		q.waiting[k] = p
	}
}

func (q *queue) pop() (*pending, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	p := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	delete(q.waiting, p.pendingKey)
	return p, true
}

func (q *queue) len() int {
	return len(q.items)
}
