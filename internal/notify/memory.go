package notify

import (
	"context"
	"sync"
)

// MemoryQueue records enqueued jobs. Test double.
type MemoryQueue struct {
	mu   sync.Mutex
	jobs []EmailJob
}

func NewMemoryQueue() *MemoryQueue { return &MemoryQueue{} }

func (q *MemoryQueue) Enqueue(_ context.Context, job EmailJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *MemoryQueue) Jobs() []EmailJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]EmailJob(nil), q.jobs...)
}

// BroadcastRecord is a captured room broadcast.
type BroadcastRecord struct {
	Room    string
	Event   string
	Payload any
}

// MemoryBroadcaster records broadcasts. Test double.
type MemoryBroadcaster struct {
	mu       sync.Mutex
	messages []BroadcastRecord
}

func NewMemoryBroadcaster() *MemoryBroadcaster { return &MemoryBroadcaster{} }

func (b *MemoryBroadcaster) Broadcast(_ context.Context, room, event string, payload any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, BroadcastRecord{Room: room, Event: event, Payload: payload})
	return nil
}

func (b *MemoryBroadcaster) Messages() []BroadcastRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]BroadcastRecord(nil), b.messages...)
}
