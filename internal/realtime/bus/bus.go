package bus

import (
	"context"
	"sync"

	"github.com/yungbote/lessonforge-backend/internal/realtime"
)

// Bus publishes generation progress so other processes can follow a lesson build.
type Bus interface {
	Publish(ctx context.Context, ev realtime.Event) error
	StartForwarder(ctx context.Context, onEvent func(ev realtime.Event)) error
	Close() error
}

// memoryBus delivers events to in-process forwarders. It is used when no redis is configured.
type memoryBus struct {
	mu     sync.RWMutex
	subs   map[int]func(realtime.Event)
	nextID int
}

func NewMemoryBus() Bus {
	return &memoryBus{subs: map[int]func(realtime.Event){}}
}

func (b *memoryBus) Publish(_ context.Context, ev realtime.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.subs {
		fn(ev)
	}
	return nil
}

func (b *memoryBus) StartForwarder(ctx context.Context, onEvent func(ev realtime.Event)) error {
	if onEvent == nil {
		return errCallbackRequired
	}
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = onEvent
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}()
	return nil
}

func (b *memoryBus) Close() error {
	b.mu.Lock()
	b.subs = map[int]func(realtime.Event){}
	b.mu.Unlock()
	return nil
}
