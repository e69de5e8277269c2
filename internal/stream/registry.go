package stream

import (
	"context"
	"sync"
)

// Registry tracks in-flight generation streams so a client that reconnects
// can replay frames it missed and keep tailing the live producer. Completed
// streams are dropped from the registry; a resume against a finished stream
// yields nothing and the caller falls back to the persisted final message.
type Registry struct {
	mu      sync.RWMutex
	streams map[string]*liveStream
}

type liveStream struct {
	chatID string
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []Event
	done   bool
}

// Producer is the write side of one registered stream.
type Producer struct {
	registry *Registry
	streamID string
	stream   *liveStream
}

func NewRegistry() *Registry {
	return &Registry{
		streams: make(map[string]*liveStream),
	}
}

// Register creates a live stream for streamID and returns its producer.
// Registering an id twice replaces the previous entry.
func (r *Registry) Register(streamID, chatID string) *Producer {
	ls := &liveStream{chatID: chatID}
	ls.cond = sync.NewCond(&ls.mu)

	r.mu.Lock()
	r.streams[streamID] = ls
	r.mu.Unlock()

	return &Producer{registry: r, streamID: streamID, stream: ls}
}

// Publish appends one frame to the stream buffer and wakes subscribers.
func (p *Producer) Publish(ev Event) {
	p.stream.mu.Lock()
	p.stream.buf = append(p.stream.buf, ev)
	p.stream.mu.Unlock()
	p.stream.cond.Broadcast()
}

// Close marks the stream complete and removes it from the registry.
// Subscribers drain the remaining buffer before their channels close.
func (p *Producer) Close() {
	p.stream.mu.Lock()
	p.stream.done = true
	p.stream.mu.Unlock()
	p.stream.cond.Broadcast()

	p.registry.mu.Lock()
	if current, ok := p.registry.streams[p.streamID]; ok && current == p.stream {
		delete(p.registry.streams, p.streamID)
	}
	p.registry.mu.Unlock()
}

// Resume subscribes to a live stream. The returned channel first replays
// every frame published so far, then tails the producer until it closes.
// Returns false when the stream is unknown or already complete.
func (r *Registry) Resume(ctx context.Context, streamID string) (<-chan Event, bool) {
	r.mu.RLock()
	ls, ok := r.streams[streamID]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}

	ch := make(chan Event, 16)
	go func() {
		defer close(ch)
		next := 0
		for {
			ls.mu.Lock()
			for next >= len(ls.buf) && !ls.done && ctx.Err() == nil {
				ls.cond.Wait()
			}
			if next < len(ls.buf) {
				ev := ls.buf[next]
				next++
				ls.mu.Unlock()
				select {
				case ch <- ev:
				case <-ctx.Done():
					return
				}
				continue
			}
			done := ls.done
			ls.mu.Unlock()
			if done || ctx.Err() != nil {
				return
			}
		}
	}()

	// Wake the goroutine when the subscriber context ends so it does not
	// sit in cond.Wait past the client disconnect.
	go func() {
		<-ctx.Done()
		ls.cond.Broadcast()
	}()

	return ch, true
}

// ChatID reports the chat a live stream belongs to.
func (r *Registry) ChatID(streamID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ls, ok := r.streams[streamID]
	if !ok {
		return "", false
	}
	return ls.chatID, true
}
