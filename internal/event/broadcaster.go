// Package event implements the subscribe/notify contract shared by the
// session, inbox and prompt stores.
package event

import "sync"

// Broadcaster fans a value out to every subscriber. Delivery never blocks
// the publisher. A Subscribe channel whose buffer is full misses that
// value; a SubscribeAll channel queues it.
type Broadcaster[T any] struct {
	mu     sync.RWMutex
	subs   map[chan T]struct{}
	queues map[*queue[T]]struct{}
	buffer int
}

// NewBroadcaster creates a Broadcaster whose subscriber channels hold up
// to buffer pending values.
func NewBroadcaster[T any](buffer int) *Broadcaster[T] {
	if buffer <= 0 {
		buffer = 8
	}
	return &Broadcaster[T]{
		subs:   make(map[chan T]struct{}),
		queues: make(map[*queue[T]]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber. The returned func unsubscribes and
// closes the channel; it is safe to call more than once.
func (b *Broadcaster[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, b.buffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// SubscribeAll registers a subscriber that receives every value in
// publish order, however far behind it falls. The returned func
// unsubscribes and closes the channel; pending values are discarded.
func (b *Broadcaster[T]) SubscribeAll() (<-chan T, func()) {
	q := &queue[T]{
		signal: make(chan struct{}, 1),
		out:    make(chan T),
		done:   make(chan struct{}),
	}
	go q.run()

	b.mu.Lock()
	b.queues[q] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return q.out, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.queues, q)
			b.mu.Unlock()
			close(q.done)
		})
	}
}

// Publish delivers v to every current subscriber.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs {
		select {
		case ch <- v:
		default:
		}
	}
	for q := range b.queues {
		q.push(v)
	}
}

// Len returns the number of active subscribers.
func (b *Broadcaster[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs) + len(b.queues)
}

// queue is an unbounded FIFO drained into out by its own goroutine.
type queue[T any] struct {
	mu     sync.Mutex
	items  []T
	signal chan struct{}
	out    chan T
	done   chan struct{}
}

func (q *queue[T]) push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *queue[T]) run() {
	defer close(q.out)
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.mu.Unlock()
			select {
			case <-q.signal:
				continue
			case <-q.done:
				return
			}
		}
		v := q.items[0]
		var zero T
		q.items[0] = zero
		q.items = q.items[1:]
		q.mu.Unlock()

		select {
		case q.out <- v:
		case <-q.done:
			return
		}
	}
}
