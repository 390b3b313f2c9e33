package tts

import "sync"

// mailbox is an unbounded FIFO with a channel on the receiving end. push
// never blocks, so producers may hold locks the consumer also takes.
type mailbox[T any] struct {
	mu     sync.Mutex
	items  []T
	signal chan struct{}
	out    chan T
	done   chan struct{}
	once   sync.Once

	// drain delivers queued items after close instead of dropping them.
	drain bool
}

func newMailbox[T any](drain bool) *mailbox[T] {
	m := &mailbox[T]{
		signal: make(chan struct{}, 1),
		out:    make(chan T),
		done:   make(chan struct{}),
		drain:  drain,
	}
	go m.pump()
	return m
}

func (m *mailbox[T]) push(v T) {
	m.mu.Lock()
	m.items = append(m.items, v)
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

func (m *mailbox[T]) receive() <-chan T {
	return m.out
}

func (m *mailbox[T]) close() {
	m.once.Do(func() { close(m.done) })
}

func (m *mailbox[T]) pump() {
	defer close(m.out)

	var zero T
	for {
		m.mu.Lock()
		if len(m.items) == 0 {
			m.mu.Unlock()
			select {
			case <-m.signal:
				continue
			case <-m.done:
				return
			}
		}
		v := m.items[0]
		m.items[0] = zero
		m.items = m.items[1:]
		m.mu.Unlock()

		select {
		case m.out <- v:
		case <-m.done:
			if !m.drain {
				return
			}
			m.out <- v
		}
	}
}
