package picker

import "sync"

// Loop is a serial executor: posted functions run one at a time, in order,
// on a single goroutine. It is the default owner of a session's Machine.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

func NewLoop() *Loop {
	l := &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

// Post queues f and returns immediately. It reports false after Close.
func (l *Loop) Post(f func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, f)
	l.mu.Unlock()
	l.signal()
	return true
}

// Dispatch is Post without the result, usable as a Dispatcher.
func (l *Loop) Dispatch(f func()) {
	_ = l.Post(f)
}

// Close stops the loop once the running function returns. Queued functions
// are dropped. Close does not wait and may be called from a posted function.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.queue = nil
	l.mu.Unlock()
	l.signal()
}

// Done is closed when the loop goroutine exits.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) run() {
	defer close(l.done)
	for range l.wake {
		for {
			f, ok, closed := l.next()
			if closed {
				return
			}
			if !ok {
				break
			}
			f()
		}
	}
}

func (l *Loop) next() (f func(), ok, closed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, false, true
	}
	if len(l.queue) == 0 {
		return nil, false, false
	}
	f = l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return f, true, false
}
