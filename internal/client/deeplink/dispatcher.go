package deeplink

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/appauth/internal/logging"
)

const defaultBuffer = 8

// Publisher accepts raw links from a source.
type Publisher interface {
	Publish(raw string)
}

// Subscriber hands out link streams.
type Subscriber interface {
	Subscribe() (<-chan string, func())
}

// Dispatcher fans raw links out to subscribers over buffered channels.
// Publish never blocks: a subscriber whose buffer is full misses the link.
type Dispatcher struct {
	logger logging.Logger
	buffer int

	mu      sync.Mutex
	subs    map[int]chan string
	next    int
	initial string
}

func NewDispatcher(logger logging.Logger, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Dispatcher{logger: logger, buffer: buffer, subs: make(map[int]chan string)}
}

// SetInitial records the link the program was started with. Every
// subscriber receives it first, so it is not lost when the subscriber
// registers after start-up.
func (d *Dispatcher) SetInitial(raw string) {
	d.mu.Lock()
	d.initial = raw
	d.mu.Unlock()
}

// Subscribe returns a link stream and a function that ends it. The stream
// is closed by the returned function, never by Publish.
func (d *Dispatcher) Subscribe() (<-chan string, func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ch := make(chan string, d.buffer)
	if d.initial != "" {
		ch <- d.initial
	}
	id := d.next
	d.next++
	d.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.subs, id)
			close(ch)
			d.mu.Unlock()
		})
	}
}

func (d *Dispatcher) Publish(raw string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, ch := range d.subs {
		select {
		case ch <- raw:
		default:
			d.logger.Warn(context.Background(), "deep link dropped, subscriber is not keeping up", "subscriber", id)
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (d *Dispatcher) Subscribers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}
