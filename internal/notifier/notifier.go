// Package notifier fans a stream of ChangeNotifications out to
// interested subscribers. Notifications for a subscriber whose buffer
// is full are dropped; the publisher never blocks on it.
package notifier

import (
	"sync"

	"github.com/arjunv/wavesyncdb/internal/messages"
)

const defaultBuffer = 64

// Notifier is a lossy broadcaster of ChangeNotification values.
type Notifier struct {
	mu   sync.Mutex
	subs map[int]chan messages.ChangeNotification
	next int
}

func New() *Notifier {
	return &Notifier{subs: make(map[int]chan messages.ChangeNotification)}
}

// Subscribe returns a channel that receives future notifications, and
// an unsubscribe function the caller must call when done.
func (n *Notifier) Subscribe() (<-chan messages.ChangeNotification, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.next
	n.next++
	ch := make(chan messages.ChangeNotification, defaultBuffer)
	n.subs[id] = ch

	return ch, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if c, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(c)
		}
	}
}

// Publish broadcasts a notification to every current subscriber.
// Subscribers whose buffer is full are skipped rather than blocked.
func (n *Notifier) Publish(note messages.ChangeNotification) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs {
		select {
		case ch <- note:
		default:
		}
	}
}

// Close tears down every subscription.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, ch := range n.subs {
		delete(n.subs, id)
		close(ch)
	}
}
