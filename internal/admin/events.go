/* *****************************************************************************
 * Nehonix XyPriss System CLI
 * (see admin.go for full license header)
 ***************************************************************************** */

package admin

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// eventBroker fans out service lifecycle notifications to every connected
// /_dynapm/api/events subscriber. Subscribers that fail to keep up have
// their notification dropped rather than blocking the publisher.
type eventBroker struct {
	mu   sync.Mutex
	subs map[string]chan map[string]any
}

func newEventBroker() *eventBroker {
	return &eventBroker{subs: make(map[string]chan map[string]any)}
}

// subscribe registers a new /events connection and returns its delivery
// channel. Each subscriber is tagged with a short connection ID so the log
// line for its connect/disconnect can be correlated by an operator tailing
// admin logs across many concurrent dashboard viewers.
func (b *eventBroker) subscribe() chan map[string]any {
	id := uuid.NewString()
	ch := make(chan map[string]any, 8)
	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()
	log.Printf("[admin] events subscriber %s connected", id)
	return ch
}

func (b *eventBroker) unsubscribe(ch chan map[string]any) {
	b.mu.Lock()
	for id, c := range b.subs {
		if c == ch {
			delete(b.subs, id)
			log.Printf("[admin] events subscriber %s disconnected", id)
			break
		}
	}
	b.mu.Unlock()
	close(ch)
}

func (b *eventBroker) publish(name, status string) {
	evt := map[string]any{"service": name, "status": status}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
