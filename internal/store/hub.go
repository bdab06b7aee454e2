package store

import (
	"context"
	"sync"

	"gitlab.com/yelinaung/trackify/internal/logger"
)

type topic struct {
	collection string
	owner      string
}

type subscription struct {
	topic  topic
	signal chan struct{}
	done   chan struct{}
	stop   context.CancelFunc
	once   sync.Once
}

// hub fans change signals out to subscriptions. Signals coalesce: a
// subscription that is busy delivering sees at most one pending change.
type hub struct {
	mu   sync.Mutex
	subs map[topic]map[*subscription]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[topic]map[*subscription]struct{})}
}

type loadFunc func(ctx context.Context) ([]Snapshot, error)

// subscribe registers the subscription before the first load so no change
// between the initial snapshot and the delivery loop is lost.
func (h *hub) subscribe(ctx context.Context, q Query, load loadFunc, onChange ChangeFunc) (CancelFunc, error) {
	ctx, stop := context.WithCancel(context.WithoutCancel(ctx))
	sub := &subscription{
		topic:  topic{collection: q.Collection, owner: q.Owner},
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
		stop:   stop,
	}
	h.add(sub)

	docs, err := load(ctx)
	if err != nil {
		h.remove(sub)
		stop()
		return nil, err
	}
	onChange(docs)

	go h.deliver(ctx, sub, load, onChange)

	return func() {
		sub.once.Do(func() {
			h.remove(sub)
			sub.stop()
		})
		<-sub.done
	}, nil
}

func (h *hub) deliver(ctx context.Context, sub *subscription, load loadFunc, onChange ChangeFunc) {
	defer close(sub.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.signal:
		}

		docs, err := load(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Log.Warn().Err(err).
				Str("collection", sub.topic.collection).
				Str("owner_hash", logger.HashUserID(sub.topic.owner)).
				Msg("Failed to reload subscription snapshot")
			continue
		}
		if ctx.Err() != nil {
			return
		}
		onChange(docs)
	}
}

func (h *hub) add(sub *subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[sub.topic]
	if !ok {
		set = make(map[*subscription]struct{})
		h.subs[sub.topic] = set
	}
	set[sub] = struct{}{}
}

func (h *hub) remove(sub *subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[sub.topic]
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.topic)
	}
}

// notify signals every subscription on the topic without blocking.
func (h *hub) notify(t topic) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[t] {
		select {
		case sub.signal <- struct{}{}:
		default:
		}
	}
}

// notifyAll signals every subscription; used after a listener reconnect.
func (h *hub) notifyAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.subs {
		for sub := range set {
			select {
			case sub.signal <- struct{}{}:
			default:
			}
		}
	}
}

func (h *hub) active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, set := range h.subs {
		n += len(set)
	}
	return n
}
