package pubsub

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"archie-core-attribution-layer/internal/domain"

	"github.com/rs/zerolog"
)

// subscriberBuffer is how many undelivered events a subscriber may hold
const subscriberBuffer = 10

// InstallationEventFilter selects the events a subscriber receives.
// Empty fields match everything.
type InstallationEventFilter struct {
	StoreID  string
	Statuses []domain.InstallationStatus
}

func (f *InstallationEventFilter) matches(event *domain.InstallationEvent) bool {
	if f == nil {
		return true
	}
	if f.StoreID != "" && event.Installation.StoreID != f.StoreID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if event.Installation.Status == s {
			return true
		}
	}
	return false
}

// Subscription receives matching events on Events until it is removed, at
// which point Events is closed
type Subscription struct {
	ID     string
	Filter *InstallationEventFilter
	Events <-chan *domain.InstallationEvent

	ch   chan *domain.InstallationEvent
	stop context.CancelFunc
}

// InstallationPubSub fans terminal installation statuses out to subscribers.
// Publishing never blocks the installer: a full subscriber loses the event.
type InstallationPubSub struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	seq    atomic.Int64
	logger zerolog.Logger
}

// NewInstallationPubSub creates an installation event hub with no subscribers
func NewInstallationPubSub(logger zerolog.Logger) *InstallationPubSub {
	return &InstallationPubSub{
		subs:   make(map[string]*Subscription),
		logger: logger,
	}
}

// Subscribe registers a subscriber that is removed when ctx is done
func (ps *InstallationPubSub) Subscribe(ctx context.Context, filter *InstallationEventFilter) *Subscription {
	subCtx, stop := context.WithCancel(ctx)
	ch := make(chan *domain.InstallationEvent, subscriberBuffer)
	sub := &Subscription{
		ID:     "sub-" + strconv.FormatInt(ps.seq.Add(1), 10),
		Filter: filter,
		Events: ch,
		ch:     ch,
		stop:   stop,
	}

	ps.mu.Lock()
	ps.subs[sub.ID] = sub
	ps.mu.Unlock()

	ps.logger.Debug().Str("subscriptionId", sub.ID).Interface("filter", filter).Msg("Installation subscriber added")

	go func() {
		<-subCtx.Done()
		ps.Unsubscribe(sub.ID)
	}()
	return sub
}

// Unsubscribe removes a subscriber and closes its Events. Unknown ids are ignored.
func (ps *InstallationPubSub) Unsubscribe(id string) {
	ps.mu.Lock()
	sub, ok := ps.subs[id]
	if ok {
		delete(ps.subs, id)
		close(sub.ch)
	}
	ps.mu.Unlock()

	if !ok {
		return
	}
	sub.stop()
	ps.logger.Debug().Str("subscriptionId", id).Msg("Installation subscriber removed")
}

// Publish hands event to every matching subscriber
func (ps *InstallationPubSub) Publish(event *domain.InstallationEvent) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for id, sub := range ps.subs {
		if !sub.Filter.matches(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			ps.logger.Warn().
				Str("subscriptionId", id).
				Str("installationId", event.Installation.ID).
				Msg("Installation subscriber is full, dropping event")
		}
	}
}

// Subscribers returns the number of registered subscribers
func (ps *InstallationPubSub) Subscribers() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subs)
}
