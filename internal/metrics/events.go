package metrics

import (
	"sync"
	"time"

	"swapdesk/logger"
)

// Kind names one swapdesk measurement. Each kind has a fixed component,
// metric name, type and unit.
type Kind string

const (
	KindPriceFetch       Kind = "price_fetch"
	KindPricedAssets     Kind = "priced_assets"
	KindSwapTransition   Kind = "swap_transition"
	KindWebsocketClients Kind = "websocket_clients"
)

type kindSpec struct {
	component string
	name      string
	typ       string
	unit      string
}

var kinds = map[Kind]kindSpec{
	KindPriceFetch:       {component: "quotes", name: "price_fetch_duration_ms", typ: "gauge", unit: "milliseconds"},
	KindPricedAssets:     {component: "quotes", name: "priced_assets", typ: "gauge", unit: "count"},
	KindSwapTransition:   {component: "swap_session", name: "swap_transitions", typ: "counter", unit: "count"},
	KindWebsocketClients: {component: "websocket_hub", name: "websocket_clients", typ: "gauge", unit: "count"},
}

// Event is one recorded measurement as served on /api/metrics and sent to
// CloudWatch. Labels become CloudWatch dimensions.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Kind      Kind              `json:"kind"`
	Component string            `json:"component"`
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	Unit      string            `json:"unit"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
}

type subscriber struct {
	fn    func(Event)
	kinds map[Kind]struct{}
}

var (
	subscribersMu sync.RWMutex
	subscribers   = make(map[uint64]subscriber)
	nextID        uint64
)

// Subscribe delivers events of the given kinds to fn, or every event when no
// kind is given. fn runs on the recording goroutine and must not block.
// The returned func removes the subscription.
func Subscribe(fn func(Event), only ...Kind) func() {
	if fn == nil {
		return func() {}
	}
	sub := subscriber{fn: fn}
	if len(only) > 0 {
		sub.kinds = make(map[Kind]struct{}, len(only))
		for _, k := range only {
			sub.kinds[k] = struct{}{}
		}
	}

	subscribersMu.Lock()
	nextID++
	id := nextID
	subscribers[id] = sub
	subscribersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			subscribersMu.Lock()
			delete(subscribers, id)
			subscribersMu.Unlock()
		})
	}
}

// record builds the event for kind, logs it at debug level, hands it to
// subscribers and publishes it to CloudWatch. Unknown kinds are dropped.
func record(kind Kind, value float64, labels map[string]string) (Event, bool) {
	spec, ok := kinds[kind]
	if !ok {
		return Event{}, false
	}

	ev := Event{
		Timestamp: timeNow(),
		Kind:      kind,
		Component: spec.component,
		Name:      spec.name,
		Type:      spec.typ,
		Unit:      spec.unit,
		Value:     value,
	}
	if len(labels) > 0 {
		ev.Labels = make(map[string]string, len(labels))
		for k, v := range labels {
			ev.Labels[k] = v
		}
	}

	fields := logger.Fields{"metric": ev.Name, "metric_type": ev.Type, "value": ev.Value, "unit": ev.Unit}
	for k, v := range ev.Labels {
		fields[k] = v
	}
	logger.GetLogger().WithComponent(ev.Component).WithFields(fields).Debug("metric")

	dispatch(ev)
	publishEvent(ev)
	return ev, true
}

func dispatch(ev Event) {
	subscribersMu.RLock()
	fns := make([]func(Event), 0, len(subscribers))
	for _, sub := range subscribers {
		if sub.kinds != nil {
			if _, ok := sub.kinds[ev.Kind]; !ok {
				continue
			}
		}
		fns = append(fns, sub.fn)
	}
	subscribersMu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
