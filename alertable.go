package announce

import "strconv"

// Alertable is anything the queue knows how to turn into announced text:
// nil, Text, Number, a Func producing another Alertable, a ResponsePacket
// resolved at announce time, or a nested *Utterance.
//
// The union is sealed; ResolveText performs the exhaustive match.
type Alertable interface {
	alertable()
}

// Text is a literal alert string.
type Text string

func (Text) alertable() {}

// Number is a numeric alert, formatted without a trailing zero fraction.
type Number float64

func (Number) alertable() {}

// Func is an alert producer, called at announce time. Its result is
// resolved recursively.
type Func func() Alertable

func (Func) alertable() {}

// ResolveText resolves an Alertable to its final announced text.
//
// Response packets are combined by the collector; when respectProperties is
// false the packet is combined with every response field enabled regardless
// of collector state. A nil collector combines packets with all fields
// enabled. Returns "" for nil alerts and nil-returning producers.
func ResolveText(a Alertable, collector *ResponseCollector, respectProperties bool) string {
	switch alert := a.(type) {
	case nil:
		return ""
	case Text:
		return string(alert)
	case Number:
		return strconv.FormatFloat(float64(alert), 'f', -1, 64)
	case Func:
		if alert == nil {
			return ""
		}
		return ResolveText(alert(), collector, respectProperties)
	case *ResponsePacket:
		if alert == nil {
			return ""
		}
		if collector == nil {
			collector = NewResponseCollector()
		}
		if respectProperties {
			return collector.CollectResponses(alert)
		}
		return collector.collect(alert, true)
	case *Utterance:
		if alert == nil {
			return ""
		}
		return ResolveText(alert.Alert(), collector, respectProperties)
	default:
		// The union is sealed; an unknown shape is a programming error.
		// Degrade to silence rather than panicking across the API boundary.
		return ""
	}
}
