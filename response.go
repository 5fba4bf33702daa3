package announce

import "strings"

// ResponsePacket carries the four structured response fields combined into a
// single announcement by a ResponseCollector.
type ResponsePacket struct {
	Name    string
	Object  string
	Context string
	Hint    string

	// IgnoreProperties combines every populated field regardless of the
	// collector's enable properties.
	IgnoreProperties bool
}

func (*ResponsePacket) alertable() {}

// Response field bits, used to key the pattern table.
const (
	fieldName = 1 << iota
	fieldObject
	fieldContext
	fieldHint
)

// responsePatterns maps the set of included fields to a combination
// template. Fields substitute positionally in name/object/context/hint
// order; combinations without an entry fall back to comma joining.
var responsePatterns = map[int]string{
	fieldName | fieldObject:                          "%s, %s",
	fieldName | fieldObject | fieldContext:           "%s, %s, %s",
	fieldName | fieldObject | fieldContext | fieldHint: "%s, %s, %s %s",
	fieldObject | fieldHint:                          "%s %s",
}

// ResponseCollector combines response packets into announced text. The four
// enable properties gate field inclusion unless a packet opts out via
// IgnoreProperties.
type ResponseCollector struct {
	NameEnabled    *Property[bool]
	ObjectEnabled  *Property[bool]
	ContextEnabled *Property[bool]
	HintEnabled    *Property[bool]
}

// NewResponseCollector creates a collector with every response field enabled.
func NewResponseCollector() *ResponseCollector {
	return &ResponseCollector{
		NameEnabled:    NewProperty(true),
		ObjectEnabled:  NewProperty(true),
		ContextEnabled: NewProperty(true),
		HintEnabled:    NewProperty(true),
	}
}

// CollectResponses combines the packet's populated fields, honoring the
// collector's enable properties unless the packet ignores them.
func (rc *ResponseCollector) CollectResponses(p *ResponsePacket) string {
	return rc.collect(p, p.IgnoreProperties)
}

func (rc *ResponseCollector) collect(p *ResponsePacket, ignoreProperties bool) string {
	if p == nil {
		return ""
	}
	type field struct {
		bit     int
		value   string
		enabled *Property[bool]
	}
	fields := []field{
		{fieldName, p.Name, rc.NameEnabled},
		{fieldObject, p.Object, rc.ObjectEnabled},
		{fieldContext, p.Context, rc.ContextEnabled},
		{fieldHint, p.Hint, rc.HintEnabled},
	}

	mask := 0
	var values []string
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if !ignoreProperties && f.enabled != nil && !f.enabled.Get() {
			continue
		}
		mask |= f.bit
		values = append(values, f.value)
	}
	if len(values) == 0 {
		return ""
	}
	if pattern, ok := responsePatterns[mask]; ok {
		return sprintfValues(pattern, values)
	}
	return strings.Join(values, ", ")
}

// sprintfValues substitutes values into a %s-only pattern without pulling in
// fmt's reflection for the hot path.
func sprintfValues(pattern string, values []string) string {
	var b strings.Builder
	rest := pattern
	for _, v := range values {
		i := strings.Index(rest, "%s")
		if i < 0 {
			break
		}
		b.WriteString(rest[:i])
		b.WriteString(v)
		rest = rest[i+2:]
	}
	b.WriteString(rest)
	return b.String()
}
