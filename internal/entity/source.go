package entity

// Kind identifies how a source is retrieved.
type Kind int

const (
	// KindDirect sources expose a JSON check endpoint.
	KindDirect Kind = iota + 1
	// KindRendered sources need a browser to render and interact with the page.
	KindRendered
)

func (k Kind) String() string {
	switch k {
	case KindDirect:
		return "direct"
	case KindRendered:
		return "rendered"
	default:
		return "unknown"
	}
}

// Source is one monitored appointment endpoint. It is created once at startup and never mutated.
type Source struct {
	ID      string // human readable id, e.g. the postal code
	Kind    Kind
	Locator string
}
