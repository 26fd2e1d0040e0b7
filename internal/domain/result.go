package domain

// Result reports what a dispatched action did to the state.
type Result int

const (
	// Updated means the action was applied and the state persisted.
	Updated Result = iota + 1
	// NotFound means the action referenced nothing that exists; the state is untouched.
	NotFound
)

func (r Result) String() string {
	switch r {
	case Updated:
		return "updated"
	case NotFound:
		return "not found"
	default:
		return "unknown"
	}
}
