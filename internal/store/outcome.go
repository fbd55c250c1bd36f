package store

// Outcome is the business result of a mutating store operation.
// Duplicate and NotFound are expected results, not errors.
type Outcome int

const (
	// Added means the location was not present and has been stored.
	Added Outcome = iota + 1
	// Duplicate means an identical location is already stored; nothing was written.
	Duplicate
	// Removed means the location was present and has been deleted.
	Removed
	// NotFound means no identical location was stored; nothing was written.
	NotFound
)

func (o Outcome) String() string {
	switch o {
	case Added:
		return "added"
	case Duplicate:
		return "duplicate"
	case Removed:
		return "removed"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
