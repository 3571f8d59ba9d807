package annotation

import "fmt"

// Entity is a single labeled character span. It is a plain value type:
// two entities are equal iff Label, Start, End, and Text all match, so
// Entity can be used directly as a map key for set algebra. Offsets are
// half-open [Start, End) into the source text.
type Entity struct {
	// Label is the entity category (e.g. "Drug", "Dose").
	Label string `json:"label"`

	// Start is the character offset where the span begins.
	Start int `json:"start"`

	// End is the character offset just past the span.
	End int `json:"end"`

	// Text is the exact substring of the source text at [Start, End).
	Text string `json:"text"`
}

// SameSpan returns true if both entities cover exactly the same offsets.
func (e Entity) SameSpan(other Entity) bool {
	return e.Start == other.Start && e.End == other.End
}

// Overlaps returns true if the two half-open offset ranges have a non-empty
// intersection. This is the overlap predicate used by confusion matrices.
func (e Entity) Overlaps(other Entity) bool {
	return max(e.Start, other.Start) < min(e.End, other.End)
}

// String returns a standoff-style rendering of the entity.
func (e Entity) String() string {
	return fmt.Sprintf("%s %d %d %q", e.Label, e.Start, e.End, e.Text)
}

// Relation is a labeled directed link between two entities, referenced by
// their arena keys. Relations are carried opaquely through parse and
// serialization; the comparison algorithms operate on entities only.
type Relation struct {
	// Key is the relation's surrogate key within its model (serialized as R<Key>).
	Key int `json:"key"`

	// Label is the relation type (e.g. "Dose-Drug").
	Label string `json:"label"`

	// Arg1 is the arena key of the first entity argument.
	Arg1 int `json:"arg1"`

	// Arg2 is the arena key of the second entity argument.
	Arg2 int `json:"arg2"`
}

// String returns a standoff-style rendering of the relation.
func (r Relation) String() string {
	return fmt.Sprintf("R%d %s Arg1:T%d Arg2:T%d", r.Key, r.Label, r.Arg1, r.Arg2)
}
