// Package compare implements set-algebraic and statistical comparisons
// between two annotation models over the same document: difference,
// intersection, ambiguity detection, confusion matrices, and descriptive
// counts. All operations are pure functions of their input models.
//
// Entity matching uses the four-field identity (label, start, end, text)
// except where noted; confusion matrices match spans by overlap, defined as
// a non-empty intersection of half-open [start, end) ranges.
//
// Comparing models parsed from unrelated documents is permitted and raises
// no error; callers wanting strictness use CheckCompatible or the
// WithCompatibilityCheck option on Compare.
package compare

import (
	"github.com/medtext/annotate/core/annotation"
	"github.com/medtext/annotate/core/errors"
	"github.com/medtext/annotate/internal/logging"
)

// EntitySet is a set of entities keyed on their structural identity.
type EntitySet map[annotation.Entity]bool

// NewEntitySet builds a set from the entities of a model.
func NewEntitySet(entities []annotation.Entity) EntitySet {
	set := make(EntitySet, len(entities))
	for _, e := range entities {
		set[e] = true
	}
	return set
}

// Contains reports set membership.
func (s EntitySet) Contains(e annotation.Entity) bool {
	return s[e]
}

// Difference returns the entities present in a with no identical match in
// b. The result is empty iff a's entity set is a subset of b's; order
// follows a's insertion order.
func Difference(a, b *annotation.Annotations) []annotation.Entity {
	inB := NewEntitySet(b.Entities())

	result := make([]annotation.Entity, 0)
	for _, e := range a.Entities() {
		if !inB.Contains(e) {
			result = append(result, e)
		}
	}

	logging.CompareEvent("difference", a.Len(), b.Len(), len(result))
	return result
}

// Intersection returns the set of entities present in both a and b under
// identity equality.
func Intersection(a, b *annotation.Annotations) EntitySet {
	inB := NewEntitySet(b.Entities())

	result := make(EntitySet)
	for _, e := range a.Entities() {
		if inB.Contains(e) {
			result[e] = true
		}
	}

	logging.CompareEvent("intersection", a.Len(), b.Len(), len(result))
	return result
}

// Ambiguity returns the entities in a that share an identical span with
// some entity in b but differ in label: the same-text-region label
// disagreements, distinct from pure additions or removals. Order follows
// a's insertion order.
func Ambiguity(a, b *annotation.Annotations) []annotation.Entity {
	type span struct{ start, end int }
	labelsAt := make(map[span]map[string]bool)
	for _, e := range b.Entities() {
		key := span{e.Start, e.End}
		if labelsAt[key] == nil {
			labelsAt[key] = make(map[string]bool)
		}
		labelsAt[key][e.Label] = true
	}

	result := make([]annotation.Entity, 0)
	for _, e := range a.Entities() {
		labels := labelsAt[span{e.Start, e.End}]
		if len(labels) == 0 {
			continue
		}
		for label := range labels {
			if label != e.Label {
				result = append(result, e)
				break
			}
		}
	}

	logging.CompareEvent("ambiguity", a.Len(), b.Len(), len(result))
	return result
}

// ConfusionMatrix returns a len(labels) x len(labels) matrix where cell
// (i, j) counts entities labeled labels[i] in a whose span overlaps an
// entity labeled labels[j] in b. Overlap is a non-empty intersection of the
// half-open offset ranges. Labels absent from either model leave their rows
// and columns zero-filled.
func ConfusionMatrix(a, b *annotation.Annotations, labels []string) [][]int {
	index := make(map[string]int, len(labels))
	for i, label := range labels {
		index[label] = i
	}

	matrix := make([][]int, len(labels))
	for i := range matrix {
		matrix[i] = make([]int, len(labels))
	}

	bEntities := b.Entities()
	for _, e := range a.Entities() {
		row, ok := index[e.Label]
		if !ok {
			continue
		}
		for _, f := range bEntities {
			col, ok := index[f.Label]
			if !ok {
				continue
			}
			if e.Overlaps(f) {
				matrix[row][col]++
			}
		}
	}

	return matrix
}

// Counts returns the number of entities bearing each label in a.
func Counts(a *annotation.Annotations) map[string]int {
	counts := make(map[string]int)
	for _, e := range a.Entities() {
		counts[e.Label]++
	}
	return counts
}

// CheckCompatible returns a validation error when both models carry a
// source text and their fingerprints differ. Models without a bound source
// text are never rejected.
func CheckCompatible(a, b *annotation.Annotations) error {
	fpA, fpB := a.SourceFingerprint(), b.SourceFingerprint()
	if fpA == "" || fpB == "" {
		return nil
	}
	if fpA != fpB {
		return errors.NewValidation("source_text", "models were built from different source documents")
	}
	return nil
}
