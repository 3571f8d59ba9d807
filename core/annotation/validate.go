package annotation

import (
	"fmt"

	"github.com/medtext/annotate/core/errors"
)

// Validate rechecks the model invariants and returns all violations.
// Construction enforces these incrementally; Validate exists for callers
// that assemble models over time and want a final consistency check.
//
// Checked invariants:
//   - every entity has a non-empty label and 0 <= Start < End
//   - where a source text is bound (and the model is strict), every
//     entity's text equals the source slice at its offsets
//   - every relation argument resolves to an entity in the arena
func (a *Annotations) Validate() []error {
	var errs []error

	for _, key := range a.order {
		e := a.entities[key]
		if err := a.checkEntity(e); err != nil {
			errs = append(errs, errors.Wrapf(err, "entity T%d", key))
		}
	}

	for _, r := range a.relations {
		if r.Label == "" {
			errs = append(errs, errors.NewValidation("relation", fmt.Sprintf("R%d has empty label", r.Key)))
		}
		if _, ok := a.entities[r.Arg1]; !ok {
			errs = append(errs, errors.NewValidation("relation", fmt.Sprintf("R%d references unknown entity T%d", r.Key, r.Arg1)))
		}
		if _, ok := a.entities[r.Arg2]; !ok {
			errs = append(errs, errors.NewValidation("relation", fmt.Sprintf("R%d references unknown entity T%d", r.Key, r.Arg2)))
		}
	}

	return errs
}
