package annotation

import (
	"os"

	"github.com/medtext/annotate/core/errors"
)

// ToAnn serializes the model into the standoff format and writes it to
// path, creating or overwriting the file. Output is deterministic for a
// fixed model: entities in insertion order under their arena keys, then
// relations. I/O failures surface the underlying error wrapped with
// operation context only.
func (a *Annotations) ToAnn(path string) error {
	data, err := a.MarshalAnn()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.NewIO("write", path, err)
	}
	return nil
}

// MarshalAnn serializes the model into the standoff format.
func (a *Annotations) MarshalAnn() ([]byte, error) {
	h, err := GetHandler(FormatAnn)
	if err != nil {
		return nil, err
	}
	return h.Emit(a)
}
