package bundle

import (
	"archive/tar"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/medtext/annotate/core/annotation"
	"github.com/medtext/annotate/core/errors"
	"github.com/medtext/annotate/internal/logging"
)

// Document is one annotated document extracted from a bundle: the raw
// annotation entry plus, when present, its paired source-text entry.
// Entries pair by basename: record-7.ann / record-7.con pairs with
// record-7.txt.
type Document struct {
	// Name is the shared basename of the pair, without extension.
	Name string

	// Format is the annotation format tag ("ann" or "con").
	Format string

	// Annotation is the raw annotation file content.
	Annotation []byte

	// Source is the raw source text, valid only if HasSource is true.
	Source []byte

	// HasSource reports whether a paired .txt entry was found.
	HasSource bool
}

// Load reads all annotation/source pairs out of a bundle, sorted by name.
func Load(bundlePath string) ([]Document, error) {
	type pair struct {
		format     string
		annotation []byte
		source     []byte
		hasSource  bool
	}
	pairs := make(map[string]*pair)

	get := func(name string) *pair {
		if pairs[name] == nil {
			pairs[name] = &pair{}
		}
		return pairs[name]
	}

	err := IterateBundle(bundlePath, func(header *tar.Header, content io.Reader) (bool, error) {
		if header.Typeflag != tar.TypeReg {
			return false, nil
		}
		base := path.Base(header.Name)
		ext := path.Ext(base)
		name := strings.TrimSuffix(base, ext)

		switch ext {
		case ".ann", ".con":
			data, err := io.ReadAll(content)
			if err != nil {
				return false, errors.NewIO("read", header.Name, err)
			}
			p := get(name)
			p.format = strings.TrimPrefix(ext, ".")
			p.annotation = data
		case ".txt":
			data, err := io.ReadAll(content)
			if err != nil {
				return false, errors.NewIO("read", header.Name, err)
			}
			p := get(name)
			p.source = data
			p.hasSource = true
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(pairs))
	for name, p := range pairs {
		if p.annotation != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	docs := make([]Document, 0, len(names))
	for _, name := range names {
		p := pairs[name]
		docs = append(docs, Document{
			Name:       name,
			Format:     p.format,
			Annotation: p.annotation,
			Source:     p.source,
			HasSource:  p.hasSource,
		})
	}

	logging.Info("bundle_loaded", "path", bundlePath, "documents", len(docs))
	return docs, nil
}

// Models parses every document in a bundle into an annotation model, keyed
// by document name. Documents in the con format must carry a paired source
// text; its absence is a not-found error naming the document.
func Models(bundlePath string, opts ...annotation.Option) (map[string]*annotation.Annotations, error) {
	docs, err := Load(bundlePath)
	if err != nil {
		return nil, err
	}

	// The only construction option that affects parsing here is Permissive;
	// source text comes from the bundle pairs themselves.
	permissive := annotation.NewModel(opts...).IsPermissive()

	models := make(map[string]*annotation.Annotations, len(docs))
	for _, doc := range docs {
		h, err := annotation.GetHandler(doc.Format)
		if err != nil {
			return nil, err
		}
		if h.RequiresSource() && !doc.HasSource {
			return nil, errors.NewNotFound("source text", doc.Name)
		}
		a, err := h.Parse(annotation.ParseInput{
			Data:       doc.Annotation,
			Path:       doc.Name,
			SourceText: string(doc.Source),
			HasSource:  doc.HasSource,
			Permissive: permissive,
		})
		if err != nil {
			return nil, err
		}
		models[doc.Name] = a
	}
	return models, nil
}
