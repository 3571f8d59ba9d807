// Package bundle reads annotation corpora packaged as compressed tar
// archives: paired annotation and source-text entries, one pair per
// document. It supports .tar.gz and .tar.xz bundles.
package bundle

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/xz"
)

// Visitor is called once per bundle entry. Returning stop ends iteration
// early; returning an error aborts it.
type Visitor func(header *tar.Header, content io.Reader) (stop bool, err error)

// IterateBundle opens the bundle at path and walks its tar entries in
// order, calling the visitor for each. Compression is chosen by file
// extension.
func IterateBundle(path string, visitor Visitor) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open bundle: %w", err)
	}
	defer f.Close()

	var stream io.Reader
	switch {
	case strings.HasSuffix(path, ".tar.xz"):
		stream, err = xz.NewReader(f)
		if err != nil {
			return fmt.Errorf("xz reader: %w", err)
		}
	case strings.HasSuffix(path, ".tar.gz"):
		gzr, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("gzip reader: %w", err)
		}
		defer gzr.Close()
		stream = gzr
	default:
		return fmt.Errorf("unsupported bundle format: %s", path)
	}

	tr := tar.NewReader(stream)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}

		stop, err := visitor(header, tr)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}
