// Package embedded registers all built-in format handlers with the
// annotation format registry. Importing this package (typically blank) is
// enough to make every handler available to annotation.FromFile.
package embedded

import (
	// Format handlers register themselves via init().
	_ "github.com/medtext/annotate/internal/formats/ann"
	_ "github.com/medtext/annotate/internal/formats/inline"
)
