package containers

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
)

// MakeFileID derives the normalized identifier for a file name: the base
// name without its extension, case-folded so ids compare equal across
// differently-cased sources.
func MakeFileID(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if ext := filepath.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return cases.Fold().String(base)
}

// FITSFilter admits FITS files by extension.
func FITSFilter(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".fits", ".fit":
		return true
	}
	return false
}
