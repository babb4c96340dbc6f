package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// HeaderCard is one keyword for WriteFITS. Value is written as a quoted
// character string unless Raw is set, in which case it is written verbatim
// (logicals, integers, floats).
type HeaderCard struct {
	Key   string
	Value string
	Raw   bool
}

const fitsBlockSize = 2880

// WriteFITS writes a header-only FITS file whose primary header carries the
// given cards after the mandatory SIMPLE/BITPIX/NAXIS trio.
func WriteFITS(t testing.TB, path string, cards ...HeaderCard) {
	t.Helper()

	var b strings.Builder
	emit := func(key, value string) {
		line := fmt.Sprintf("%-8s= %s", key, value)
		if len(line) > 80 {
			t.Fatalf("fits card %s is %d bytes, max 80", key, len(line))
		}
		b.WriteString(line)
		b.WriteString(strings.Repeat(" ", 80-len(line)))
	}

	emit("SIMPLE", fmt.Sprintf("%20s", "T"))
	emit("BITPIX", fmt.Sprintf("%20s", "8"))
	emit("NAXIS", fmt.Sprintf("%20s", "0"))
	for _, card := range cards {
		if card.Raw {
			emit(card.Key, fmt.Sprintf("%20s", card.Value))
			continue
		}
		quoted := strings.ReplaceAll(card.Value, "'", "''")
		emit(card.Key, fmt.Sprintf("'%-8s'", quoted))
	}
	b.WriteString("END")
	b.WriteString(strings.Repeat(" ", 77))
	for b.Len()%fitsBlockSize != 0 {
		b.WriteString(strings.Repeat(" ", 80))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
