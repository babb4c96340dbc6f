package main

import (
	"strings"
	"testing"
)

func TestCheckCommandAccumulatesDirectory(t *testing.T) {
	configPath, _ := writeCLIConfig(t)
	source := writeObservationDir(t)

	out, err := runCLI(t, "check", "--config", configPath, source)
	if err != nil {
		t.Fatalf("check: %v\noutput:\n%s", err, out)
	}
	if !strings.Contains(out, "Files: 2 confirmed, 0 preview candidates") {
		t.Fatalf("expected both FITS files confirmed, got:\n%s", out)
	}
	if !strings.Contains(out, "Ledger: 0 errors, 0 warnings") {
		t.Fatalf("expected a clean ledger, got:\n%s", out)
	}
}

func TestCheckCommandCarriesAncillaryFilesWithoutFailing(t *testing.T) {
	configPath, _ := writeCLIConfig(t)
	source := writeObservationDir(t)

	// --filter none admits notes.txt; its unreadable header degrades to a
	// recorded error and a preview candidate, never a run failure in check
	// mode.
	out, err := runCLI(t, "check", "--config", configPath, "--filter", "none", source)
	if err != nil {
		t.Fatalf("check --filter none: %v\noutput:\n%s", err, out)
	}
	if !strings.Contains(out, "1 preview candidates") {
		t.Fatalf("expected the text file as a preview candidate, got:\n%s", out)
	}
	if strings.Contains(out, "Ledger: 0 errors") {
		t.Fatalf("expected a recorded ledger error for the text file, got:\n%s", out)
	}
}

func TestCheckCommandRejectsUnknownFilter(t *testing.T) {
	configPath, _ := writeCLIConfig(t)
	source := writeObservationDir(t)

	if _, err := runCLI(t, "check", "--config", configPath, "--filter", "bogus", source); err == nil {
		t.Fatal("unknown filter value should fail")
	}
}

func TestCheckCommandFailsOnMissingSource(t *testing.T) {
	configPath, base := writeCLIConfig(t)

	if _, err := runCLI(t, "check", "--config", configPath, base+"/no-such-source"); err == nil {
		t.Fatal("missing source should fail container construction")
	}
}

func TestStoreCommandRequiresStoreURL(t *testing.T) {
	configPath, _ := writeCLIConfig(t)
	source := writeObservationDir(t)

	if _, err := runCLI(t, "store", "--config", configPath, source); err == nil {
		t.Fatal("store mode without store.url should fail")
	}
}

func TestScanCommandListsFileIDs(t *testing.T) {
	configPath, _ := writeCLIConfig(t)
	source := writeObservationDir(t)

	out, err := runCLI(t, "scan", "--config", configPath, source)
	if err != nil {
		t.Fatalf("scan: %v\noutput:\n%s", err, out)
	}
	for _, id := range []string{"a", "b"} {
		if !strings.Contains(out, id+"\n") {
			t.Fatalf("expected file id %q in listing, got:\n%s", id, out)
		}
	}
	if strings.Contains(out, "notes") {
		t.Fatalf("filtered file should not be listed, got:\n%s", out)
	}
	if !strings.Contains(out, "2 entries") {
		t.Fatalf("expected entry count, got:\n%s", out)
	}
}
