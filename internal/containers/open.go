package containers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"siphon/internal/ledger"
	"siphon/internal/services"
)

// Deps carries the collaborators a remote container variant may need.
// Local variants ignore it.
type Deps struct {
	Store  Fetcher
	Depot  DepotLister
	Ledger *ledger.Ledger
}

// Open classifies source by shape and constructs the matching container
// variant: an existing directory, a tar archive by extension, a .idx index
// list, or a depot: namespace URI. Classification happens exactly once;
// every later call dispatches through the Container interface.
func Open(ctx context.Context, source, outDir string, deps Deps, filter Filter) (Container, error) {
	if strings.HasPrefix(source, depotScheme) {
		return NewNamespace(ctx, source, outDir, deps.Depot, deps.Ledger, filter)
	}
	info, statErr := os.Stat(source)
	if statErr == nil && info.IsDir() {
		return NewDirectory(source, filter)
	}
	switch {
	case IsTarSource(source):
		return NewTarfile(source, outDir, filter)
	case strings.EqualFold(filepath.Ext(source), ".idx"):
		return NewIndexlist(ctx, source, outDir, deps.Store, filter)
	}
	if statErr != nil {
		return nil, services.Wrap(services.ErrValidation, "containers", "open",
			fmt.Sprintf("source %s does not exist", source), statErr)
	}
	return nil, services.Wrap(services.ErrValidation, "containers", "open",
		fmt.Sprintf("cannot classify source %s", source), nil)
}
