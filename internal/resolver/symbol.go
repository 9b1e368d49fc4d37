package resolver

import (
	"context"
	"errors"
	"time"

	"go.lsp.dev/protocol"
)

// SymbolClient queries an external symbol source (typically SourceKit-LSP)
// for workspace symbols by name. Implementations may block; the resolver
// bounds the wait itself.
type SymbolClient interface {
	Query(ctx context.Context, name string) ([]protocol.SymbolInformation, error)
}

// errSymbolTimeout marks an indeterminate lookup: the client did not answer
// in time, so the result must not be cached as a miss.
var errSymbolTimeout = errors.New("symbol query timed out")

// querySymbols runs a bounded workspace-symbol query and returns the file
// paths of class or struct declarations matching name exactly.
func querySymbols(ctx context.Context, client SymbolClient, name string, timeout time.Duration) ([]string, error) {
	if client == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type answer struct {
		symbols []protocol.SymbolInformation
		err     error
	}
	ch := make(chan answer, 1)
	go func() {
		symbols, err := client.Query(ctx, name)
		ch <- answer{symbols, err}
	}()

	select {
	case <-ctx.Done():
		return nil, errSymbolTimeout
	case a := <-ch:
		if a.err != nil {
			if errors.Is(a.err, context.DeadlineExceeded) {
				return nil, errSymbolTimeout
			}
			return nil, a.err
		}
		var paths []string
		for _, sym := range a.symbols {
			if sym.Name != name {
				continue
			}
			if sym.Kind != protocol.SymbolKindClass && sym.Kind != protocol.SymbolKindStruct {
				continue
			}
			paths = append(paths, sym.Location.URI.Filename())
		}
		return paths, nil
	}
}
