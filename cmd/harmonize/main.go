// Package main provides the CLI entrypoint for harmonize.
//
// harmonize maps the free-text entity names of a dataset onto the
// canonical names of an entity registry:
//   - Exact alias hits are mapped automatically
//   - Other names get ranked suggestions, resolved by an operator or by
//     an automatic threshold policy
//   - Mappings are written as JSON and optionally recorded in SQLite
//   - Resolved names can be learned back into the registry as aliases
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
