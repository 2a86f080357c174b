// Command recordsql finds, prints and deletes rows through records models.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/yriy-kuskov/cakereact-core/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
