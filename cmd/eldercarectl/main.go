// Command eldercarectl is the admin CLI: schema migration, demo data, load
// generation and offline risk classification.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/eldercare-platform/eldercare/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
