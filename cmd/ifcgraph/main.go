package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx)
	stop()
	os.Exit(code)
}
