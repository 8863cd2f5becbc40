package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vulntor/forge/cmd/forge/commands"
)

// main runs the forge CLI. Exit codes:
//   - 0: success
//   - 1: general error
//   - 2: invalid usage, request, module, binding or target
//   - 4: module not found
//   - 5: toolchain failure
//   - 130: cancelled
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := commands.Execute(ctx, commands.NewCommand())
	stop()
	os.Exit(code)
}
