// SPDX-License-Identifier: AGPL-3.0-only

// Command simple-agent runs the LLM agent workflows from the command line,
// serves them over MCP and runs them on a cron schedule.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := Execute(ctx, newApp(os.Stdout, os.Stderr), os.Args[1:])
	stop()
	os.Exit(code)
}
