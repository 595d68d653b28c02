// Command pagekeeper serves an editable offsite page and keeps its edits
// across reloads.
//
// Usage:
//
//	pagekeeper serve --config pagekeeper.yaml     # HTTP surface for the UI
//	pagekeeper mcp --config pagekeeper.yaml       # MCP tools over stdio
//	pagekeeper snapshot page.html                 # print the snapshot of a page
//	pagekeeper restore page.html --config ...     # print the page with stored edits applied
//	pagekeeper diag --config pagekeeper.yaml      # verify the save path, non-zero on failure
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
