package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Execute runs root with args and returns the process exit code. The
// command context is cancelled on SIGINT or SIGTERM, so long generation
// calls stop and jeeinsightd shuts down gracefully.
func Execute(root *cobra.Command, args []string, stdout, stderr io.Writer) int {
	if handled, err := HandleHelpJSON(stdout, root, args); handled {
		if err != nil {
			fmt.Fprintln(stderr, "Error:", err)
			return 1
		}
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}
