// Command gojni runs Java classes on the gojni virtual machine and
// generates the C side of their native methods.
package main

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/fang"
)

// Version is the release version, set with -ldflags.
var Version = "dev"

func main() {
	os.Exit(execute(context.Background(), os.Args[1:]))
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	err := fang.Execute(ctx, root,
		fang.WithVersion(Version),
		fang.WithNotifySignal(os.Interrupt),
	)
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}
