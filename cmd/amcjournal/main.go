// Command amcjournal runs the AMC state journal server.
package main

import (
	"context"
	"fmt"
	"os"

	"amcjournal/cmd/amcjournal/cli"
)

func main() {
	if err := cli.Root().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
