// Command linkstash saves, tags and browses links from the terminal and
// processes links shared into its inbox.
package main

import (
	"context"
	"fmt"
	"os"

	domainerrors "github.com/linkstash/linkstash/internal/errors"
)

func main() {
	if err := execute(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", domainerrors.Message(err))
		os.Exit(1)
	}
}
