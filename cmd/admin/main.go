// Command admin provides database maintenance utilities for Gabble:
// migrations, demo data and account roles.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(openFromConfig).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
