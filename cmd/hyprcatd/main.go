// Command hyprcatd runs the HyprCAT gateway: the HTTP surface over the
// resource store, catalog, identity, wallet, governance, federation,
// and provenance services.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
