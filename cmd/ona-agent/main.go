// Command ona-agent runs one Observe/Negotiate/Attest loop against a
// running HyprCAT gateway.
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
