// Command partsctl manages the auto parts inventory through the API.
package main

import (
	"fmt"
	"os"

	"autoparts/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
