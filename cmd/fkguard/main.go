// Command fkguard runs SQL statements through the foreign-key guard and
// explains which key a rejected statement broke.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "fkguard: %v\n", err)
		}
		os.Exit(1)
	}
}
