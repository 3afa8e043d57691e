// Command aotc is the ahead-of-time compiler's CLI entry point: parse
// flags, hand them to internal/driver, and exit with the status it
// reports.
package main

import (
	"fmt"
	"os"

	"aotc/internal/driver"
	"aotc/internal/options"
)

func main() {
	opt, err := options.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "aotc: %v\n", err)
		os.Exit(1)
	}
	os.Exit(driver.Run(opt, os.Stderr))
}
