// Command stratum is the CLI entry point.
package main

import "github.com/stratum-data/stratum/internal/cli"

func main() {
	cli.Execute()
}
