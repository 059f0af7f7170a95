// Command warikan is the command-line client for a warikan API.
package main

import (
	"os"

	"github.com/mmynk/warikan/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
