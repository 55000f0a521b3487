// ABOUTME: Entry point for the Resonate capture recorder
// ABOUTME: Runs the command tree and exits with its status code
package main

import (
	"os"

	"github.com/Resonate-Protocol/resonate-capture/internal/app"
)

func main() {
	os.Exit(app.Execute())
}
