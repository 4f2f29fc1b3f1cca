// The main package for the dashboard executable.
package main

import (
	"github.com/JakeFAU/lighthouse-dashboard/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
