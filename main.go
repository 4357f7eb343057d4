// The main package for the tgexport executable.
package main

import (
	"github.com/avdeyk/tgexport/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
