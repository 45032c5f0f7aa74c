// The main package for the crawl-worker executable.
package main

import (
	"github.com/kbsearch/crawl-worker/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
