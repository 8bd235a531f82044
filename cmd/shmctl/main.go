// Command shmctl is a small operator tool for creating and inspecting the
// named segments this module's packages read and write: the surrounding
// orchestration that picks segment names, separate from the core
// vector/list/counter packages themselves.
package main

import (
	"os"
)

func main() {
	os.Exit(Run(os.Stdout, os.Stderr, os.Args[1:]))
}
