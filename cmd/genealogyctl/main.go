// Command genealogyctl operates on a genealogy store from the command line:
// record CRUD, queries, history and rollback, pedigree and browse reads, and
// media payloads. Output is JSON or YAML.
package main

import (
	"fmt"
	"os"
)

var exitFunc = os.Exit

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		exitFunc(exitCode(err))
	}
}
