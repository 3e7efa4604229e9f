// Command metapath evaluates Metapath expressions against XML, JSON and
// YAML documents.
//
// Usage:
//
//	metapath eval -e "//control/@id" -c catalog.xml
//	metapath print-tree -e "count(//control) gt 2"
//	metapath list-functions --prefix fn
package main

import (
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		printError(cmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}
