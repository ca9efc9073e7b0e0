// Command depgraph generates a Graphviz DOT description of this module's
// internal package import graph.
//
// Grounded on misc/depgraph/main.go, which shelled out to `go mod graph`
// for a module-level dependency graph; retargeted to
// golang.org/x/tools/go/packages, already a dependency of the teacher's
// go.mod but never imported by any of its own code, for a finer
// package-level graph that skips std/third-party noise by default. Test
// packages are not loaded, so no _test package appears in the graph.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"golang.org/x/tools/go/packages"
)

func main() {
	includeExternal := flag.Bool("external", false, "include non-corekernel (stdlib and third-party) dependencies")
	pattern := flag.String("pattern", "./...", "package pattern to load, as passed to go list")
	flag.Parse()

	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports | packages.NeedDeps}
	pkgs, err := packages.Load(cfg, *pattern)
	if err != nil {
		fmt.Fprintf(os.Stderr, "depgraph: %v\n", err)
		os.Exit(1)
	}
	if packages.PrintErrors(pkgs) > 0 {
		os.Exit(1)
	}

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	w.WriteString("digraph deps {\n")
	seen := make(map[[2]string]bool)
	for _, p := range pkgs {
		for path, dep := range p.Imports {
			if !*includeExternal && !isInternal(path) {
				continue
			}
			edge := [2]string{p.PkgPath, path}
			if seen[edge] {
				continue
			}
			seen[edge] = true
			fmt.Fprintf(w, "    %q -> %q;\n", p.PkgPath, dep.PkgPath)
		}
	}
	w.WriteString("}\n")
}

// isInternal reports whether path belongs to this module rather than the
// standard library or a third-party module.
func isInternal(path string) bool {
	const modulePrefix = "corekernel/"
	return len(path) > len(modulePrefix) && path[:len(modulePrefix)] == modulePrefix
}
