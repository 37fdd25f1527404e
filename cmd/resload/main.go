// Command resload loads assets through a resman Manager and reports which
// of them became ready.
//
// Usage:
//
//	resload [--config resman.hcl] [--backend headless] PATH...
//
// Paths ending in an image extension are requested as textures, everything
// else as models (or skinned models with --skinned).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
