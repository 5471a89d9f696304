// Command vrm-inspect prints the animation topology of a VRM avatar file:
// metadata, the resolved humanoid bone map, and every expression with its
// morph-target bind count. Useful for checking what a model actually
// exposes before pointing the retargeting pipeline at it.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/vrmlive/retarget/internal/vrm"
)

var showBones = flag.Bool("bones", false, "Also print the full bone-to-node map")

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [-bones] <model.vrm>\n", os.Args[0])
		os.Exit(2)
	}

	path := flag.Arg(0)
	avatar, err := vrm.Load(path)
	if err != nil {
		log.Fatalf("failed to load %s: %v", path, err)
	}

	fmt.Print(avatar.Summary())

	fmt.Println("\nExpressions:")
	for _, name := range avatar.ExpressionNames() {
		expr := avatar.Expressions[name]
		extra := ""
		if expr.IsBinary {
			extra = " (binary)"
		}
		fmt.Printf("  %-16s %d morph targets%s\n", name, len(expr.MorphTargetBinds), extra)
	}

	if *showBones {
		fmt.Println("\nHumanoid bones:")
		for _, name := range avatar.BoneNames() {
			fmt.Printf("  %-20s node %d\n", name, avatar.Bones[name])
		}
	}

	if avatar.LookAt != nil {
		fmt.Printf("\nLookAt: %s\n", avatar.LookAt.Type)
	}
	if avatar.FirstPerson != nil {
		fmt.Printf("FirstPerson annotations: %d\n", len(avatar.FirstPerson.MeshAnnotations))
	}
}
