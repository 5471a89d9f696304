// Package vrm extracts animation-relevant structure from a VRM 1.0 avatar
// container: metadata, the humanoid bone map, expression definitions with
// their morph-target bindings, and the gaze and first-person configuration.
// Parsing is purely structural; geometry, materials and everything else in
// the underlying glTF document are the rendering host's concern.
package vrm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/vrmlive/retarget/internal/monitoring"
)

// ErrNotAnAvatarFile reports a container that is valid glTF but carries no
// VRMC_vrm extension. The load attempt fails; the application continues
// without an avatar.
var ErrNotAnAvatarFile = errors.New("vrm: container has no VRMC_vrm extension")

const extensionKey = "VRMC_vrm"

// document is the minimal structural slice of the glTF JSON the parser needs
// to resolve references: node names, node→mesh links, per-primitive morph
// target counts, and the extension map.
type document struct {
	Nodes      []docNode                  `json:"nodes"`
	Meshes     []docMesh                  `json:"meshes"`
	Extensions map[string]json.RawMessage `json:"extensions"`
}

type docNode struct {
	Name string `json:"name"`
	Mesh *int   `json:"mesh"`
}

type docMesh struct {
	Primitives []docPrimitive `json:"primitives"`
}

type docPrimitive struct {
	Targets []json.RawMessage `json:"targets"`
}

// Avatar is the animation topology extracted from one avatar container.
// Read-only after load; discarded when the avatar is unloaded or replaced.
type Avatar struct {
	Meta Meta

	// Bones maps humanoid bone names to resolved scene-node indices. Bones
	// whose node reference could not be resolved are absent.
	Bones map[string]int

	// Expressions holds preset-named and custom-named expressions in one
	// map, with unresolvable morph-target binds already dropped.
	Expressions map[string]Expression

	LookAt      *LookAt
	FirstPerson *FirstPerson
}

// Load reads an avatar container from disk and parses it.
func Load(path string) (*Avatar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vrm: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse extracts the avatar topology from GLB or bare-JSON glTF bytes.
// Returns ErrNotAnAvatarFile, with no partial data, when the container has
// no VRMC_vrm extension. Individual unresolvable bone or morph references
// are dropped with a warning rather than failing the parse.
func Parse(data []byte) (*Avatar, error) {
	jsonChunk := data
	if bytes.HasPrefix(data, []byte(glbMagic)) {
		var err error
		jsonChunk, _, err = ParseGLB(data)
		if err != nil {
			return nil, err
		}
		if len(jsonChunk) == 0 {
			return nil, errors.New("vrm: GLB container has no JSON chunk")
		}
	}

	var doc document
	if err := json.Unmarshal(jsonChunk, &doc); err != nil {
		return nil, fmt.Errorf("vrm: decode container JSON: %w", err)
	}

	raw, ok := doc.Extensions[extensionKey]
	if !ok {
		return nil, ErrNotAnAvatarFile
	}
	var ext extensionRoot
	if err := json.Unmarshal(raw, &ext); err != nil {
		return nil, fmt.Errorf("vrm: decode %s extension: %w", extensionKey, err)
	}

	return resolve(&doc, &ext), nil
}

// resolve turns the raw extension into an Avatar, verifying every node and
// morph-target reference against the document. Resolution is best-effort:
// partial humanoid and expression data is usable.
func resolve(doc *document, ext *extensionRoot) *Avatar {
	a := &Avatar{
		Meta:        ext.Meta,
		Bones:       make(map[string]int),
		Expressions: make(map[string]Expression),
		LookAt:      ext.LookAt,
		FirstPerson: ext.FirstPerson,
	}

	if ext.Humanoid != nil {
		for name, bone := range ext.Humanoid.HumanBones {
			if bone.Node < 0 || bone.Node >= len(doc.Nodes) {
				monitoring.Warnf("vrm: bone %q references node %d outside document (0..%d), dropping",
					name, bone.Node, len(doc.Nodes)-1)
				continue
			}
			a.Bones[name] = bone.Node
		}
	}

	for name, expr := range ext.Expressions.Preset {
		a.Expressions[name] = resolveExpression(doc, name, expr)
	}
	for name, expr := range ext.Expressions.Custom {
		a.Expressions[name] = resolveExpression(doc, name, expr)
	}

	return a
}

// resolveExpression filters an expression's morph-target binds down to those
// whose node, mesh and target index all resolve. Influence weights are
// clamped to [0,1].
func resolveExpression(doc *document, name string, expr Expression) Expression {
	if len(expr.MorphTargetBinds) == 0 {
		return expr
	}
	kept := make([]MorphTargetBind, 0, len(expr.MorphTargetBinds))
	for _, bind := range expr.MorphTargetBinds {
		n := morphTargetCount(doc, bind.Node)
		if bind.Index < 0 || bind.Index >= n {
			monitoring.Warnf("vrm: expression %q bind to node %d target %d is unresolvable (%d targets), dropping",
				name, bind.Node, bind.Index, n)
			continue
		}
		if bind.Weight < 0 {
			bind.Weight = 0
		} else if bind.Weight > 1 {
			bind.Weight = 1
		}
		kept = append(kept, bind)
	}
	expr.MorphTargetBinds = kept
	return expr
}

// morphTargetCount reports how many morph targets the given node's mesh
// exposes, taking the largest primitive when counts differ. Zero when the
// node or its mesh reference does not resolve.
func morphTargetCount(doc *document, nodeIndex int) int {
	if nodeIndex < 0 || nodeIndex >= len(doc.Nodes) {
		return 0
	}
	meshRef := doc.Nodes[nodeIndex].Mesh
	if meshRef == nil || *meshRef < 0 || *meshRef >= len(doc.Meshes) {
		return 0
	}
	max := 0
	for _, prim := range doc.Meshes[*meshRef].Primitives {
		if len(prim.Targets) > max {
			max = len(prim.Targets)
		}
	}
	return max
}

// BoneNames returns the resolved humanoid bone names, sorted.
func (a *Avatar) BoneNames() []string {
	names := make([]string, 0, len(a.Bones))
	for name := range a.Bones {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExpressionNames returns the available expression names, sorted.
func (a *Avatar) ExpressionNames() []string {
	names := make([]string, 0, len(a.Expressions))
	for name := range a.Expressions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Summary renders a short human-readable description of the avatar for CLI
// output and logs.
func (a *Avatar) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", a.Meta.Name)
	if a.Meta.Version != "" {
		fmt.Fprintf(&b, "Version: %s\n", a.Meta.Version)
	}
	if len(a.Meta.Authors) > 0 {
		fmt.Fprintf(&b, "Authors: %s\n", strings.Join(a.Meta.Authors, ", "))
	}
	if a.Meta.LicenseURL != "" {
		fmt.Fprintf(&b, "License: %s\n", a.Meta.LicenseURL)
	}
	if a.Meta.AvatarPermission != "" {
		fmt.Fprintf(&b, "Avatar permission: %s\n", a.Meta.AvatarPermission)
	}
	fmt.Fprintf(&b, "Humanoid bones: %d\n", len(a.Bones))
	fmt.Fprintf(&b, "Expressions: %d\n", len(a.Expressions))
	return b.String()
}
