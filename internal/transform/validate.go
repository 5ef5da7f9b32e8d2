package transform

import (
	"fmt"

	"github.com/dgallion1/ubreader/internal/doctree"
)

// ValidateContentStructure checks that root is a well-formed document tree.
// It returns a *ValidationError for the first problem found.
func ValidateContentStructure(root *doctree.Node) error {
	if root == nil {
		return &ValidationError{Reason: "missing root node"}
	}
	if root.Type != doctree.TypeRoot {
		return &ValidationError{Path: "root", Reason: fmt.Sprintf("expected root node, got %q", root.Type)}
	}
	if root.Children == nil {
		return &ValidationError{Path: "root", Reason: "root has no children"}
	}
	return validateChildren(root, "root")
}

func validateChildren(n *doctree.Node, path string) error {
	for i, c := range n.Children {
		p := fmt.Sprintf("%s.children[%d]", path, i)
		if err := validateNode(c, p); err != nil {
			return err
		}
		if err := validateChildren(c, p); err != nil {
			return err
		}
	}
	return nil
}

func validateNode(n *doctree.Node, path string) error {
	if n == nil {
		return &ValidationError{Path: path, Reason: "missing node"}
	}
	switch n.Type {
	case "":
		return &ValidationError{Path: path, Reason: "node has no type"}
	case doctree.TypeHeading:
		if n.Depth < 1 || n.Depth > 6 {
			return &ValidationError{Path: path, Reason: fmt.Sprintf("heading depth %d out of range 1-6", n.Depth)}
		}
	case doctree.TypeLink, doctree.TypeImage:
		if n.URL == "" {
			return &ValidationError{Path: path, Reason: n.Type + " has no url"}
		}
	}
	return nil
}
