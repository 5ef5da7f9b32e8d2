package doctree

import (
	"encoding/json"
	"strings"
)

// Node types produced by the parsers.
const (
	TypeRoot          = "root"
	TypeHeading       = "heading"
	TypeParagraph     = "paragraph"
	TypeText          = "text"
	TypeList          = "list"
	TypeListItem      = "listItem"
	TypeLink          = "link"
	TypeImage         = "image"
	TypeTable         = "table"
	TypeTableRow      = "tableRow"
	TypeTableCell     = "tableCell"
	TypeCode          = "code"
	TypeInlineCode    = "inlineCode"
	TypeBlockquote    = "blockquote"
	TypeEmphasis      = "emphasis"
	TypeStrong        = "strong"
	TypeThematicBreak = "thematicBreak"
	TypeBreak         = "break"
	TypeDelete        = "delete"
	TypeHTML          = "html"
)

// Node is one element of a parsed document. Children are kept in reading order.
type Node struct {
	Type     string  `json:"type"`
	Children []*Node `json:"children,omitempty"`
	Value    string  `json:"value,omitempty"`

	Depth   int      `json:"depth,omitempty"`   // heading
	Ordered bool     `json:"ordered,omitempty"` // list
	Start   *int     `json:"start,omitempty"`   // ordered list
	Checked *bool    `json:"checked,omitempty"` // task list item
	URL     string   `json:"url,omitempty"`     // link, image
	Title   string   `json:"title,omitempty"`   // link, image
	Alt     string   `json:"alt,omitempty"`     // image
	Lang    string   `json:"lang,omitempty"`    // code
	Meta    string   `json:"meta,omitempty"`    // code
	Align   []string `json:"align,omitempty"`   // table
}

// NewRoot returns an empty root node. Its children slice is non-nil so that
// an empty document still validates.
func NewRoot() *Node {
	return &Node{Type: TypeRoot, Children: []*Node{}}
}

// plainNode has Node's fields without its JSON methods.
type plainNode Node

// MarshalJSON always writes children for a root, so an empty document
// encodes as {"type":"root","children":[]}.
func (n *Node) MarshalJSON() ([]byte, error) {
	if n.Type != TypeRoot || len(n.Children) > 0 {
		return json.Marshal((*plainNode)(n))
	}
	return json.Marshal(struct {
		*plainNode
		Children []*Node `json:"children"`
	}{(*plainNode)(n), []*Node{}})
}

// UnmarshalJSON restores the non-nil children slice of a decoded root.
func (n *Node) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, (*plainNode)(n)); err != nil {
		return err
	}
	if n.Type == TypeRoot && n.Children == nil {
		n.Children = []*Node{}
	}
	return nil
}

// Text returns a text leaf.
func Text(value string) *Node {
	return &Node{Type: TypeText, Value: value}
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Start != nil {
		s := *n.Start
		c.Start = &s
	}
	if n.Checked != nil {
		v := *n.Checked
		c.Checked = &v
	}
	if n.Align != nil {
		c.Align = append([]string(nil), n.Align...)
	}
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return &c
}

// Walk visits n and its descendants in document order. Returning false from
// fn skips the node's children.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// PlainText concatenates the text payloads under n.
func PlainText(n *Node) string {
	var sb strings.Builder
	Walk(n, func(c *Node) bool {
		switch c.Type {
		case TypeText, TypeInlineCode, TypeCode:
			sb.WriteString(c.Value)
		case TypeBreak:
			sb.WriteString("\n")
		case TypeImage:
			sb.WriteString(c.Alt)
		}
		return true
	})
	return sb.String()
}
