// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package record

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// Node is one element of a parsed XML document.
type Node struct {
	Name     string
	Text     string
	Children []*Node

	// hasText distinguishes <x></x> from <x>text</x>.
	hasText bool
}

// Child returns the first direct child named name, or nil.
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Lookup follows names one child at a time from n and returns the text of
// the final node. It returns nil if any node on the path is missing or the
// final node carries no text.
func (n *Node) Lookup(names ...string) *string {
	cur := n
	for _, name := range names {
		cur = cur.Child(name)
		if cur == nil {
			return nil
		}
	}
	if cur == nil || !cur.hasText {
		return nil
	}
	text := cur.Text
	return &text
}

// decodeTree reads a single XML document from r and returns its root element.
// Only the character data that precedes an element's first child counts as
// its text. Documents declaring a non-UTF-8 encoding are transcoded.
func decodeTree(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var (
		root  *Node
		stack []*Node
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return nil, fmt.Errorf("unexpected element <%s> after document root", t.Name.Local)
			}
			node := &Node{Name: t.Name.Local}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			} else {
				root = node
			}
			stack = append(stack, node)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				if strings.TrimSpace(string(t)) != "" {
					return nil, errors.New("character data outside document root")
				}
				continue
			}
			cur := stack[len(stack)-1]
			if len(cur.Children) == 0 && len(t) > 0 {
				cur.Text += string(t)
				cur.hasText = true
			}
		}
	}

	if root == nil {
		return nil, errors.New("document has no root element")
	}
	if len(stack) > 0 {
		return nil, fmt.Errorf("unclosed element <%s>", stack[len(stack)-1].Name)
	}
	return root, nil
}
