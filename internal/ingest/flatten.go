package ingest

import (
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/grovedb/grove/internal/grammar"
)

// ContractError reports a tree that violates the structural guarantees every
// grammar plugin must uphold: spans inside the source buffer, child spans
// contained in the parent span, no node visited twice. It always indicates a
// plugin bug and is fatal for the file, never silently patched.
type ContractError struct {
	Path   string
	Detail string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("plugin contract violation in %s: %s", e.Path, e.Detail)
}

// flatFrame is one pending node on the traversal stack, carrying the id of
// its already-visited parent and the field name of its child slot.
type flatFrame struct {
	node        tree_sitter.Node
	parent      int64 // -1 for the root
	field       *string
	parentStart uint
	parentEnd   uint
}

// Flatten walks the tree in pre-order (parent first, children left to right)
// and produces the three relations for path. Ids are assigned in visit
// order, dense from 0, so the id sequence is itself a valid pre-order
// linearization of the tree. Flattening the same bytes with the same grammar
// always yields identical output.
func Flatten(g *grammar.Grammar, path string, tree *tree_sitter.Tree, source []byte) (*FileRelations, error) {
	rel := &FileRelations{Path: path}

	root := tree.RootNode()
	stack := []flatFrame{{
		node:        *root,
		parent:      -1,
		parentStart: root.StartByte(),
		parentEnd:   root.EndByte(),
	}}
	seen := make(map[uintptr]struct{})

	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := &frame.node

		if _, dup := seen[node.Id()]; dup {
			return nil, &ContractError{Path: path, Detail: "node reachable from two parents"}
		}
		seen[node.Id()] = struct{}{}

		start, end := node.StartByte(), node.EndByte()
		if start > end {
			return nil, &ContractError{
				Path:   path,
				Detail: fmt.Sprintf("node span [%d,%d) is inverted", start, end),
			}
		}
		if end > uint(len(source)) {
			return nil, &ContractError{
				Path:   path,
				Detail: fmt.Sprintf("node span [%d,%d) exceeds source length %d", start, end, len(source)),
			}
		}
		if start < frame.parentStart || end > frame.parentEnd {
			return nil, &ContractError{
				Path: path,
				Detail: fmt.Sprintf("child span [%d,%d) escapes parent span [%d,%d)",
					start, end, frame.parentStart, frame.parentEnd),
			}
		}

		id := int64(len(rel.Nodes))

		// Terminals carry their exact source slice; internal nodes do not.
		var text *string
		if node.ChildCount() == 0 {
			s := string(source[start:end])
			text = &s
		}

		rel.Nodes = append(rel.Nodes, Node{
			Path:    path,
			ID:      id,
			Kind:    g.KindName(node.KindId()),
			IsError: node.IsError(),
			Source:  text,
		})

		startPos, endPos := node.StartPosition(), node.EndPosition()
		rel.Locations = append(rel.Locations, Location{
			Path:        path,
			ID:          id,
			StartByte:   int64(start),
			StartRow:    int64(startPos.Row),
			StartColumn: int64(startPos.Column),
			EndByte:     int64(end),
			EndRow:      int64(endPos.Row),
			EndColumn:   int64(endPos.Column),
		})

		if frame.parent >= 0 {
			rel.Edges = append(rel.Edges, Edge{
				Path:   path,
				Parent: frame.parent,
				Child:  id,
				Field:  frame.field,
			})
		}

		// Push children in reverse so the leftmost child is visited next.
		for i := int(node.ChildCount()) - 1; i >= 0; i-- {
			child := node.Child(uint(i))
			if child == nil {
				return nil, &ContractError{
					Path:   path,
					Detail: fmt.Sprintf("child %d of node %d is missing", i, id),
				}
			}
			var field *string
			if name := node.FieldNameForChild(uint32(i)); name != "" {
				field = &name
			}
			stack = append(stack, flatFrame{
				node:        *child,
				parent:      id,
				field:       field,
				parentStart: start,
				parentEnd:   end,
			})
		}
	}

	return rel, nil
}

// ErrorNodeCount returns how many nodes in the batch are error nodes.
func (r *FileRelations) ErrorNodeCount() int {
	count := 0
	for _, n := range r.Nodes {
		if n.IsError {
			count++
		}
	}
	return count
}
