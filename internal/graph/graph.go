package graph

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/assetgrid/internal/task"
)

// Kind identifies the variant of a Node.
type Kind int

const (
	KindLeaf Kind = iota
	KindSequence
	KindParallel
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindSequence:
		return "sequence"
	case KindParallel:
		return "parallel"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Node is one vertex of a task graph.
type Node struct {
	Kind Kind

	// ID identifies a leaf within its graph. It is the task name, suffixed
	// with "#n" when the same task appears more than once.
	ID   string
	Task *task.Task

	// Name is the pipeline a Sequence was built from, if any.
	Name     string
	Children []*Node
}

// Leaf wraps a single task.
func Leaf(t *task.Task) *Node {
	return &Node{Kind: KindLeaf, ID: t.Name, Task: t}
}

// Sequence runs children in declaration order.
func Sequence(children ...*Node) *Node {
	return &Node{Kind: KindSequence, Children: children}
}

// Parallel runs children concurrently.
func Parallel(children ...*Node) *Node {
	return &Node{Kind: KindParallel, Children: children}
}

// Walk visits n and its descendants depth-first in declaration order. It
// stops descending below a node for which fn returns false.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Leaves returns every leaf in declaration order.
func (n *Node) Leaves() []*Node {
	var leaves []*Node
	n.Walk(func(c *Node) bool {
		if c.Kind == KindLeaf {
			leaves = append(leaves, c)
		}
		return true
	})
	return leaves
}

// Tasks returns the distinct tasks reachable from n in declaration order.
func (n *Node) Tasks() []*task.Task {
	seen := make(map[string]struct{})
	var tasks []*task.Task
	for _, l := range n.Leaves() {
		if _, ok := seen[l.Task.Name]; ok {
			continue
		}
		seen[l.Task.Name] = struct{}{}
		tasks = append(tasks, l.Task)
	}
	return tasks
}

// String renders the tree compactly, e.g. "seq[clean, par[a, b]]".
func (n *Node) String() string {
	switch n.Kind {
	case KindLeaf:
		return n.ID
	case KindSequence, KindParallel:
		parts := make([]string, len(n.Children))
		for i, c := range n.Children {
			parts[i] = c.String()
		}
		prefix := "seq"
		if n.Kind == KindParallel {
			prefix = "par"
		}
		return prefix + "[" + strings.Join(parts, ", ") + "]"
	default:
		return n.Kind.String()
	}
}

// assignIDs makes leaf IDs unique within the tree rooted at n.
func assignIDs(n *Node) {
	counts := make(map[string]int)
	for _, l := range n.Leaves() {
		counts[l.Task.Name]++
		if c := counts[l.Task.Name]; c > 1 {
			l.ID = fmt.Sprintf("%s#%d", l.Task.Name, c)
		} else {
			l.ID = l.Task.Name
		}
	}
}
