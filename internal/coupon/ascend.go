package coupon

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TreeNode is the minimal DOM capability needed to look for an enclosing card
type TreeNode[N any] interface {
	// Parent returns the parent node and false at the root
	Parent() (N, bool)
}

// Ascend walks up from start, at most maxDepth parents, and returns the first
// ancestor for which match holds. start itself is never tested.
func Ascend[N TreeNode[N]](start N, maxDepth int, match func(N) bool) (N, bool) {
	node := start
	for range maxDepth {
		parent, ok := node.Parent()
		if !ok {
			break
		}
		if match(parent) {
			return parent, true
		}
		node = parent
	}
	var zero N
	return zero, false
}

// SelectionNode adapts a single-element goquery selection to TreeNode
type SelectionNode struct {
	*goquery.Selection
}

// Parent implements TreeNode
func (n SelectionNode) Parent() (SelectionNode, bool) {
	parent := n.Selection.Parent()
	if parent.Length() == 0 || goquery.NodeName(parent) == "#document" {
		return SelectionNode{}, false
	}
	return SelectionNode{parent}, true
}

// ClassContains reports whether the node's class attribute contains marker.
// Generated class names are matched as substrings.
func (n SelectionNode) ClassContains(marker string) bool {
	class, _ := n.Attr("class")
	return marker != "" && strings.Contains(class, marker)
}

// ClassPredicate matches an ancestor carrying the card class
func ClassPredicate(cardClass string) func(SelectionNode) bool {
	return func(n SelectionNode) bool {
		return n.ClassContains(cardClass)
	}
}

// DatePredicate matches an ancestor whose visible text holds a D/M/YYYY date
func DatePredicate(n SelectionNode) bool {
	return datePattern.MatchString(SelectionText(n.Selection))
}

// FindCard returns the enclosing card of sel within maxDepth ancestors
func FindCard(sel *goquery.Selection, maxDepth int, match func(SelectionNode) bool) (*goquery.Selection, bool) {
	card, ok := Ascend(SelectionNode{sel}, maxDepth, match)
	if !ok {
		return nil, false
	}
	return card.Selection, true
}
