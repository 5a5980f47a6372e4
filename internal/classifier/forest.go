package classifier

import (
	"errors"
	"fmt"
)

// leafFeature marks a node without a split
const leafFeature = -1

// Node is one node of a binary decision tree stored in pre-order.
// Samples with x[Feature] <= Threshold go left.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Label     int     `json:"v,omitempty"`
}

// IsLeaf reports whether the node holds a label instead of a split
func (n Node) IsLeaf() bool {
	return n.Feature == leafFeature
}

// Tree is a single decision tree. Nodes[0] is the root.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Predict walks the tree for x and returns the leaf label
func (t *Tree) Predict(x []float64) int {
	i := 0
	for {
		n := t.Nodes[i]
		if n.IsLeaf() {
			return n.Label
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// validate guarantees Predict terminates and stays in bounds: every child
// index points strictly forward in the node slice.
func (t *Tree) validate(numFeatures int) error {
	if len(t.Nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, n := range t.Nodes {
		if n.IsLeaf() {
			if n.Label != 0 && n.Label != 1 {
				return fmt.Errorf("node %d: invalid label %d", i, n.Label)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= numFeatures {
			return fmt.Errorf("node %d: feature index %d out of range", i, n.Feature)
		}
		if n.Left <= i || n.Left >= len(t.Nodes) || n.Right <= i || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d: invalid children %d/%d", i, n.Left, n.Right)
		}
	}
	return nil
}

// Forest is an ensemble of decision trees combined by majority vote
type Forest struct {
	NumFeatures int    `json:"num_features"`
	Trees       []Tree `json:"trees"`
}

// Predict returns the majority label over all trees. A tie is not flagged.
func (f *Forest) Predict(x []float64) (int, error) {
	if len(x) != f.NumFeatures {
		return 0, fmt.Errorf("expected %d features, got %d", f.NumFeatures, len(x))
	}

	votes := 0
	for i := range f.Trees {
		votes += f.Trees[i].Predict(x)
	}
	if 2*votes > len(f.Trees) {
		return 1, nil
	}
	return 0, nil
}

// Validate checks the structure of every tree
func (f *Forest) Validate() error {
	if f.NumFeatures <= 0 {
		return errors.New("forest declares no features")
	}
	if len(f.Trees) == 0 {
		return errors.New("forest has no trees")
	}
	for i := range f.Trees {
		if err := f.Trees[i].validate(f.NumFeatures); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}
