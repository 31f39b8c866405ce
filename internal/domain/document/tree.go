package document

// Walk visits tree depth-first in render order until fn returns false.
func Walk(tree []Component, fn func(Component) bool) bool {
	for _, c := range tree {
		if !fn(c) {
			return false
		}
		if !Walk(c.Children, fn) {
			return false
		}
	}
	return true
}

// FindComponent locates id anywhere in tree.
func FindComponent(tree []Component, id string) (Component, bool) {
	var found Component
	ok := false
	Walk(tree, func(c Component) bool {
		if c.ID == id {
			found, ok = c, true
			return false
		}
		return true
	})
	return found, ok
}

// CloneComponents deep-copies a tree.
func CloneComponents(tree []Component) []Component {
	if tree == nil {
		return nil
	}
	out := make([]Component, len(tree))
	for i, c := range tree {
		out[i] = c.Clone()
	}
	return out
}

// Clone deep-copies c and its subtree.
func (c Component) Clone() Component {
	c.Props = c.Props.Clone()
	c.Styles = c.Styles.Clone()
	c.Children = CloneComponents(c.Children)
	return c
}

// ReplaceComponent returns a copy of tree with the component whose id matches
// next.ID replaced by next.
func ReplaceComponent(tree []Component, next Component) ([]Component, bool) {
	out := CloneComponents(tree)
	return out, replaceIn(out, next)
}

func replaceIn(tree []Component, next Component) bool {
	for i := range tree {
		if tree[i].ID == next.ID {
			tree[i] = next.Clone()
			return true
		}
		if replaceIn(tree[i].Children, next) {
			return true
		}
	}
	return false
}

// RemoveComponent returns a copy of tree without id and its subtree.
func RemoveComponent(tree []Component, id string) ([]Component, bool) {
	return removeFrom(CloneComponents(tree), id)
}

func removeFrom(tree []Component, id string) ([]Component, bool) {
	for i := range tree {
		if tree[i].ID == id {
			return append(tree[:i:i], tree[i+1:]...), true
		}
		if children, ok := removeFrom(tree[i].Children, id); ok {
			tree[i].Children = children
			return tree, true
		}
	}
	return tree, false
}

// AppendChild returns a copy of tree with child appended under parentID.
func AppendChild(tree []Component, parentID string, child Component) ([]Component, bool) {
	out := CloneComponents(tree)
	return out, appendIn(out, parentID, child)
}

func appendIn(tree []Component, parentID string, child Component) bool {
	for i := range tree {
		if tree[i].ID == parentID {
			tree[i].Children = append(tree[i].Children, child.Clone())
			return true
		}
		if appendIn(tree[i].Children, parentID, child) {
			return true
		}
	}
	return false
}

// Reorder returns the top-level components arranged in ids order. ids must be
// a permutation of the current top-level ids.
func Reorder(tree []Component, ids []string) ([]Component, error) {
	if len(ids) != len(tree) {
		return nil, Invalid("order", ErrInvalidInput, "expected %d ids, got %d", len(tree), len(ids))
	}
	byID := make(map[string]Component, len(tree))
	for _, c := range tree {
		byID[c.ID] = c
	}
	out := make([]Component, 0, len(ids))
	used := make(map[string]bool, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			return nil, Invalid("order", ErrComponentNotFound, "%s", id)
		}
		if used[id] {
			return nil, Invalid("order", ErrDuplicateComponentID, "%s", id)
		}
		used[id] = true
		out = append(out, c.Clone())
	}
	return out, nil
}
