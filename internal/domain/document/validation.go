package document

import (
	"bytes"
	"encoding/json"
	"strings"
)

// IsAcyclic reports whether no component in c's subtree appears among its own
// ancestors. Depth-first traversal from c then visits every node once.
func IsAcyclic(c Component) bool {
	return acyclic(c, map[string]bool{})
}

func acyclic(c Component, path map[string]bool) bool {
	if path[c.ID] {
		return false
	}
	path[c.ID] = true
	defer delete(path, c.ID)
	for _, child := range c.Children {
		if !acyclic(child, path) {
			return false
		}
	}
	return true
}

// ValidComponent reports whether id names a well-formed component in tree:
// present, of a known type, and acyclic below it.
func ValidComponent(tree []Component, id string) bool {
	c, ok := FindComponent(tree, id)
	if !ok {
		return false
	}
	return ValidateComponent(c) == nil
}

// ValidateComponent checks a single subtree in isolation.
func ValidateComponent(c Component) error {
	if strings.TrimSpace(c.ID) == "" {
		return Invalid("component.id", ErrInvalidInput, "id is required")
	}
	if !IsAcyclic(c) {
		return Invalid("component.children", ErrComponentCycle, "%s", c.ID)
	}
	return walkTypes(c)
}

func walkTypes(c Component) error {
	if !c.Type.Valid() {
		return Invalid("component.type", ErrUnknownComponentType, "%q", c.Type)
	}
	for _, child := range c.Children {
		if strings.TrimSpace(child.ID) == "" {
			return Invalid("component.id", ErrInvalidInput, "child of %s has no id", c.ID)
		}
		if err := walkTypes(child); err != nil {
			return err
		}
	}
	return nil
}

// ValidateTree checks a whole page tree: every component valid and every id
// unique across the tree.
func ValidateTree(tree []Component) error {
	for _, c := range tree {
		if err := ValidateComponent(c); err != nil {
			return err
		}
	}
	if id, dup := DuplicateID(tree); dup {
		return Invalid("component.id", ErrDuplicateComponentID, "%s", id)
	}
	return nil
}

// DuplicateID returns the first id that occurs twice in tree.
func DuplicateID(tree []Component) (string, bool) {
	seen := map[string]bool{}
	var dup string
	Walk(tree, func(c Component) bool {
		if seen[c.ID] {
			dup = c.ID
			return false
		}
		seen[c.ID] = true
		return true
	})
	return dup, dup != ""
}

// Canonicalize returns v after a JSON round trip, so the result is a fixed
// point of serialization. Values that cannot be encoded are rejected.
func Canonicalize[T any](v T) (T, error) {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return out, Invalid("payload", ErrNotSerializable, "%v", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return out, Invalid("payload", ErrNotSerializable, "%v", err)
	}
	return out, nil
}

// ValidatePageDraft checks the name and component tree of a page draft.
func ValidatePageDraft(d PageDraft) error {
	if strings.TrimSpace(d.Name) == "" {
		return Invalid("page.name", ErrInvalidInput, "name is required")
	}
	return ValidateTree(d.Components)
}

// ValidateProjectDraft checks the fields of a project draft.
func ValidateProjectDraft(d ProjectDraft) error {
	if strings.TrimSpace(d.Name) == "" {
		return Invalid("project.name", ErrInvalidInput, "name is required")
	}
	return nil
}
