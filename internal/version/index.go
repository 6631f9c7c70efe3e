package version

import "github.com/armon/go-radix"

// TagIndex groups a source's tags by prefix in a radix tree, generalizing
// golang-dep's solver.go use of github.com/armon/go-radix for prefix
// matching on import paths: here the trie is keyed by tag prefix so
// filtering a constraint to its prefix subtree is O(len(prefix)) instead
// of a linear scan over every tag in the repository.
type TagIndex struct {
	tree *radix.Tree
}

// NewTagIndex builds an index from a source's full tag list.
func NewTagIndex(tags []string) *TagIndex {
	tree := radix.New()
	for _, t := range tags {
		p := Prefix(t)
		v, _ := tree.Get(p)
		var group []string
		if v != nil {
			group = v.([]string)
		}
		group = append(group, t)
		tree.Insert(p, group)
	}
	return &TagIndex{tree: tree}
}

// TagsWithPrefix returns every tag sharing the exact given prefix.
func (ti *TagIndex) TagsWithPrefix(prefix string) []string {
	v, ok := ti.tree.Get(prefix)
	if !ok {
		return nil
	}
	return v.([]string)
}

// TagsForConstraint returns the tags whose prefix matches the
// constraint's own prefix.
func (ti *TagIndex) TagsForConstraint(constraint string) []string {
	return ti.TagsWithPrefix(Prefix(constraint))
}
