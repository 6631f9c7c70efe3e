// Package identity computes the resource identity model: ResourceId and
// the variant_inputs_hash that makes two otherwise-identical dependency
// entries distinct resources.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/agpkg/resolve/internal/manifest"
)

// ResourceId is the tuple identity used for conflict accounting and
// lockfile deduplication.
type ResourceId struct {
	Name         string
	Source       string
	Tool         string
	ResourceType manifest.ResourceType
	VariantHash  string
}

// EmptyVariantHash is the well-known hash of the empty merged variant
// object, used as the default when neither manifest-global nor
// dep-level template vars are set.
var EmptyVariantHash = hashCanonical(map[string]interface{}{})

// MergeVariantInputs deep-merges dep-level template_vars over the
// manifest-global variant_inputs (dep-level wins on key conflicts) and
// returns a stable canonical-JSON digest of the result, plus the merged
// value itself for passing through to the Metadata Extractor.
func MergeVariantInputs(global, dep json.RawMessage) (merged map[string]interface{}, hash string) {
	g := decodeObject(global)
	d := decodeObject(dep)
	merged = deepMerge(g, d)
	hash = hashCanonical(merged)
	return merged, hash
}

func decodeObject(raw json.RawMessage) map[string]interface{} {
	if len(raw) == 0 {
		return map[string]interface{}{}
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return map[string]interface{}{}
	}
	return m
}

// deepMerge overlays b onto a, recursing into nested objects. b's scalar
// values and arrays always win; only object-valued keys present in both
// are merged recursively.
func deepMerge(a, b map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, bv := range b {
		if av, ok := out[k]; ok {
			aobj, aIsObj := av.(map[string]interface{})
			bobj, bIsObj := bv.(map[string]interface{})
			if aIsObj && bIsObj {
				out[k] = deepMerge(aobj, bobj)
				continue
			}
		}
		out[k] = bv
	}
	return out
}

// hashCanonical produces a stable digest of a JSON-able value by
// recursively sorting object keys before marshaling, so two structurally
// equal values with differently-ordered keys hash identically.
func hashCanonical(v interface{}) string {
	canon := canonicalize(v)
	b, _ := json.Marshal(canon)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func canonicalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]canonicalKV, len(keys))
		for i, k := range keys {
			out[i] = canonicalKV{K: k, V: canonicalize(t[k])}
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = canonicalize(e)
		}
		return out
	default:
		return t
	}
}

type canonicalKV struct {
	K string      `json:"k"`
	V interface{} `json:"v"`
}
