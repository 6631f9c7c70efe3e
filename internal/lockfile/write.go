package lockfile

import (
	"bytes"
	"encoding/json"

	"github.com/agpkg/resolve/internal/manifest"
)

// MarshalJSON flattens Lockfile into a single document: a "sources" table
// plus one array per resource type, each keyed by its string name, in
// AllResourceTypes order so the on-disk document is diff-stable across
// runs with the same resolved set.
func (lf *Lockfile) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	sourcesJSON, err := json.Marshal(lf.Sources)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`"sources":`)
	buf.Write(sourcesJSON)

	for _, rt := range manifest.AllResourceTypes {
		entries, ok := lf.Resources[string(rt)]
		if !ok {
			continue
		}
		entriesJSON, err := json.Marshal(entries)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.WriteByte('"')
		buf.WriteString(string(rt))
		buf.WriteString(`":`)
		buf.Write(entriesJSON)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
