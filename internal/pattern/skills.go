package pattern

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agpkg/resolve/internal/logging"
)

// SkillMatch is one matched skill directory: its name and its path,
// optionally relative to a strip-prefix (used for Git sources so the
// locked path is worktree-relative rather than absolute).
type SkillMatch struct {
	Name string
	Path string
}

// MatchSkillDirectories lists base/skills/ and keeps directories whose
// name matches pattern (with any leading "skills/" stripped first) and
// which contain a SKILL.md file. Non-matching directories are skipped
// silently; matching but SKILL.md-less ones are skipped with a warning log
// line. Neither is an error.
func MatchSkillDirectories(base, pattern string, stripPrefix string, log logging.Logger) ([]SkillMatch, error) {
	if log == nil {
		log = logging.Nop{}
	}
	skillPattern := strings.TrimPrefix(pattern, "skills/")
	skillsBase := filepath.Join(base, "skills")

	info, err := os.Stat(skillsBase)
	if err != nil || !info.IsDir() {
		log.Debugf("pattern: no skills directory at %q", skillsBase)
		return nil, nil
	}

	entries, err := os.ReadDir(skillsBase)
	if err != nil {
		return nil, err
	}

	var out []SkillMatch
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		ok, err := filepath.Match(skillPattern, name)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		dir := filepath.Join(skillsBase, name)
		if _, err := os.Stat(filepath.Join(dir, "SKILL.md")); err != nil {
			log.Warnf("pattern: skipping %q: no SKILL.md", dir)
			continue
		}
		p := dir
		if stripPrefix != "" {
			if rel, err := filepath.Rel(stripPrefix, dir); err == nil {
				p = rel
			}
		}
		out = append(out, SkillMatch{Name: name, Path: filepath.ToSlash(p)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
