package gitclient

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/skilldeck/skilldeck/internal/manifest"
	"github.com/skilldeck/skilldeck/internal/paths"
	"github.com/skilldeck/skilldeck/internal/types"
)

const manifestGlob = "**/" + paths.ManifestFileName

// RepoSkill is one skill manifest discovered inside a cloned repository.
type RepoSkill struct {
	// Name is the skill's directory name.
	Name string
	// ManifestPath is the manifest location relative to the repo root, in
	// slash form.
	ManifestPath string
	Manifest     types.Manifest
}

// ScanSkillsInRepo finds every SKILL.md under repoDir. The walk skips the
// .git metadata directory but deliberately keeps other hidden directories:
// some ecosystems ship skills under paths like .claude/skills/. Manifests
// that fail to parse degrade to a stub entry named after the directory.
func ScanSkillsInRepo(repoDir string) ([]RepoSkill, error) {
	var found []RepoSkill

	err := filepath.WalkDir(repoDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(repoDir, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if ok, _ := doublestar.Match(manifestGlob, rel); !ok {
			return nil
		}

		name := filepath.Base(filepath.Dir(path))
		if rel == paths.ManifestFileName {
			// Manifest at the repository root: the clone directory's
			// name is meaningless, so the manifest has to name the
			// skill. Callers that know the repository fill in a
			// fallback when it doesn't.
			name = ""
		}
		doc := &manifest.Document{Manifest: types.Manifest{Name: name}}
		if raw, err := os.ReadFile(path); err == nil {
			doc = manifest.ParseWithFallback(string(raw), name)
		}
		if name == "" {
			name = doc.Manifest.Name
		}

		found = append(found, RepoSkill{
			Name:         name,
			ManifestPath: rel,
			Manifest:     doc.Manifest,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}
