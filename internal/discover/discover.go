// Package discover walks a project root to find the initial set of
// translation units the Scheduler should submit (spec §4.4 "initial
// indexing... walks the project root"). Grounded on the pack's
// cmd/codetect-index/main.go walk-plus-gitignore idiom, adapted to the
// core's doublestar include/exclude globs instead of a fixed extension
// allowlist.
package discover

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/indexcore/engine/internal/lciconfig"
)

// Files walks cfg.Project.Root and returns every regular file whose
// root-relative, slash-form path passes the configured include/exclude
// globs and, when enabled, the project's .gitignore.
func Files(cfg *lciconfig.Config) ([]string, error) {
	root := cfg.Project.Root
	var gi *ignore.GitIgnore
	if cfg.Index.RespectGitignore {
		gi = loadGitignore(root)
	}

	var out []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if info.IsDir() {
			if matchesAny(cfg.Index.Exclude, rel) || matchesAny(cfg.Index.Exclude, rel+"/") {
				return filepath.SkipDir
			}
			if gi != nil && gi.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if matchesAny(cfg.Index.Exclude, rel) {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		if len(cfg.Index.Include) > 0 && !matchesAny(cfg.Index.Include, rel) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func matchesAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
