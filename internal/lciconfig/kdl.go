package lciconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/indexcore/engine/internal/types"
)

// Load reads `.lcicore.kdl` from projectRoot, falling back to defaults
// with Project.Root set to projectRoot when the file does not exist.
func Load(projectRoot string) (*Config, error) {
	absRoot, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("lciconfig: resolve project root: %w", err)
	}

	cfg := Default()
	cfg.Project.Root = absRoot

	kdlPath := filepath.Join(absRoot, ".lcicore.kdl")
	content, err := os.ReadFile(kdlPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("lciconfig: read %s: %w", kdlPath, err)
	}

	if err := parseKDL(string(content), cfg); err != nil {
		return nil, fmt.Errorf("lciconfig: parse %s: %w", kdlPath, err)
	}
	if cfg.Project.Root != "" && !filepath.IsAbs(cfg.Project.Root) {
		cfg.Project.Root = filepath.Clean(filepath.Join(absRoot, cfg.Project.Root))
	}
	return cfg, nil
}

func parseKDL(content string, cfg *Config) error {
	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return err
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "root":
					if s, ok := firstStringArg(cn); ok {
						cfg.Project.Root = s
					}
				case "name":
					if s, ok := firstStringArg(cn); ok {
						cfg.Project.Name = s
					}
				}
			}
		case "index":
			if err := parseIndexNode(n, cfg); err != nil {
				return err
			}
		case "include":
			cfg.Index.Include = append(cfg.Index.Include, collectStringArgs(n)...)
		case "exclude":
			cfg.Index.Exclude = collectStringArgs(n)
		}
	}
	return nil
}

func parseIndexNode(n *document.Node, cfg *Config) error {
	for _, cn := range n.Children {
		switch nodeName(cn) {
		case "parallelism":
			if v, ok := firstIntArg(cn); ok {
				cfg.Index.Parallelism = v
			}
		case "dirty_coalesce_window_ms":
			if v, ok := firstIntArg(cn); ok {
				cfg.Index.DirtyCoalesceWindow = time.Duration(v) * time.Millisecond
			}
		case "system_header_policy":
			if s, ok := firstStringArg(cn); ok {
				switch s {
				case "index":
					cfg.Index.SystemHeaderPolicy = types.SystemHeaderIndex
				case "skip":
					cfg.Index.SystemHeaderPolicy = types.SystemHeaderSkip
				case "index_once":
					cfg.Index.SystemHeaderPolicy = types.SystemHeaderIndexOnce
				default:
					return fmt.Errorf("unknown system_header_policy %q", s)
				}
			}
		case "max_cursor_depth":
			if v, ok := firstIntArg(cn); ok {
				cfg.Index.MaxCursorDepth = v
			}
		case "fix_its_enabled":
			if b, ok := firstBoolArg(cn); ok {
				cfg.Index.FixItsEnabled = b
			}
		case "respect_gitignore":
			if b, ok := firstBoolArg(cn); ok {
				cfg.Index.RespectGitignore = b
			}
		case "intern_table_shards":
			if v, ok := firstIntArg(cn); ok {
				cfg.Index.InternTableShards = v
			}
		}
	}
	return nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}
