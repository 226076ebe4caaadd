// Package rpcapi exposes the Query Engine (internal/query) and the
// Scheduler's submission surface (internal/scheduler) as an MCP tool
// server, grounded on the pack's internal/mcp/server.go: an
// mcp.Server built with mcp.NewServer, one mcp.Tool registered per
// operation with a hand-written jsonschema.Schema, each backed by a
// handler that unmarshals req.Params.Arguments into a small params
// struct and returns a JSON-encoded mcp.CallToolResult. The teacher's
// field-alias/warnings machinery for backward-compatible tool
// parameters has no reason to exist here — this surface has no prior
// wire format to stay compatible with — so it is dropped rather than
// carried for its own sake.
package rpcapi

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/indexcore/engine/internal/query"
	"github.com/indexcore/engine/internal/scheduler"
)

// Server binds the Query Engine and Scheduler to an MCP tool surface.
type Server struct {
	engine *query.Engine
	sched  *scheduler.Scheduler
	server *mcp.Server
}

// NewServer builds the MCP server and registers every tool, but does
// not yet start serving — call Start to run the stdio transport loop.
func NewServer(engine *query.Engine, sched *scheduler.Scheduler, name, version string) *Server {
	s := &Server{
		engine: engine,
		sched:  sched,
		server: mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
	}
	s.registerTools()
	return s
}

// Start runs the MCP server over stdio until ctx is cancelled or the
// transport closes. It blocks.
func (s *Server) Start(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func stringSchema(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc}
}

func integerSchema(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: desc}
}

func booleanSchema(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "boolean", Description: desc}
}

func stringArraySchema(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "array",
		Description: desc,
		Items:       &jsonschema.Schema{Type: "string"},
	}
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "cursor_at",
		Description: "Resolve the cursor (declaration/definition/reference) at an exact or enclosing byte range in a file.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path":  stringSchema("File path."),
				"start": integerSchema("Byte offset, range start."),
				"end":   integerSchema("Byte offset, range end."),
			},
			Required: []string{"path", "start", "end"},
		},
	}, s.handleCursorAt)

	s.server.AddTool(&mcp.Tool{
		Name:        "references",
		Description: "List every reference to the symbol resolved at a location, optionally including its declarations/definitions.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path":          stringSchema("File path of the location to resolve first."),
				"start":         integerSchema("Byte offset, range start."),
				"end":           integerSchema("Byte offset, range end."),
				"include_decls": booleanSchema("Also include declarations of the resolved symbol."),
				"include_defs":  booleanSchema("Also include definitions of the resolved symbol."),
				"path_filter":   stringSchema("Restrict results to paths with this prefix."),
			},
			Required: []string{"path", "start", "end"},
		},
	}, s.handleReferences)

	s.server.AddTool(&mcp.Tool{
		Name:        "find_cursors",
		Description: "Find every decl/def/ref cursor for a symbol by its spelling.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"name":        stringSchema("Symbol spelling to look up."),
				"path_filter": stringSchema("Restrict results to paths with this prefix."),
				"fuzzy":       booleanSchema("Enable Jaro-Winkler fuzzy matching instead of exact lookup."),
				"stem":        booleanSchema("Porter2-stem both sides before fuzzy scoring (only with fuzzy)."),
				"threshold":   jsonschemaNumber("Minimum similarity in [0,1] for fuzzy matches (default 0.80)."),
			},
			Required: []string{"name"},
		},
	}, s.handleFindCursors)

	s.server.AddTool(&mcp.Tool{
		Name:        "list_symbols",
		Description: "List interned symbol spellings by prefix, optionally scoped to a path prefix.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"prefix":      stringSchema("Name prefix to match."),
				"path_filter": stringSchema("Restrict results to paths with this prefix."),
				"fuzzy":       booleanSchema("Enable Jaro-Winkler fuzzy matching instead of prefix matching."),
				"stem":        booleanSchema("Porter2-stem both sides before fuzzy scoring (only with fuzzy)."),
				"threshold":   jsonschemaNumber("Minimum similarity in [0,1] for fuzzy matches (default 0.80)."),
			},
		},
	}, s.handleListSymbols)

	s.server.AddTool(&mcp.Tool{
		Name:        "cursors_in_file",
		Description: "List every cursor recorded in one file, ordered by start offset.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{"path": stringSchema("File path.")},
			Required:   []string{"path"},
		},
	}, s.handleCursorsInFile)

	s.server.AddTool(&mcp.Tool{
		Name:        "dependencies",
		Description: "List every file a file transitively includes, or every file that transitively includes it.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path": stringSchema("File path."),
				"mode": stringSchema(`"depends_on" (default, what this file includes) or "depended_on_by" (what includes this file).`),
			},
			Required: []string{"path"},
		},
	}, s.handleDependencies)

	s.server.AddTool(&mcp.Tool{
		Name:        "fixits",
		Description: "Return the ordered fix-it text block for a file.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{"path": stringSchema("File path.")},
			Required:   []string{"path"},
		},
	}, s.handleFixIts)

	s.server.AddTool(&mcp.Tool{
		Name:        "index_submit",
		Description: "Submit (or resubmit) a translation unit for indexing.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path":        stringSchema("Primary file to parse."),
				"args":        stringArraySchema("Compiler-style argument vector."),
				"working_dir": stringSchema("Working directory the args are relative to."),
			},
			Required: []string{"path"},
		},
	}, s.handleIndexSubmit)

	s.server.AddTool(&mcp.Tool{
		Name:        "index_remove",
		Description: "Cancel any in-flight job for a file and erase its facts from the graph.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{"path": stringSchema("File path.")},
			Required:   []string{"path"},
		},
	}, s.handleIndexRemove)

	s.server.AddTool(&mcp.Tool{
		Name:        "index_dirty",
		Description: "Resubmit a set of already-known primaries, as if their contents changed on disk.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"paths": stringArraySchema("Primary file paths to resubmit."),
			},
			Required: []string{"paths"},
		},
	}, s.handleIndexDirty)

	s.server.AddTool(&mcp.Tool{
		Name:        "is_indexing",
		Description: "Report whether any job is currently queued, parsing, or merging.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleIsIndexing)
}

func jsonschemaNumber(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "number", Description: desc}
}
