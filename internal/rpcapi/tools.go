package rpcapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/indexcore/engine/internal/query"
	"github.com/indexcore/engine/internal/types"
)

type locationParams struct {
	Path  string `json:"path"`
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
}

func cursorResponse(c query.Cursor) map[string]interface{} {
	return map[string]interface{}{
		"usr":   c.UsrStr,
		"path":  c.Path,
		"start": c.Location.Start,
		"end":   c.Location.End,
		"kind":  c.Kind.String(),
	}
}

func cursorsResponse(cs []query.Cursor) []map[string]interface{} {
	out := make([]map[string]interface{}, len(cs))
	for i, c := range cs {
		out[i] = cursorResponse(c)
	}
	return out
}

func (s *Server) locationFromParams(p locationParams) (types.Location, bool) {
	fileID, ok := s.engine.FileID(p.Path)
	if !ok {
		return types.Location{}, false
	}
	return types.Location{File: fileID, Start: p.Start, End: p.End}, true
}

func (s *Server) handleCursorAt(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p locationParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("cursor_at", fmt.Errorf("invalid parameters: %w", err))
	}

	loc, ok := s.locationFromParams(p)
	if !ok {
		return jsonResponse(map[string]interface{}{"found": false})
	}

	cursor := s.engine.CursorAt(loc)
	if cursor.Usr == types.InvalidUsrID {
		return jsonResponse(map[string]interface{}{"found": false})
	}
	resp := cursorResponse(cursor)
	resp["found"] = true
	return jsonResponse(resp)
}

type referencesParams struct {
	locationParams
	IncludeDecls bool   `json:"include_decls,omitempty"`
	IncludeDefs  bool   `json:"include_defs,omitempty"`
	PathFilter   string `json:"path_filter,omitempty"`
}

func (s *Server) handleReferences(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p referencesParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("references", fmt.Errorf("invalid parameters: %w", err))
	}

	loc, ok := s.locationFromParams(p.locationParams)
	if !ok {
		return jsonResponse(map[string]interface{}{"references": []map[string]interface{}{}})
	}

	refs := s.engine.References(loc, query.ReferenceKinds{IncludeDecls: p.IncludeDecls, IncludeDefs: p.IncludeDefs}, p.PathFilter)
	return jsonResponse(map[string]interface{}{"references": cursorsResponse(refs)})
}

type findCursorsParams struct {
	Name       string  `json:"name"`
	PathFilter string  `json:"path_filter,omitempty"`
	Fuzzy      bool    `json:"fuzzy,omitempty"`
	Stem       bool    `json:"stem,omitempty"`
	Threshold  float64 `json:"threshold,omitempty"`
}

func (s *Server) handleFindCursors(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p findCursorsParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("find_cursors", fmt.Errorf("invalid parameters: %w", err))
	}
	if p.Name == "" {
		return errorResponse("find_cursors", fmt.Errorf("name is required"))
	}

	if !p.Fuzzy {
		cursors := s.engine.FindCursors(p.Name, p.PathFilter)
		return jsonResponse(map[string]interface{}{"cursors": cursorsResponse(cursors)})
	}

	opts := query.FuzzyOptions{Enabled: true, Stem: p.Stem, Threshold: p.Threshold}
	matches := s.engine.FindCursorsFuzzy(p.Name, p.PathFilter, opts)
	out := make([]map[string]interface{}, len(matches))
	for i, m := range matches {
		entry := cursorResponse(m.Cursor)
		entry["similarity"] = m.Similarity
		out[i] = entry
	}
	return jsonResponse(map[string]interface{}{"cursors": out})
}

type listSymbolsParams struct {
	Prefix     string  `json:"prefix,omitempty"`
	PathFilter string  `json:"path_filter,omitempty"`
	Fuzzy      bool    `json:"fuzzy,omitempty"`
	Stem       bool    `json:"stem,omitempty"`
	Threshold  float64 `json:"threshold,omitempty"`
}

func (s *Server) handleListSymbols(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p listSymbolsParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("list_symbols", fmt.Errorf("invalid parameters: %w", err))
	}

	if !p.Fuzzy {
		names := s.engine.ListSymbols(p.Prefix, p.PathFilter)
		return jsonResponse(map[string]interface{}{"symbols": names})
	}

	opts := query.FuzzyOptions{Enabled: true, Stem: p.Stem, Threshold: p.Threshold}
	matches := s.engine.ListSymbolsFuzzy(p.Prefix, p.PathFilter, opts)
	out := make([]map[string]interface{}, len(matches))
	for i, m := range matches {
		out[i] = map[string]interface{}{"name": m.Name, "similarity": m.Similarity}
	}
	return jsonResponse(map[string]interface{}{"symbols": out})
}

type pathParams struct {
	Path string `json:"path"`
}

func (s *Server) handleCursorsInFile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p pathParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("cursors_in_file", fmt.Errorf("invalid parameters: %w", err))
	}
	cursors := s.engine.CursorsInFile(p.Path)
	return jsonResponse(map[string]interface{}{"cursors": cursorsResponse(cursors)})
}

type dependenciesParams struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

func (s *Server) handleDependencies(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p dependenciesParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("dependencies", fmt.Errorf("invalid parameters: %w", err))
	}

	mode := types.DependsOnArg
	if p.Mode == "depended_on_by" {
		mode = types.ArgDependsOn
	}
	paths := s.engine.Dependencies(p.Path, mode)
	return jsonResponse(map[string]interface{}{"dependencies": paths})
}

func (s *Server) handleFixIts(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p pathParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("fixits", fmt.Errorf("invalid parameters: %w", err))
	}
	return jsonResponse(map[string]interface{}{"fixits": s.engine.FixIts(p.Path)})
}

type indexSubmitParams struct {
	Path       string   `json:"path"`
	Args       []string `json:"args,omitempty"`
	WorkingDir string   `json:"working_dir,omitempty"`
}

func (s *Server) handleIndexSubmit(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p indexSubmitParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("index_submit", fmt.Errorf("invalid parameters: %w", err))
	}
	if p.Path == "" {
		return errorResponse("index_submit", fmt.Errorf("path is required"))
	}

	source := types.SourceInformation{Path: p.Path, Args: p.Args, WorkingDir: p.WorkingDir}
	job, err := s.sched.Submit(source, types.IndexInitial)
	if err != nil {
		return errorResponse("index_submit", err)
	}
	return jsonResponse(map[string]interface{}{"path": p.Path, "state": job.State().String()})
}

func (s *Server) handleIndexRemove(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p pathParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("index_remove", fmt.Errorf("invalid parameters: %w", err))
	}
	if err := s.sched.Remove(p.Path); err != nil {
		return errorResponse("index_remove", err)
	}
	return jsonResponse(map[string]interface{}{"removed": p.Path})
}

type indexDirtyParams struct {
	Paths []string `json:"paths"`
}

func (s *Server) handleIndexDirty(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p indexDirtyParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("index_dirty", fmt.Errorf("invalid parameters: %w", err))
	}

	submitted := make([]string, 0, len(p.Paths))
	for _, path := range p.Paths {
		if _, err := s.sched.Submit(types.SourceInformation{Path: path}, types.IndexDirty); err != nil {
			return errorResponse("index_dirty", fmt.Errorf("submitting %s: %w", path, err))
		}
		submitted = append(submitted, path)
	}
	return jsonResponse(map[string]interface{}{"submitted": submitted})
}

func (s *Server) handleIsIndexing(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResponse(map[string]interface{}{"is_indexing": s.sched.IsIndexing()})
}
