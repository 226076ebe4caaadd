package frontend

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
)

// TreeSitterCursorSource is the concrete CursorSource of spec.md §1's
// "C/C++ parser front-end ... assumed to deliver a cursor stream",
// backed by the tree-sitter C++ grammar. The underlying
// *tree_sitter.Parser is single-use-at-a-time (mirrors the pack's own
// per-extension *tree_sitter.Parser), so Parse holds mu around the
// parser call: one instance is shared by all of the Scheduler's
// workers, their tree-sitter parses run one at a time, and the tree
// walks that follow run concurrently.
type TreeSitterCursorSource struct {
	mu     sync.Mutex
	parser *tree_sitter.Parser
}

// NewTreeSitterCursorSource builds a ready-to-use cursor source with
// the C++ grammar loaded.
func NewTreeSitterCursorSource() (*TreeSitterCursorSource, error) {
	parser := tree_sitter.NewParser()
	language := tree_sitter.NewLanguage(tree_sitter_cpp.Language())
	if err := parser.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("frontend: set cpp language: %w", err)
	}
	return &TreeSitterCursorSource{parser: parser}, nil
}

// walkState threads the enclosing semantic-parent path and accumulated
// results through the recursive descent; args is currently unused by
// the tree-sitter grammar (it has no preprocessor/macro expansion) but
// is kept on the Parse signature to satisfy the CursorSource contract
// spec.md §4.3 gives every front end (primary path + compiler argv).
type walkState struct {
	content     []byte
	parentStack []string
	result      *ParseResult
	pendingOverrides map[string][]string // child USR -> parent spellings still needing resolution
}

func (s *TreeSitterCursorSource) Parse(ctx context.Context, path string, content []byte, args []string) (*ParseResult, error) {
	// CGO buffers are mutated by the C parser; copy defensively so the
	// caller's content slice stays immutable across reparses.
	buf := make([]byte, len(content))
	copy(buf, content)

	s.mu.Lock()
	tree := s.parser.Parse(buf, nil)
	s.mu.Unlock()
	if tree == nil {
		return nil, fmt.Errorf("frontend: parser produced no tree for %s", path)
	}
	defer tree.Close()

	st := &walkState{
		content:          buf,
		result:           &ParseResult{},
		pendingOverrides: make(map[string][]string),
	}
	if err := st.walk(ctx, tree.RootNode()); err != nil {
		return nil, err
	}
	st.resolveOverrides()
	return st.result, nil
}

func (s *walkState) text(n *tree_sitter.Node) string {
	return string(s.content[n.StartByte():n.EndByte()])
}

func (s *walkState) parentPath() string {
	return strings.Join(s.parentStack, "::")
}

func (s *walkState) walk(ctx context.Context, n *tree_sitter.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n == nil {
		return nil
	}

	switch n.Kind() {
	case "class_specifier", "struct_specifier":
		name := s.childText(n, "name")
		if name != "" {
			s.emitType(n, name, KindDefinition)
		}
		s.parentStack = append(s.parentStack, name)
		defer func() { s.parentStack = s.parentStack[:len(s.parentStack)-1] }()

	case "enum_specifier":
		if name := s.childText(n, "name"); name != "" {
			s.emitType(n, name, KindDefinition)
		}

	case "namespace_definition":
		name := s.childText(n, "name")
		if name != "" {
			s.parentStack = append(s.parentStack, name)
			defer func() { s.parentStack = s.parentStack[:len(s.parentStack)-1] }()
		}

	case "function_definition":
		s.emitFunction(n, KindDefinition)

	case "declaration":
		if s.hasFunctionDeclarator(n) {
			s.emitFunction(n, KindDeclaration)
		}

	case "field_declaration":
		if s.hasFunctionDeclarator(n) {
			s.emitFunction(n, KindMemberFunctionDeclaration)
		}

	case "call_expression":
		s.emitCallReference(n)

	case "preproc_include":
		s.emitInclude(n)
	}

	childCount := int(n.ChildCount())
	for i := 0; i < childCount; i++ {
		if err := s.walk(ctx, n.Child(uint(i))); err != nil {
			return err
		}
	}
	return nil
}

func (s *walkState) childText(n *tree_sitter.Node, field string) string {
	c := n.ChildByFieldName(field)
	if c == nil {
		return ""
	}
	return s.text(c)
}

func (s *walkState) hasFunctionDeclarator(n *tree_sitter.Node) bool {
	declarator := n.ChildByFieldName("declarator")
	for declarator != nil {
		if declarator.Kind() == "function_declarator" {
			return true
		}
		declarator = declarator.ChildByFieldName("declarator")
	}
	return false
}

// declaratorIdentifier unwraps pointer/reference/function declarator
// layers to find the identifier actually being declared.
func (s *walkState) declaratorIdentifier(n *tree_sitter.Node) *tree_sitter.Node {
	cur := n
	for cur != nil {
		switch cur.Kind() {
		case "identifier", "field_identifier", "destructor_name", "operator_name":
			return cur
		}
		next := cur.ChildByFieldName("declarator")
		if next == nil {
			return nil
		}
		cur = next
	}
	return nil
}

func (s *walkState) emitType(n *tree_sitter.Node, spelling string, kind CursorKind) {
	parent := s.parentPath()
	usr := synthesizeUSR(parent, spelling, kind)
	s.result.Cursors = append(s.result.Cursors, RawCursor{
		Kind:           kind,
		USR:            usr,
		Spelling:       spelling,
		StartByte:      uint32(n.StartByte()),
		EndByte:        uint32(n.EndByte()),
		SemanticParent: parent,
	})
}

func (s *walkState) emitFunction(n *tree_sitter.Node, kind CursorKind) {
	declarator := n.ChildByFieldName("declarator")
	if declarator == nil {
		return
	}
	ident := s.declaratorIdentifier(declarator)
	if ident == nil {
		return
	}
	spelling := s.text(ident)
	parent := s.parentPath()
	isMember := len(s.parentStack) > 0
	if isMember && (kind == KindDeclaration) {
		kind = KindMemberFunctionDeclaration
	} else if isMember && kind == KindDefinition {
		kind = KindMemberFunctionDefinition
	}
	usr := synthesizeUSR(parent, spelling, kind)

	overrides := s.collectOverrides(n, parent, spelling)

	s.result.Cursors = append(s.result.Cursors, RawCursor{
		Kind:             kind,
		USR:              usr,
		Spelling:         spelling,
		StartByte:        uint32(n.StartByte()),
		EndByte:          uint32(n.EndByte()),
		IsMemberFunction: isMember,
		Overrides:        overrides,
		SemanticParent:   parent,
	})
}

// collectOverrides looks for a trailing "override" virt-specifier on
// the function declarator; tree-sitter-cpp has no semantic base-class
// lookup, so the overridden cursor is resolved by (parent-less) name
// only, deferred to resolveOverrides once the whole TU has been
// walked and every class's methods are known.
func (s *walkState) collectOverrides(n *tree_sitter.Node, parent, spelling string) []string {
	declarator := n.ChildByFieldName("declarator")
	for declarator != nil && declarator.Kind() != "function_declarator" {
		declarator = declarator.ChildByFieldName("declarator")
	}
	if declarator == nil {
		return nil
	}
	hasOverride := false
	for i := 0; i < int(declarator.ChildCount()); i++ {
		c := declarator.Child(uint(i))
		if c != nil && c.Kind() == "virtual_specifier" && s.text(c) == "override" {
			hasOverride = true
		}
	}
	if !hasOverride {
		return nil
	}
	childUSR := synthesizeUSR(parent, spelling, KindMemberFunctionDefinition)
	s.pendingOverrides[childUSR] = append(s.pendingOverrides[childUSR], spelling)
	return nil
}

// resolveOverrides is a best-effort pass: without real base-class
// resolution, we can only assert "this spelling overrides something
// with the same spelling in some ancestor". It only attaches those
// spellings to the overriding cursor; the Parse Job
// (internal/scheduler's resolveOverrideTargets) turns them into edges
// to member-function USRs that actually exist and drops any spelling
// with no such match.
func (s *walkState) resolveOverrides() {
	for childUSR, spellings := range s.pendingOverrides {
		for i := range s.result.Cursors {
			c := &s.result.Cursors[i]
			if c.USR == childUSR {
				c.Overrides = spellings
			}
		}
	}
}

func (s *walkState) emitCallReference(n *tree_sitter.Node) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}
	spelling, parent := s.referenceTarget(fn)
	if spelling == "" {
		return
	}
	usr := synthesizeUSR(parent, spelling, KindReference)
	s.result.Cursors = append(s.result.Cursors, RawCursor{
		Kind:           KindReference,
		USR:            usr,
		Spelling:       spelling,
		StartByte:      uint32(fn.StartByte()),
		EndByte:        uint32(fn.EndByte()),
		SemanticParent: parent,
	})
}

// referenceTarget extracts the name and best-guess semantic parent for
// a called expression: a bare identifier, or the right side of a
// field/qualified expression (obj.method(), obj->method(), NS::fn()).
func (s *walkState) referenceTarget(n *tree_sitter.Node) (spelling, parent string) {
	switch n.Kind() {
	case "identifier":
		return s.text(n), s.parentPath()
	case "field_expression":
		if field := n.ChildByFieldName("field"); field != nil {
			return s.text(field), ""
		}
	case "qualified_identifier":
		if name := n.ChildByFieldName("name"); name != nil {
			scope := n.ChildByFieldName("scope")
			if scope != nil {
				return s.text(name), s.text(scope)
			}
			return s.text(name), ""
		}
	}
	return "", ""
}

func (s *walkState) emitInclude(n *tree_sitter.Node) {
	var pathNode *tree_sitter.Node
	childCount := int(n.ChildCount())
	for i := 0; i < childCount; i++ {
		child := n.Child(uint(i))
		if child.Kind() == "string_literal" || child.Kind() == "system_lib_string" {
			pathNode = child
			break
		}
	}
	if pathNode == nil {
		return
	}
	raw := s.text(pathNode)
	isSystem := strings.HasPrefix(raw, "<")
	path := strings.Trim(raw, "<>\"")
	s.result.Includes = append(s.result.Includes, Include{
		DirectiveStartByte: uint32(n.StartByte()),
		DirectiveEndByte:   uint32(n.EndByte()),
		Path:               path,
		IsSystem:           isSystem,
	})
}

// synthesizeUSR is the deterministic stand-in for a compiler's USR
// (spec.md §9 open question, resolved in DESIGN.md): a stable string
// per (parent path, spelling) pair, deliberately independent of the
// emitting cursor's kind — a declaration, its definition, and every
// reference to it must resolve to the same USR, or cross-TU merge and
// the Query Engine's references() could never connect them. It is not
// template- or overload-aware, a known limitation of a
// tree-sitter-only front end: two distinct overloads sharing a
// spelling collide onto one USR.
func synthesizeUSR(parentPath, spelling string, _ CursorKind) string {
	if parentPath == "" {
		return fmt.Sprintf("ts:%s", spelling)
	}
	return fmt.Sprintf("ts:%s::%s", parentPath, spelling)
}
