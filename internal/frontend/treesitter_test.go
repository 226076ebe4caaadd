package frontend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseFixture(t *testing.T, src string) *ParseResult {
	t.Helper()
	cs, err := NewTreeSitterCursorSource()
	require.NoError(t, err)

	result, err := cs.Parse(context.Background(), "fixture.cpp", []byte(src), nil)
	require.NoError(t, err)
	return result
}

func TestTreeSitterCursorSource_FunctionDefinition(t *testing.T) {
	result := parseFixture(t, `
void render() {
}
`)

	require.NotEmpty(t, result.Cursors)
	var found *RawCursor
	for i := range result.Cursors {
		if result.Cursors[i].Spelling == "render" {
			found = &result.Cursors[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, KindDefinition, found.Kind)
	assert.False(t, found.IsMemberFunction)
}

func TestTreeSitterCursorSource_MemberFunctionDefinitionHasParent(t *testing.T) {
	result := parseFixture(t, `
class Widget {
  void render() {
  }
};
`)

	var def, decl *RawCursor
	for i := range result.Cursors {
		c := &result.Cursors[i]
		if c.Spelling == "render" && c.Kind == KindMemberFunctionDefinition {
			def = c
		}
		if c.Spelling == "Widget" {
			decl = c
		}
	}
	require.NotNil(t, decl, "class Widget should produce a type cursor")
	require.NotNil(t, def, "render should be classified as a member-function definition")
	assert.Equal(t, "Widget", def.SemanticParent)
}

func TestTreeSitterCursorSource_DeclarationAndDefinitionShareUSR(t *testing.T) {
	result := parseFixture(t, `
void render();
void render() {
}
`)

	var decl, def *RawCursor
	for i := range result.Cursors {
		c := &result.Cursors[i]
		if c.Spelling != "render" {
			continue
		}
		switch c.Kind {
		case KindDeclaration:
			decl = c
		case KindDefinition:
			def = c
		}
	}
	require.NotNil(t, decl)
	require.NotNil(t, def)
	assert.Equal(t, decl.USR, def.USR, "a forward declaration and its definition must resolve to one USR")
}

func TestTreeSitterCursorSource_CallExpressionIsReference(t *testing.T) {
	result := parseFixture(t, `
void render() {
}
void draw() {
  render();
}
`)

	var def, ref *RawCursor
	for i := range result.Cursors {
		c := &result.Cursors[i]
		if c.Spelling != "render" {
			continue
		}
		switch c.Kind {
		case KindDefinition:
			def = c
		case KindReference:
			ref = c
		}
	}
	require.NotNil(t, def)
	require.NotNil(t, ref)
	assert.Equal(t, def.USR, ref.USR, "a call must resolve to the same USR as the callee's definition")
}

func TestTreeSitterCursorSource_Include(t *testing.T) {
	result := parseFixture(t, `
#include <vector>
#include "widget.h"
`)

	require.Len(t, result.Includes, 2)
	assert.Equal(t, "vector", result.Includes[0].Path)
	assert.True(t, result.Includes[0].IsSystem)
	assert.Equal(t, "widget.h", result.Includes[1].Path)
	assert.False(t, result.Includes[1].IsSystem)
}
