package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	loader, err := NewGrammarLoader()
	require.NoError(t, err)
	p := NewParser(loader)
	require.NoError(t, p.RegisterDefaultExtractors())
	return p
}

func specifiers(imports []RawImport) []string {
	out := make([]string, 0, len(imports))
	for _, imp := range imports {
		out = append(out, imp.Specifier)
	}
	return out
}

func TestTypeScriptImports(t *testing.T) {
	p := newTestParser(t)

	code := `
import { Module, ModuleImport as Imp } from "./module";
import * as path from "path";
import Default from '../util/default';
import "./side-effect";
import fs = require("fs");
export { Builder } from "./builder";
export * from "./types";

export class Tree {}
`
	imports, err := p.ExtractImports("/src/tree.ts", []byte(code))
	require.NoError(t, err)

	assert.Equal(t, []string{"./module", "path", "../util/default", "./side-effect", "fs", "./builder", "./types"}, specifiers(imports))
	assert.Equal(t, []string{"Module", "Imp"}, imports[0].Names)
	assert.Equal(t, ImportDeclaration, imports[0].Kind)
	assert.Equal(t, []string{"path"}, imports[1].Names)
	assert.Equal(t, []string{"Default"}, imports[2].Names)
	assert.Equal(t, ImportSideEffect, imports[3].Kind)
	assert.Empty(t, imports[3].Names)
	assert.Equal(t, ImportRequire, imports[4].Kind)
	assert.Equal(t, []string{"fs"}, imports[4].Names)
	assert.Equal(t, ImportReExport, imports[5].Kind)
	assert.Equal(t, []string{"Builder"}, imports[5].Names)
	assert.Equal(t, []string{"*"}, imports[6].Names)
	assert.Equal(t, 2, imports[0].Location.Line)
}

func TestJavaScriptRequire(t *testing.T) {
	p := newTestParser(t)

	code := `
const helper = require("./helper");
const name = "dyn";
const dynamic = require(name);
function load() {
  return require('./lazy');
}
import("./chunk");
`
	imports, err := p.ExtractImports("/src/index.js", []byte(code))
	require.NoError(t, err)

	assert.Equal(t, []string{"./helper", "./lazy"}, specifiers(imports))
	assert.Equal(t, []string{"helper"}, imports[0].Names)
	assert.Empty(t, imports[1].Names)
}

func TestTSXImports(t *testing.T) {
	p := newTestParser(t)

	code := `
import React from "react";
import { Button } from "./button";

export const App = () => <Button label="x" />;
`
	imports, err := p.ExtractImports("/src/app.tsx", []byte(code))
	require.NoError(t, err)
	assert.Equal(t, []string{"react", "./button"}, specifiers(imports))
}

func TestUnsupportedLanguage(t *testing.T) {
	p := newTestParser(t)

	_, err := p.ExtractImports("/src/main.py", []byte("import os"))
	require.Error(t, err)
	assert.False(t, p.IsSupportedPath("/src/main.py"))
	assert.True(t, p.IsSupportedPath("/src/main.TS"))
}

func TestBuildLanguageRegistry(t *testing.T) {
	disabled := false
	registry, err := BuildLanguageRegistry(map[string]LanguageOverride{
		"tsx":        {Enabled: &disabled},
		"javascript": {Extensions: []string{"js", ".es6"}},
	})
	require.NoError(t, err)
	assert.False(t, registry["tsx"].Enabled)
	assert.Equal(t, []string{".js", ".es6"}, registry["javascript"].Extensions)

	_, err = BuildLanguageRegistry(map[string]LanguageOverride{"cobol": {}})
	assert.Error(t, err)

	_, err = BuildLanguageRegistry(map[string]LanguageOverride{"javascript": {Extensions: []string{".ts"}}})
	assert.Error(t, err, "extension collision with typescript must be rejected")
}

func TestDisabledLanguageIsNotParsed(t *testing.T) {
	disabled := false
	registry, err := BuildLanguageRegistry(map[string]LanguageOverride{"javascript": {Enabled: &disabled}})
	require.NoError(t, err)
	loader, err := NewGrammarLoaderWithRegistry(registry)
	require.NoError(t, err)
	p := NewParser(loader)
	require.NoError(t, p.RegisterDefaultExtractors())

	assert.False(t, p.IsSupportedPath("a.js"))
	assert.NotContains(t, loader.SupportedExtensions(), ".js")
	assert.Contains(t, p.SupportedExtensions(), ".ts")
}
