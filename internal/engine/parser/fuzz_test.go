package parser

import (
	"testing"
)

func FuzzTypeScriptExtractor(f *testing.F) {
	f.Add([]byte(`import { a } from "./a";
export * from "../b";
const c = require("./c");
`))
	f.Add([]byte(`import x = require("x"); import "./side";`))

	loader, err := NewGrammarLoader()
	if err != nil {
		f.Fatal(err)
	}
	p := NewParser(loader)
	if err := p.RegisterDefaultExtractors(); err != nil {
		f.Fatal(err)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		imports, err := p.ExtractImports("fuzz.ts", data)
		if err != nil {
			return
		}
		for _, imp := range imports {
			if imp.Specifier == "" {
				t.Fatalf("empty specifier extracted from %q", data)
			}
		}
	})
}
