package lint

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/solatis/treelint/internal/ast"
	"github.com/solatis/treelint/internal/ast/treesitter"
	"github.com/solatis/treelint/internal/rules"
	"github.com/solatis/treelint/internal/types"
)

// Language turns source bytes into a tree the selector engine can walk.
type Language interface {
	Name() string
	Extensions() []string
	// TypeKey is the node field holding the type tag of trees this language produces.
	TypeKey() string
	Parse(src []byte) (*ast.Node, error)
}

// ESTreeExtension marks files holding a pre-parsed ESTree JSON tree.
const ESTreeExtension = ".estree.json"

type estree struct {
	typeKey string
}

// ESTree returns the language for ESTree JSON documents whose type tag lives
// under typeKey.
func ESTree(typeKey string) Language {
	if typeKey == "" {
		typeKey = types.DefaultNodeTypeKey
	}
	return estree{typeKey: typeKey}
}

func (estree) Name() string { return rules.LangESTree }
func (estree) Extensions() []string { return []string{ESTreeExtension} }
func (l estree) TypeKey() string { return l.typeKey }
func (l estree) Parse(src []byte) (*ast.Node, error) {
	return ast.ParseJSON(src, l.typeKey)
}

type grammar struct {
	g treesitter.Grammar
}

func (l grammar) Name() string { return l.g.Name }
func (l grammar) Extensions() []string { return l.g.Extensions }
func (grammar) TypeKey() string { return types.DefaultNodeTypeKey }
func (l grammar) Parse(src []byte) (*ast.Node, error) {
	return l.g.Parse(src)
}

// Languages resolves file paths to languages by extension.
type Languages struct {
	byExt map[string]Language
}

// NewLanguages indexes langs by their extensions. Later languages win on
// conflicting extensions.
func NewLanguages(langs ...Language) *Languages {
	ls := &Languages{byExt: make(map[string]Language)}
	for _, lang := range langs {
		for _, ext := range lang.Extensions() {
			ls.byExt[strings.ToLower(ext)] = lang
		}
	}
	return ls
}

// DefaultLanguages returns ESTree JSON plus every tree-sitter grammar.
func DefaultLanguages(typeKey string) *Languages {
	langs := []Language{ESTree(typeKey)}
	for _, g := range treesitter.Grammars() {
		langs = append(langs, grammar{g: g})
	}
	return NewLanguages(langs...)
}

// ForPath returns the language whose longest extension suffixes path.
func (ls *Languages) ForPath(path string) (Language, error) {
	base := strings.ToLower(filepath.Base(path))
	var (
		best    Language
		bestLen int
	)
	for ext, lang := range ls.byExt {
		if len(ext) > bestLen && strings.HasSuffix(base, ext) {
			best, bestLen = lang, len(ext)
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrUnsupportedLanguage, path)
	}
	return best, nil
}

// Supports reports whether some language handles path.
func (ls *Languages) Supports(path string) bool {
	_, err := ls.ForPath(path)
	return err == nil
}

// Extensions returns every registered extension, sorted.
func (ls *Languages) Extensions() []string {
	exts := make([]string, 0, len(ls.byExt))
	for ext := range ls.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
