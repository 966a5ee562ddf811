package dsl

import (
	"go.trai.ch/zerr"

	"go.chariot.build/chariot/internal/recipe"
)

// sourceFields and hostTargetFields are the field names each namespace's
// object accepts, per spec.md §4.1's required-field table. "dependencies"
// is valid for every namespace and handled separately, since its values
// are parsed as a list rather than a scalar or code block.
var (
	sourceFields = map[string]bool{
		"url": true, "type": true, "patch": true, "b2sum": true,
		"commit": true, "strap": true,
	}
	hostTargetFields = map[string]bool{
		"source": true, "configure": true, "build": true, "install": true,
	}
)

// ErrInvalidFieldValue is returned when a field's value is well-formed
// DSL syntax but not a value the field accepts, e.g. a `type` other than
// tar.gz, tar.xz, git, or local.
var ErrInvalidFieldValue = zerr.New("invalid field value")

// Parser turns one file's token stream into recipe definitions and the
// list of `@import` targets it names.
type Parser struct {
	lex  *Lexer
	file string
}

// NewParser creates a [Parser] over source, named file for error
// reporting and for resolving relative `@import` targets.
func NewParser(file, source string) *Parser {
	return &Parser{lex: NewLexer(file, source), file: file}
}

// ParseFile parses every recipe definition and `@import` directive in the
// file, in source order. It does not follow imports; see [ParseTree] for
// that.
func (p *Parser) ParseFile() (recipes []*recipe.Recipe, imports []string, err error) {
	for {
		r, ok, err := p.lex.Peek()
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return recipes, imports, nil
		}

		if r == '@' {
			path, err := p.parseImport()
			if err != nil {
				return nil, nil, err
			}
			imports = append(imports, path)
			continue
		}

		rec, err := p.parseRecipe()
		if err != nil {
			return nil, nil, err
		}
		recipes = append(recipes, rec)
	}
}

func (p *Parser) parseImport() (string, error) {
	tok, err := p.lex.Next()
	if err != nil {
		return "", err
	}
	if tok.Kind != TokDirective || tok.Text != "import" {
		return "", p.unexpected(tok, "`@import`")
	}

	target, err := p.lex.Next()
	if err != nil {
		return "", err
	}
	if target.Kind != TokString {
		return "", p.unexpected(target, "import path string")
	}
	return target.Text, nil
}

func (p *Parser) parseRecipe() (*recipe.Recipe, error) {
	nsTok, err := p.lex.Next()
	if err != nil {
		return nil, err
	}
	if nsTok.Kind != TokIdentifier {
		return nil, p.unexpected(nsTok, "namespace")
	}
	ns := recipe.Namespace(nsTok.Text)
	switch ns {
	case recipe.Source, recipe.Host, recipe.Target:
	default:
		return nil, zerr.With(ErrUnknownNamespace, "namespace", nsTok.Text)
	}

	if err := p.expectSymbol("/"); err != nil {
		return nil, err
	}

	nameTok, err := p.lex.Next()
	if err != nil {
		return nil, err
	}
	if nameTok.Kind != TokIdentifier {
		return nil, p.unexpected(nameTok, "recipe name")
	}

	if err := p.expectSymbol("{"); err != nil {
		return nil, err
	}

	fields, deps, images, err := p.parseFields()
	if err != nil {
		return nil, err
	}

	return buildRecipe(ns, nameTok.Text, fields, deps, images)
}

func (p *Parser) parseFields() (map[string]string, []recipe.DependencyEdge, []recipe.ImageDependency, error) {
	fields := make(map[string]string)
	seen := make(map[string]bool)
	var deps []recipe.DependencyEdge
	var images []recipe.ImageDependency

	for {
		r, ok, err := p.lex.Peek()
		if err != nil {
			return nil, nil, nil, err
		}
		if !ok {
			return nil, nil, nil, zerr.Wrap(ErrUnexpectedEOF, "unterminated recipe body")
		}
		if r == '}' {
			p.lex.Next()
			return fields, deps, images, nil
		}

		keyTok, err := p.lex.Next()
		if err != nil {
			return nil, nil, nil, err
		}
		if keyTok.Kind != TokIdentifier {
			return nil, nil, nil, p.unexpected(keyTok, "field name")
		}
		key := keyTok.Text

		if err := p.expectSymbol(":"); err != nil {
			return nil, nil, nil, err
		}

		if key == "dependencies" {
			d, im, err := p.parseDependencyList()
			if err != nil {
				return nil, nil, nil, err
			}
			deps = append(deps, d...)
			images = append(images, im...)
			seen[key] = true
		} else {
			if seen[key] {
				return nil, nil, nil, zerr.With(ErrDuplicateKey, "field", key)
			}
			seen[key] = true

			val, err := p.parseScalarOrCodeBlock()
			if err != nil {
				return nil, nil, nil, err
			}
			fields[key] = val
		}

		r, ok, err = p.lex.Peek()
		if err != nil {
			return nil, nil, nil, err
		}
		if ok && r == ',' {
			p.lex.Next()
		}
	}
}

func (p *Parser) parseScalarOrCodeBlock() (string, error) {
	r, ok, err := p.lex.Peek()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", zerr.Wrap(ErrUnexpectedEOF, "expected field value")
	}
	if r == '{' {
		tok, err := p.lex.NextCodeBlock()
		if err != nil {
			return "", err
		}
		return tok.Text, nil
	}

	tok, err := p.lex.Next()
	if err != nil {
		return "", err
	}
	if tok.Kind != TokString && tok.Kind != TokIdentifier {
		return "", p.unexpected(tok, "field value")
	}
	return tok.Text, nil
}

// parseDependencyList parses the `[ <dep>, ... ]` value of a "dependencies"
// field, per spec.md §4.1's dependency-token grammar. An `image/<name>`
// token becomes an [recipe.ImageDependency]; any other `<namespace>/<name>`
// token becomes a [recipe.DependencyEdge].
func (p *Parser) parseDependencyList() ([]recipe.DependencyEdge, []recipe.ImageDependency, error) {
	if err := p.expectSymbol("["); err != nil {
		return nil, nil, err
	}

	var deps []recipe.DependencyEdge
	var images []recipe.ImageDependency

	for {
		r, ok, err := p.lex.Peek()
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, nil, zerr.Wrap(ErrUnexpectedEOF, "unterminated dependency list")
		}
		if r == ']' {
			p.lex.Next()
			return deps, images, nil
		}

		runtime := false
		switch r {
		case '*':
			p.lex.Next()
			runtime = true
		case '%', '!':
			tok, _ := p.lex.Next()
			return nil, nil, zerr.With(ErrUnsupportedModifier, "modifier", tok.Text)
		}

		nsTok, err := p.lex.Next()
		if err != nil {
			return nil, nil, err
		}
		if nsTok.Kind != TokIdentifier {
			return nil, nil, p.unexpected(nsTok, "dependency reference")
		}

		if err := p.expectSymbol("/"); err != nil {
			return nil, nil, err
		}

		nameTok, err := p.lex.Next()
		if err != nil {
			return nil, nil, err
		}
		if nameTok.Kind != TokIdentifier {
			return nil, nil, p.unexpected(nameTok, "dependency name")
		}

		if nsTok.Text == "image" {
			images = append(images, recipe.ImageDependency{Name: nameTok.Text, Runtime: runtime})
		} else {
			ns := recipe.Namespace(nsTok.Text)
			switch ns {
			case recipe.Source, recipe.Host, recipe.Target:
			default:
				return nil, nil, zerr.With(ErrUnknownNamespace, "namespace", nsTok.Text)
			}
			deps = append(deps, recipe.DependencyEdge{Namespace: ns, Name: nameTok.Text, Runtime: runtime})
		}

		r, ok, err = p.lex.Peek()
		if err != nil {
			return nil, nil, err
		}
		if ok && r == ',' {
			p.lex.Next()
		}
	}
}

func (p *Parser) expectSymbol(sym string) error {
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	if tok.Kind != TokSymbol || tok.Text != sym {
		return p.unexpected(tok, "`"+sym+"`")
	}
	return nil
}

func (p *Parser) unexpected(got Token, want string) error {
	return zerr.With(zerr.With(zerr.Wrap(ErrUnexpectedToken, "expected "+want), "got", got.String()), "position", got.Pos.String())
}

// buildRecipe validates fields against the namespace's required-field
// table (spec.md §4.1) and assembles the namespace-specific payload.
func buildRecipe(ns recipe.Namespace, name string, fields map[string]string, deps []recipe.DependencyEdge, images []recipe.ImageDependency) (*recipe.Recipe, error) {
	r := &recipe.Recipe{
		Namespace:    ns,
		Name:         name,
		Dependencies: deps,
		Images:       images,
	}

	switch ns {
	case recipe.Source:
		for k := range fields {
			if !sourceFields[k] {
				return nil, zerr.With(ErrUnknownField, "field", k)
			}
		}

		kind := recipe.SourceKind(fields["type"])
		if fields["url"] == "" {
			return nil, zerr.With(ErrMissingField, "field", "url")
		}
		switch kind {
		case recipe.SourceTarGz, recipe.SourceTarXz, recipe.SourceGit, recipe.SourceLocal:
		case "":
			return nil, zerr.With(ErrMissingField, "field", "type")
		default:
			return nil, zerr.With(ErrInvalidFieldValue, "field", "type")
		}
		isTar := kind == recipe.SourceTarGz || kind == recipe.SourceTarXz
		if isTar && fields["b2sum"] == "" {
			return nil, zerr.With(ErrMissingField, "field", "b2sum")
		}
		if !isTar && fields["b2sum"] != "" {
			return nil, zerr.With(ErrForbiddenField, "field", "b2sum")
		}
		if kind == recipe.SourceGit && fields["commit"] == "" {
			return nil, zerr.With(ErrMissingField, "field", "commit")
		}
		if kind != recipe.SourceGit && fields["commit"] != "" {
			return nil, zerr.With(ErrForbiddenField, "field", "commit")
		}

		r.Source = &recipe.SourcePayload{
			Kind:   kind,
			URL:    fields["url"],
			Patch:  fields["patch"],
			B2Sum:  fields["b2sum"],
			Commit: fields["commit"],
			Strap:  fields["strap"],
		}

	case recipe.Host, recipe.Target:
		for k := range fields {
			if !hostTargetFields[k] {
				return nil, zerr.With(ErrUnknownField, "field", k)
			}
		}
		r.HostTarget = &recipe.HostTargetPayload{
			SourceName: fields["source"],
			Configure:  fields["configure"],
			Build:      fields["build"],
			Install:    fields["install"],
		}
	}

	return r, nil
}
