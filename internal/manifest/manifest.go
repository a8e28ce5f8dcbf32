// Package manifest reads the dependency declaration out of a package's
// build-description file.
//
// Only a small part of the file matters: the first PACKAGE(...) block and,
// inside it, the identities listed after DEPENDS:
//
//	PACKAGE(
//	    NAME    Arieo-Core
//	    VERSION 1.4.0
//	    DEPENDS https://host/Org/Arieo-BuildEnv.git@main
//	            ../third_party
//	    SOURCES src/*.cpp
//	)
//
// A file without the block, or a block without DEPENDS, declares no
// dependencies.
package manifest

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/danieljhkim/pkgstage/internal/fsops"
)

// FileName is the build-description file expected at a package's root.
const FileName = "package.cmake"

// blockKeyword introduces the package declaration block.
const blockKeyword = "PACKAGE"

const dependsKeyword = "DEPENDS"

// terminators end the DEPENDS list.
var terminators = map[string]bool{
	"NAME":             true,
	"VERSION":          true,
	"DESCRIPTION":      true,
	"SOURCES":          true,
	"INCLUDES":         true,
	"LIBRARIES":        true,
	"OPTIONS":          true,
	"BUILD_COMMANDS":   true,
	"INSTALL_COMMANDS": true,
}

// Manifest is the subset of a build-description file pkgstage understands.
type Manifest struct {
	// Name and Version come from the single-value NAME and VERSION keywords.
	Name    string
	Version string

	// Depends holds raw dependency identities in declaration order.
	Depends []string

	// Path is the file the manifest was read from, empty when parsed from bytes.
	Path string
}

// Path returns the manifest location for a package directory.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// ReadFile reads and parses the manifest in dir.
func ReadFile(fs fsops.FS, dir string) (*Manifest, error) {
	path := Path(dir)
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Path = path
	return m, nil
}

type scanState int

const (
	stateSeeking scanState = iota
	stateInDepends
	stateDone
)

// Parse extracts the package declaration from a build-description file.
func Parse(src []byte) (*Manifest, error) {
	body, found, err := packageBlock(stripComments(string(src)))
	if err != nil {
		return nil, err
	}
	m := &Manifest{}
	if !found {
		return m, nil
	}

	tokens := tokenize(body)
	state := stateSeeking
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.bare && (tok.text == "NAME" || tok.text == "VERSION") && i+1 < len(tokens) && isValue(tokens[i+1]) {
			if tok.text == "NAME" {
				m.Name = tokens[i+1].text
			} else {
				m.Version = tokens[i+1].text
			}
		}

		switch state {
		case stateSeeking:
			if tok.bare && tok.text == dependsKeyword {
				state = stateInDepends
			}
		case stateInDepends:
			if tok.bare && (terminators[tok.text] || tok.text == dependsKeyword) {
				state = stateDone
				continue
			}
			if tok.text != "" {
				m.Depends = append(m.Depends, tok.text)
			}
		case stateDone:
		}
	}
	return m, nil
}

// packageBlock returns the text between PACKAGE( and its balanced ')'.
func packageBlock(src string) (string, bool, error) {
	for start := 0; start+len(blockKeyword) <= len(src); start++ {
		if !strings.EqualFold(src[start:start+len(blockKeyword)], blockKeyword) {
			continue
		}
		from := start + len(blockKeyword)

		// Reject matches inside a longer identifier such as MY_PACKAGE(.
		if start > 0 && isIdentRune(rune(src[start-1])) {
			continue
		}
		open := from
		for open < len(src) && (src[open] == ' ' || src[open] == '\t') {
			open++
		}
		if open >= len(src) || src[open] != '(' {
			continue
		}

		depth := 0
		inQuote := false
		for i := open; i < len(src); i++ {
			switch c := src[i]; {
			case c == '"':
				inQuote = !inQuote
			case inQuote:
			case c == '(':
				depth++
			case c == ')':
				depth--
				if depth == 0 {
					return src[open+1 : i], true, nil
				}
			}
		}
		return "", false, fmt.Errorf("unterminated %s( block", blockKeyword)
	}
	return "", false, nil
}

// stripComments removes '#' comments outside double quotes.
func stripComments(src string) string {
	var b strings.Builder
	b.Grow(len(src))
	inQuote, inComment := false, false
	for _, r := range src {
		switch {
		case inComment:
			if r == '\n' {
				inComment = false
				b.WriteRune(r)
			}
		case r == '"':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '#' && !inQuote:
			inComment = true
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

type token struct {
	text string

	// bare is false for quoted tokens, which never act as keywords.
	bare bool
}

func tokenize(body string) []token {
	var out []token
	var cur strings.Builder
	inQuote := false

	flush := func(bare bool) {
		if cur.Len() > 0 || !bare {
			out = append(out, token{text: cur.String(), bare: bare})
		}
		cur.Reset()
	}

	for _, r := range body {
		switch {
		case r == '"':
			if inQuote {
				flush(false)
			} else {
				flush(true)
			}
			inQuote = !inQuote
		case inQuote:
			cur.WriteRune(r)
		case unicode.IsSpace(r):
			flush(true)
		default:
			cur.WriteRune(r)
		}
	}
	flush(true)
	return out
}

// isValue reports whether tok can be the value of a single-value keyword.
func isValue(tok token) bool {
	if tok.text == "" {
		return false
	}
	return !tok.bare || !(terminators[tok.text] || tok.text == dependsKeyword)
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
