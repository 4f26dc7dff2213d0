package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokComma
	tokEq
	tokNe
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

// isWordChar reports whether r may appear inside an identifier. Source
// identifiers carry dots and hyphens (q3.1-a); normalisation happens when
// the parser binds the reference, not here.
func isWordChar(r rune) bool {
	return r == '_' || r == '.' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isWordStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// lex splits a condition into tokens. Structural problems (unterminated
// strings, stray characters) are reported with their byte offset.
func lex(src string) ([]token, error) {
	toks := make([]token, 0, 16)
	runes := []rune(src)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			toks = append(toks, token{kind: tokLParen, pos: i})
			i++
		case r == ')':
			toks = append(toks, token{kind: tokRParen, pos: i})
			i++
		case r == '[':
			toks = append(toks, token{kind: tokLBracket, pos: i})
			i++
		case r == ']':
			toks = append(toks, token{kind: tokRBracket, pos: i})
			i++
		case r == ',':
			toks = append(toks, token{kind: tokComma, pos: i})
			i++
		case r == '=':
			if i+1 < len(runes) && runes[i+1] == '=' {
				toks = append(toks, token{kind: tokEq, pos: i})
				i += 2
			} else {
				return nil, fmt.Errorf("unexpected '=' at offset %d", i)
			}
		case r == '!':
			if i+1 < len(runes) && runes[i+1] == '=' {
				toks = append(toks, token{kind: tokNe, pos: i})
				i += 2
			} else {
				return nil, fmt.Errorf("unexpected '!' at offset %d", i)
			}
		case r == '-':
			j := i + 1
			for j < len(runes) && isWordChar(runes[j]) {
				j++
			}
			word := string(runes[i+1 : j])
			num, ok := parseNumber(word)
			if !ok {
				return nil, fmt.Errorf("unexpected '-' at offset %d", i)
			}
			toks = append(toks, token{kind: tokNumber, text: "-" + word, num: -num, pos: i})
			i = j
		case r == '\'' || r == '"':
			quote := r
			j := i + 1
			for j < len(runes) && runes[j] != quote {
				j++
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("unterminated string at offset %d", i)
			}
			toks = append(toks, token{kind: tokString, text: string(runes[i+1 : j]), pos: i})
			i = j + 1
		case isWordStart(r):
			j := i
			for j < len(runes) && isWordChar(runes[j]) {
				j++
			}
			word := string(runes[i:j])
			if num, ok := parseNumber(word); ok {
				toks = append(toks, token{kind: tokNumber, text: word, num: num, pos: i})
			} else {
				toks = append(toks, token{kind: tokIdent, text: word, pos: i})
			}
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d", r, i)
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(runes)})
	return toks, nil
}

// parseNumber treats a word as a numeric literal only when it is made of
// digits and at most one dot; anything else (q3.1-a) stays an identifier.
func parseNumber(word string) (float64, bool) {
	if word == "" || !unicode.IsDigit(rune(word[0])) {
		return 0, false
	}
	if strings.Count(word, ".") > 1 || strings.ContainsAny(word, "-_") {
		return 0, false
	}
	for _, r := range word {
		if r != '.' && !unicode.IsDigit(r) {
			return 0, false
		}
	}
	num, err := strconv.ParseFloat(word, 64)
	if err != nil {
		return 0, false
	}
	return num, true
}
