package expr

import (
	"fmt"
)

// parser is a recursive-descent parser for the condition language:
//
//	expr := or
//	or   := and ("or" and)*
//	and  := not ("and" not)*
//	not  := "not" not | cmp
//	cmp  := primary (("==" | "!=" | "contains" | "in" | "is" ["not"] ["defined"]) rhs)?
//
// "X contains Y" is sugar for "Y in X" and "X in [a, b]" expands to an
// equality chain, so the compiled tree only carries the core operators.
type parser struct {
	toks []token
	pos  int
}

func parse(src string) (node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, fmt.Errorf("unexpected trailing input at offset %d", tok.pos)
	}
	return root, nil
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) matchKeyword(word string) bool {
	tok := p.peek()
	if tok.kind == tokIdent && tok.text == word {
		p.pos++
		return true
	}
	return false
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.matchKeyword("or") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &orNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.matchKeyword("and") {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &andNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (node, error) {
	if p.matchKeyword("not") {
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &notNode{operand: operand}, nil
	}
	return p.parseCmp()
}

func (p *parser) parseCmp() (node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	switch tok := p.peek(); {
	case tok.kind == tokEq, tok.kind == tokNe:
		p.next()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &eqNode{left: left, right: right, negate: tok.kind == tokNe}, nil
	case tok.kind == tokIdent && tok.text == "in":
		p.next()
		return p.parseIn(left)
	case tok.kind == tokIdent && tok.text == "contains":
		p.next()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		// X contains Y reads as Y in X
		return &inNode{item: right, container: left}, nil
	case tok.kind == tokIdent && tok.text == "is":
		p.next()
		return p.parseIs(left)
	}
	return left, nil
}

// parseIn handles both membership against a value and the bracketed list
// form, which expands to an equality chain.
func (p *parser) parseIn(left node) (node, error) {
	if p.peek().kind != tokLBracket {
		container, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &inNode{item: left, container: container}, nil
	}
	p.next()
	var chain node
	for {
		item, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		eq := &eqNode{left: left, right: item}
		if chain == nil {
			chain = eq
		} else {
			chain = &orNode{left: chain, right: eq}
		}
		tok := p.next()
		if tok.kind == tokComma {
			continue
		}
		if tok.kind == tokRBracket {
			break
		}
		return nil, fmt.Errorf("expected ',' or ']' at offset %d", tok.pos)
	}
	if chain == nil {
		return nil, fmt.Errorf("empty list in membership test")
	}
	return chain, nil
}

// parseIs handles "is [not] defined" and the identity form "X is Y",
// which compares like equality.
func (p *parser) parseIs(left node) (node, error) {
	negate := p.matchKeyword("not")
	if p.matchKeyword("defined") {
		ident, ok := left.(*identNode)
		if !ok {
			return nil, fmt.Errorf("'is defined' requires an identifier")
		}
		return &definedNode{name: ident.name, negate: negate}, nil
	}
	right, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return &eqNode{left: left, right: right, negate: negate}, nil
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.next()
	switch tok.kind {
	case tokLParen:
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, fmt.Errorf("expected ')' at offset %d", closing.pos)
		}
		return inner, nil
	case tokString:
		return &litNode{value: tok.text}, nil
	case tokNumber:
		return &litNode{value: tok.num}, nil
	case tokIdent:
		switch tok.text {
		case "True":
			return &litNode{value: true}, nil
		case "False":
			return &litNode{value: false}, nil
		case "None":
			return &litNode{value: nil}, nil
		case "and", "or", "not", "in", "is", "contains":
			return nil, fmt.Errorf("unexpected keyword %q at offset %d", tok.text, tok.pos)
		}
		return &identNode{name: NormalizeName(tok.text)}, nil
	}
	return nil, fmt.Errorf("unexpected token at offset %d", tok.pos)
}
