package karpql

import (
	"strings"

	"github.com/sprakbanken/karp-s/internal/apperr"
)

// Parse parses a query expression into its predicate tree. A missing or
// blank input yields the empty "and" query with no clauses, matching the
// convention used when a caller omits the q parameter entirely.
func Parse(src string) (*Query, error) {
	if strings.TrimSpace(src) == "" {
		return Empty(), nil
	}
	p := &parser{src: src}
	q, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, apperr.NewUser("unexpected trailing input at position %d: %q", p.pos, p.rest())
	}
	return q, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) atEnd() bool  { return p.pos >= len(p.src) }
func (p *parser) rest() string { return p.src[p.pos:] }

func (p *parser) peekByte() byte {
	if p.atEnd() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) parseQuery() (*Query, error) {
	if p.startsWithBoolOp() {
		return p.parseBoolGroup()
	}
	sq, err := p.parseSubQuery(false)
	if err != nil {
		return nil, err
	}
	return &Query{Op: And, Clauses: []SubQuery{*sq}}, nil
}

func (p *parser) startsWithBoolOp() bool {
	rest := p.rest()
	return strings.HasPrefix(rest, string(And)+"(") || strings.HasPrefix(rest, string(Or)+"(")
}

func (p *parser) parseBoolGroup() (*Query, error) {
	var op BoolOp
	switch {
	case strings.HasPrefix(p.rest(), string(And)+"("):
		op = And
		p.pos += len(And)
	case strings.HasPrefix(p.rest(), string(Or)+"("):
		op = Or
		p.pos += len(Or)
	default:
		return nil, apperr.NewUser("expected boolean operator \"and\" or \"or\" at position %d", p.pos)
	}

	if p.peekByte() != '(' {
		return nil, apperr.NewUser("expected '(' after boolean operator at position %d", p.pos)
	}
	p.pos++ // consume '('

	var clauses []SubQuery
	for {
		sq, err := p.parseSubQuery(true)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, *sq)

		if strings.HasPrefix(p.rest(), "||") {
			p.pos += 2
			continue
		}
		break
	}

	if p.peekByte() != ')' {
		return nil, apperr.NewUser("expected ')' to close boolean group at position %d", p.pos)
	}
	p.pos++ // consume ')'

	return &Query{Op: op, Clauses: clauses}, nil
}

// parseSubQuery reads "op|field|value". When inGroup is true, the value
// runs up to the next unescaped "||" clause separator or the group's
// closing ")"; otherwise it runs to the end of input. Outside a group a
// doubled "|" in a value is read as one literal "|". Inside a group every
// "||" is taken as the clause separator, so a doubled pipe cannot be used
// as an escape there.
func (p *parser) parseSubQuery(inGroup bool) (*SubQuery, error) {
	op, err := p.parseToken("operator")
	if err != nil {
		return nil, err
	}
	if !validOps[Op(op)] {
		return nil, apperr.NewUser("unknown operator %q", op)
	}
	if err := p.expectPipe(); err != nil {
		return nil, err
	}

	field, err := p.parseToken("field")
	if err != nil {
		return nil, err
	}
	if err := p.expectPipe(); err != nil {
		return nil, err
	}

	value := p.parseValue(inGroup)

	return &SubQuery{Op: Op(op), Field: field, Value: value}, nil
}

func (p *parser) parseToken(what string) (string, error) {
	start := p.pos
	for !p.atEnd() && p.peekByte() != '|' {
		p.pos++
	}
	if p.pos == start {
		return "", apperr.NewUser("expected %s at position %d", what, start)
	}
	return p.src[start:p.pos], nil
}

func (p *parser) expectPipe() error {
	if p.atEnd() || p.peekByte() != '|' {
		return apperr.NewUser("expected '|' at position %d", p.pos)
	}
	p.pos++
	return nil
}

func (p *parser) parseValue(inGroup bool) string {
	var b strings.Builder
	for !p.atEnd() {
		if p.peekByte() == '|' {
			if strings.HasPrefix(p.rest(), "||") {
				if inGroup {
					break
				}
				b.WriteByte('|')
				p.pos += 2
				continue
			}
			b.WriteByte('|')
			p.pos++
			continue
		}
		if inGroup && p.peekByte() == ')' {
			break
		}
		b.WriteByte(p.peekByte())
		p.pos++
	}
	return b.String()
}
