package npyformat

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Tuple is a parsed Python tuple literal.
type Tuple []any

// List is a parsed Python list literal.
type List []any

// Dict is a parsed Python dict literal with string keys.
type Dict map[string]any

var errLiteral = errors.New("malformed literal")

// ParseLiteral parses the subset of Python literal syntax that appears in
// array headers: strings, integers, True/False/None, tuples, lists and
// dicts keyed by strings.
func ParseLiteral(src string) (any, error) {
	p := &literalParser{src: src}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("trailing data %q", p.rest())
	}
	return v, nil
}

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", errLiteral, p.pos, fmt.Sprintf(format, args...))
}

func (p *literalParser) rest() string {
	const maxShown = 16
	r := p.src[p.pos:]
	if len(r) > maxShown {
		r = r[:maxShown]
	}
	return r
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *literalParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *literalParser) value() (any, error) {
	p.skipSpace()
	c := p.peek()
	switch {
	case c == 0:
		return nil, p.errorf("unexpected end of input")
	case c == '\'' || c == '"':
		return p.str()
	case (c == 'u' || c == 'b' || c == 'U' || c == 'B') && p.pos+1 < len(p.src) &&
		(p.src[p.pos+1] == '\'' || p.src[p.pos+1] == '"'):
		p.pos++
		return p.str()
	case c == '-' || c == '+' || (c >= '0' && c <= '9'):
		return p.integer()
	case c == '(':
		return p.sequence('(', ')')
	case c == '[':
		return p.sequence('[', ']')
	case c == '{':
		return p.dict()
	default:
		return p.keyword()
	}
}

func (p *literalParser) str() (string, error) {
	quote := p.src[p.pos]
	p.pos++

	var sb strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case quote:
			p.pos++
			return sb.String(), nil
		case '\\':
			if p.pos+1 >= len(p.src) {
				return "", p.errorf("unterminated escape")
			}
			p.pos++
			switch e := p.src[p.pos]; e {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '0':
				sb.WriteByte(0)
			default:
				sb.WriteByte(e)
			}
			p.pos++
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
	return "", p.errorf("unterminated string")
}

func (p *literalParser) integer() (int64, error) {
	start := p.pos
	if c := p.peek(); c == '-' || c == '+' {
		p.pos++
	}
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	text := p.src[start:p.pos]

	// Python 2 long suffix.
	if c := p.peek(); c == 'L' || c == 'l' {
		p.pos++
	}
	if c := p.peek(); c == '.' || c == 'e' || c == 'E' || c == 'j' {
		return 0, p.errorf("non-integer number")
	}

	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, p.errorf("bad integer %q", text)
	}
	return n, nil
}

func (p *literalParser) keyword() (any, error) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' {
			p.pos++
			continue
		}
		break
	}
	switch word := p.src[start:p.pos]; word {
	case "True":
		return true, nil
	case "False":
		return false, nil
	case "None":
		return nil, nil
	default:
		p.pos = start
		return nil, p.errorf("unexpected token %q", p.rest())
	}
}

// sequence parses tuples and lists. A parenthesised single item without a
// trailing comma is just that item, as in Python.
func (p *literalParser) sequence(open, closing byte) (any, error) {
	p.pos++ // open

	var items []any
	trailingComma := false
	for {
		p.skipSpace()
		if p.peek() == closing {
			p.pos++
			break
		}
		item, err := p.value()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		trailingComma = false

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
			trailingComma = true
		case closing:
		default:
			return nil, p.errorf("expected ',' or %q", closing)
		}
	}

	if open == '[' {
		return List(items), nil
	}
	if len(items) == 1 && !trailingComma {
		return items[0], nil
	}
	if items == nil {
		return Tuple{}, nil
	}
	return Tuple(items), nil
}

func (p *literalParser) dict() (Dict, error) {
	p.pos++ // {

	d := Dict{}
	for {
		p.skipSpace()
		if p.peek() == '}' {
			p.pos++
			return d, nil
		}

		key, err := p.value()
		if err != nil {
			return nil, err
		}
		k, ok := key.(string)
		if !ok {
			return nil, p.errorf("dict key %v is not a string", key)
		}

		p.skipSpace()
		if p.peek() != ':' {
			return nil, p.errorf("expected ':' after key %q", k)
		}
		p.pos++

		v, err := p.value()
		if err != nil {
			return nil, err
		}
		d[k] = v

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
		default:
			return nil, p.errorf("expected ',' or '}'")
		}
	}
}
