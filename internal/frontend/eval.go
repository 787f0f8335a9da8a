package frontend

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

var errNotConstant = errors.New("not an integer constant expression")

// evaluator folds integer constant expressions. lookup resolves identifiers
// (earlier enumerators, or macro values inside #if); defined answers the
// preprocessor's defined() operator.
type evaluator struct {
	f       *sourceFile
	lookup  func(name string) (int64, error)
	defined func(name string) bool
}

func (e *evaluator) eval(n *tree_sitter.Node) (int64, error) {
	if n == nil {
		return 0, errNotConstant
	}
	switch n.Kind() {
	case "number_literal":
		return parseIntLiteral(e.f.text(n))
	case "char_literal":
		return parseCharLiteral(e.f.text(n))
	case "true":
		return 1, nil
	case "false", "null", "nullptr":
		return 0, nil
	case "identifier":
		if e.lookup == nil {
			return 0, fmt.Errorf("use of undeclared identifier %q", e.f.text(n))
		}
		return e.lookup(e.f.text(n))
	case "parenthesized_expression":
		if n.NamedChildCount() == 0 {
			return 0, errNotConstant
		}
		return e.eval(n.NamedChild(n.NamedChildCount() - 1))
	case "cast_expression":
		return e.eval(n.ChildByFieldName("value"))
	case "preproc_defined":
		if e.defined == nil || n.NamedChildCount() == 0 {
			return 0, errNotConstant
		}
		return boolInt(e.defined(e.f.text(n.NamedChild(0)))), nil
	case "unary_expression":
		return e.unary(n)
	case "binary_expression":
		return e.binary(n)
	case "conditional_expression":
		cond, err := e.eval(n.ChildByFieldName("condition"))
		if err != nil {
			return 0, err
		}
		if cond != 0 {
			return e.eval(n.ChildByFieldName("consequence"))
		}
		return e.eval(n.ChildByFieldName("alternative"))
	}
	return 0, fmt.Errorf("%s: %w", n.Kind(), errNotConstant)
}

func (e *evaluator) unary(n *tree_sitter.Node) (int64, error) {
	v, err := e.eval(n.ChildByFieldName("argument"))
	if err != nil {
		return 0, err
	}
	switch op := e.f.text(n.ChildByFieldName("operator")); op {
	case "-":
		return -v, nil
	case "+":
		return v, nil
	case "~":
		return ^v, nil
	case "!":
		return boolInt(v == 0), nil
	default:
		return 0, fmt.Errorf("unary %q: %w", op, errNotConstant)
	}
}

func (e *evaluator) binary(n *tree_sitter.Node) (int64, error) {
	op := e.f.text(n.ChildByFieldName("operator"))
	l, err := e.eval(n.ChildByFieldName("left"))
	if err != nil {
		return 0, err
	}
	// short-circuit forms must not evaluate the right side
	switch op {
	case "&&":
		if l == 0 {
			return 0, nil
		}
	case "||":
		if l != 0 {
			return 1, nil
		}
	}
	r, err := e.eval(n.ChildByFieldName("right"))
	if err != nil {
		return 0, err
	}
	switch op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/", "%":
		if r == 0 {
			return 0, errors.New("division by zero in constant expression")
		}
		if op == "/" {
			return l / r, nil
		}
		return l % r, nil
	case "<<", ">>":
		if r < 0 || r > 63 {
			return 0, fmt.Errorf("shift count %d out of range", r)
		}
		if op == "<<" {
			return l << uint(r), nil
		}
		return l >> uint(r), nil
	case "&":
		return l & r, nil
	case "|":
		return l | r, nil
	case "^":
		return l ^ r, nil
	case "&&", "||":
		return boolInt(r != 0), nil
	case "==":
		return boolInt(l == r), nil
	case "!=":
		return boolInt(l != r), nil
	case "<":
		return boolInt(l < r), nil
	case ">":
		return boolInt(l > r), nil
	case "<=":
		return boolInt(l <= r), nil
	case ">=":
		return boolInt(l >= r), nil
	}
	return 0, fmt.Errorf("binary %q: %w", op, errNotConstant)
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// parseIntLiteral parses a C integer literal, including hex, octal and
// binary forms, digit separators and u/l/z suffixes.
func parseIntLiteral(s string) (int64, error) {
	s = strings.ReplaceAll(s, "'", "")
	neg := strings.HasPrefix(s, "-")
	lower := strings.ToLower(strings.TrimLeft(s, "+-"))
	base := 10
	digits := lower
	switch {
	case strings.HasPrefix(lower, "0x"):
		base, digits = 16, lower[2:]
	case strings.HasPrefix(lower, "0b"):
		base, digits = 2, lower[2:]
	case len(lower) > 1 && lower[0] == '0':
		base, digits = 8, lower[1:]
	}
	digits = strings.TrimRight(digits, "ulz")
	if digits == "" && base == 8 {
		return 0, nil
	}
	u, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return 0, fmt.Errorf("integer literal %q: %w", s, errNotConstant)
	}
	if neg {
		return -int64(u), nil
	}
	return int64(u), nil
}

func parseCharLiteral(s string) (int64, error) {
	i := strings.IndexByte(s, '\'')
	if i < 0 || len(s) < i+3 || s[len(s)-1] != '\'' {
		return 0, fmt.Errorf("character literal %s: %w", s, errNotConstant)
	}
	body := s[i+1 : len(s)-1]
	r, _, tail, err := strconv.UnquoteChar(body, '\'')
	if err != nil || tail != "" {
		return 0, fmt.Errorf("character literal %s: %w", s, errNotConstant)
	}
	return int64(r), nil
}
