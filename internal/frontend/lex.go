package frontend

import (
	"bytes"

	"github.com/DeusData/cxxfacts/internal/ast"
)

// punctuators ordered longest first so the lexer takes maximal munch.
var punctuators = []string{
	"<<=", ">>=", "->*", "...", "<=>",
	"::", "->", "++", "--", "<<", ">>", "<=", ">=", "==", "!=", "&&", "||",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "##", ".*",
}

// lexTokens splits src[start:end] into C preprocessing tokens. line and col
// are the 1-based position of src[start]. Comments and backslash-newline
// continuations are dropped. Token end columns are exclusive, matching the
// extent convention of the cursor model.
func lexTokens(file string, src []byte, start, end uint, line, col int) []ast.Token {
	var out []ast.Token
	i := start
	advance := func(n uint) {
		for k := uint(0); k < n && i < end; k++ {
			if src[i] == '\n' {
				line++
				col = 1
			} else {
				col++
			}
			i++
		}
	}
	for i < end {
		c := src[i]
		switch {
		case c == '\\' && i+1 < end && (src[i+1] == '\n' || src[i+1] == '\r'):
			advance(1)
			if src[i] == '\r' && i+1 < end && src[i+1] == '\n' {
				advance(1)
			}
			advance(1)
			continue
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			advance(1)
			continue
		case c == '/' && i+1 < end && src[i+1] == '/':
			for i < end && src[i] != '\n' {
				advance(1)
			}
			continue
		case c == '/' && i+1 < end && src[i+1] == '*':
			advance(2)
			for i < end && !(src[i] == '*' && i+1 < end && src[i+1] == '/') {
				advance(1)
			}
			advance(2)
			continue
		}

		tokStart := i
		startLoc := ast.Location{File: file, Line: line, Column: col}
		switch {
		case isIdentStart(c) || isDigit(c) || (c == '.' && i+1 < end && isDigit(src[i+1])):
			// identifiers and pp-numbers share one scanner.
			number := !isIdentStart(c)
			for i < end && (isIdentPart(src[i]) || (number && src[i] == '.') ||
				(number && (src[i] == '+' || src[i] == '-') && i > tokStart && isExponent(src[i-1]))) {
				advance(1)
			}
			if i < end && (src[i] == '"' || src[i] == '\'') && isEncodingPrefix(string(src[tokStart:i])) {
				advance(quotedLen(src, i, end))
			}
		case c == '"' || c == '\'':
			advance(quotedLen(src, i, end))
		default:
			n := uint(1)
			for _, p := range punctuators {
				if bytes.HasPrefix(src[i:end], []byte(p)) {
					n = uint(len(p))
					break
				}
			}
			advance(n)
		}
		out = append(out, ast.Token{
			Spelling: string(src[tokStart:i]),
			Start:    startLoc,
			End:      ast.Location{File: file, Line: line, Column: col},
		})
	}
	return out
}

// quotedLen returns the length of the string or character literal at src[i].
func quotedLen(src []byte, i, end uint) uint {
	q := src[i]
	j := i + 1
	for j < end && src[j] != q && src[j] != '\n' {
		if src[j] == '\\' && j+1 < end {
			j++
		}
		j++
	}
	if j < end && src[j] == q {
		j++
	}
	return j - i
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isExponent(c byte) bool {
	return c == 'e' || c == 'E' || c == 'p' || c == 'P'
}

func isEncodingPrefix(s string) bool {
	switch s {
	case "L", "u", "U", "u8", "R", "LR", "uR", "UR", "u8R":
		return true
	}
	return false
}
