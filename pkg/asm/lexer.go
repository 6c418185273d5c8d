package asm

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokNum
	tokStr
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

func (t token) String() string {
	if t.kind == tokStr {
		return strconv.Quote(t.text)
	}
	return t.text
}

// tokenize splits one source line into tokens, dropping the comment.
func tokenize(line string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == ';':
			return toks, nil
		case c == '"':
			s, n, err := readString(line[i:])
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokStr, text: s})
			i += n
		default:
			j := i
			for j < len(line) && !strings.ContainsRune(" \t\r;\"", rune(line[j])) {
				j++
			}
			word := line[i:j]
			if f, ok := parseNumber(word); ok {
				toks = append(toks, token{kind: tokNum, text: word, num: f})
			} else {
				toks = append(toks, token{kind: tokWord, text: word})
			}
			i = j
		}
	}
	return toks, nil
}

func parseNumber(word string) (float64, bool) {
	c := word[0]
	if !(c >= '0' && c <= '9') && !((c == '-' || c == '+' || c == '.') && len(word) > 1) {
		return 0, false
	}
	clean := strings.ReplaceAll(word, "_", "")
	sign := 1.0
	body := clean
	if body[0] == '-' || body[0] == '+' {
		if body[0] == '-' {
			sign = -1
		}
		body = body[1:]
	}
	if len(body) > 2 && body[0] == '0' {
		base := 0
		switch body[1] {
		case 'x':
			base = 16
		case 'c':
			base = 8
		case 'b':
			base = 2
		}
		if base != 0 {
			n, err := strconv.ParseUint(body[2:], base, 64)
			if err != nil {
				return 0, false
			}
			return sign * float64(n), true
		}
	}
	f, err := strconv.ParseFloat(body, 64)
	if err != nil {
		return 0, false
	}
	return sign * f, true
}

// readString reads a double-quoted literal at the start of s and returns
// its value and the number of bytes consumed.
func readString(s string) (string, int, error) {
	var sb strings.Builder
	for i := 1; i < len(s); i++ {
		c := s[i]
		if c == '"' {
			return sb.String(), i + 1, nil
		}
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			break
		}
		switch s[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '0':
			sb.WriteByte(0)
		case '\\', '"', '\'':
			sb.WriteByte(s[i])
		case 'x':
			if i+2 >= len(s) {
				return "", 0, fmt.Errorf("bad \\x escape")
			}
			n, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
			if err != nil {
				return "", 0, fmt.Errorf("bad \\x escape %q", s[i+1:i+3])
			}
			sb.WriteByte(byte(n))
			i += 2
		default:
			return "", 0, fmt.Errorf("unknown escape \\%c", s[i])
		}
	}
	return "", 0, fmt.Errorf("unterminated string")
}
