package script

import (
	"errors"
	"fmt"
	"iter"
	"strings"
	"unicode/utf8"
)

// ErrUnterminatedQuote is returned for a line that ends inside quotes.
var ErrUnterminatedQuote = errors.New("unterminated quote")

// Token is one word of a script line. Col is the 1-based rune column the
// word starts at.
type Token struct {
	Text   string
	Col    int
	Quoted bool
}

// Split breaks a script line into words. Words are separated by spaces or
// tabs. Single quotes keep their content literally; double quotes allow
// backslash escapes of `"` and `\`. Outside quotes a backslash escapes any
// rune, and a `#` at the start of a word comments out the rest of the line.
// Quotes may open mid-word, as in label="two words".
func Split(line string) ([]Token, error) {
	var out []Token
	for tok, err := range tokens(line) {
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
	}
	return out, nil
}

func tokens(line string) iter.Seq2[Token, error] {
	return func(yield func(Token, error) bool) {
		var (
			buf     strings.Builder
			col     int
			start   = -1
			quote   rune
			quoted  bool
			escaped bool
		)
		flush := func() bool {
			if start < 0 {
				return true
			}
			tok := Token{Text: buf.String(), Col: start, Quoted: quoted}
			buf.Reset()
			start, quoted = -1, false
			return yield(tok, nil)
		}

		for i := 0; i < len(line); {
			r, size := utf8.DecodeRuneInString(line[i:])
			i += size
			col++

			switch {
			case escaped:
				if quote == '"' && r != '"' && r != '\\' {
					buf.WriteRune('\\')
				}
				buf.WriteRune(r)
				escaped = false
			case quote == '\'':
				if r == '\'' {
					quote = 0
				} else {
					buf.WriteRune(r)
				}
			case quote == '"':
				switch r {
				case '"':
					quote = 0
				case '\\':
					escaped = true
				default:
					buf.WriteRune(r)
				}
			case r == ' ' || r == '\t' || r == '\r' || r == '\n':
				if !flush() {
					return
				}
			case r == '#' && start < 0:
				return
			default:
				if start < 0 {
					start = col
				}
				switch r {
				case '\\':
					escaped = true
				case '\'', '"':
					quote, quoted = r, true
				default:
					buf.WriteRune(r)
				}
			}
		}
		switch {
		case quote != 0:
			yield(Token{}, fmt.Errorf("%w at column %d", ErrUnterminatedQuote, start))
			return
		case escaped:
			yield(Token{}, fmt.Errorf("trailing backslash at column %d", col))
			return
		}
		flush()
	}
}
