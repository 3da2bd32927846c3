package scriptlang

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"
)

const (
	TOKEN_WORD = iota
	TOKEN_NUMBER
	TOKEN_STRING
	TOKEN_NEWLINE
	TOKEN_COMMENT
)

var lexer *lexmachine.Lexer

func init() {
	lexer = lexmachine.NewLexer()
	lexer.Add([]byte(`[a-zA-Z_][a-zA-Z0-9_]*`), getToken(TOKEN_WORD))
	lexer.Add([]byte(`[\+\-]?[0-9]*\.?[0-9]+`), getToken(TOKEN_NUMBER))
	lexer.Add([]byte(`(\n|\r|\n\r)+`), getToken(TOKEN_NEWLINE))
	lexer.Add([]byte(`//[^\n]*`), getToken(TOKEN_COMMENT))
	lexer.Add([]byte(`( |\t)+`), skip)
	lexer.Add([]byte(`"(\\.|[^"])*"`), getToken(TOKEN_STRING))
	if err := lexer.Compile(); err != nil {
		panic(err)
	}
}

func getToken(tokenType int) lexmachine.Action {
	return func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		return s.Token(tokenType, string(m.Bytes), m), nil
	}
}

func skip(scan *lexmachine.Scanner, match *machines.Match) (interface{}, error) {
	return nil, nil
}

// ParseScript splits text into commands, one per line.
// First word of line is command name, rest are arguments.
func ParseScript(text []byte) ([]*Command, error) {
	scanner, err := lexer.Scanner(text)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to create lexer scanner")
	}

	result := make([]*Command, 0, 16)

	var current *Command
	for Itok, err, eos := scanner.Next(); !eos; Itok, err, eos = scanner.Next() {
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to parse token")
		}
		tok := Itok.(*lexmachine.Token)

		switch tok.Type {
		case TOKEN_WORD:
			if current == nil {
				current = &Command{Name: strings.ToLower(string(tok.Lexeme)), Line: tok.StartLine}
				result = append(result, current)
			} else {
				current.Args = append(current.Args, Word(tok.Lexeme))
			}
		case TOKEN_NUMBER:
			if current == nil {
				return nil, errors.Errorf("Missed command on line %v (%q)", tok.StartLine, tok.Lexeme)
			}
			if integer, err := strconv.ParseInt(string(tok.Lexeme), 10, 0); err == nil {
				current.Args = append(current.Args, int(integer))
			} else if float, err := strconv.ParseFloat(string(tok.Lexeme), 64); err == nil {
				current.Args = append(current.Args, float)
			} else {
				return nil, errors.Errorf("Unknown number format on line %v (%q)", tok.StartLine, tok.Lexeme)
			}
		case TOKEN_STRING:
			if current == nil {
				return nil, errors.Errorf("Missed command on line %v (%q)", tok.StartLine, tok.Lexeme)
			}
			if s, err := strconv.Unquote(string(tok.Lexeme)); err != nil {
				return nil, errors.Errorf("Unknown string format on line %v (%q)", tok.StartLine, tok.Lexeme)
			} else {
				current.Args = append(current.Args, s)
			}
		case TOKEN_NEWLINE:
			current = nil
		case TOKEN_COMMENT:
			if current != nil {
				current.Comment = strings.TrimSpace(string(tok.Lexeme[2:]))
			}
		}
	}

	return result, nil
}
