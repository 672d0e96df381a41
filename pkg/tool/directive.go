package tool

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/scholar/pkg/model"
)

// DirectivePrefix marks LLM output that asks for a tool call
const DirectivePrefix = "TOOL:"

var (
	ErrMalformedDirective = goerr.New("malformed tool directive")

	toolNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

// ParseError describes why a directive line could not be parsed. Line is 1-based.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: line %d: %s", ErrMalformedDirective.Error(), e.Line, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return ErrMalformedDirective
}

// Route extracts a tool directive from LLM output.
//
// A directive starts with "TOOL:<name>" on the first line. The second line is a header and is
// ignored. Every following non-blank line is "key=value", split at the first unescaped '='.
// Keys and values are trimmed and may use the escapes \n, \t, \\ and \=. A repeated key keeps
// its last value.
//
// Text without the prefix is a plain report: Route returns nil and no error.
func Route(text string) (*model.Directive, error) {
	if !strings.HasPrefix(text, DirectivePrefix) {
		return nil, nil
	}

	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}

	name := strings.TrimSpace(strings.TrimPrefix(lines[0], DirectivePrefix))
	if name == "" {
		return nil, &ParseError{Line: 1, Reason: "tool name is empty"}
	}
	if !toolNamePattern.MatchString(name) {
		return nil, &ParseError{Line: 1, Reason: fmt.Sprintf("invalid tool name %q", name)}
	}

	directive := &model.Directive{
		Tool: name,
		Args: make(map[string]string),
	}

	for i := 2; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			continue
		}

		key, value, err := parseArg(line)
		if err != nil {
			return nil, &ParseError{Line: i + 1, Reason: err.Error()}
		}
		directive.Args[key] = value
	}

	return directive, nil
}

func parseArg(line string) (string, string, error) {
	var key, value strings.Builder
	cur := &key
	split := false

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\\':
			if i+1 >= len(runes) {
				return "", "", goerr.New("dangling escape at end of line")
			}
			i++
			switch runes[i] {
			case 'n':
				cur.WriteRune('\n')
			case 't':
				cur.WriteRune('\t')
			case '\\':
				cur.WriteRune('\\')
			case '=':
				cur.WriteRune('=')
			default:
				return "", "", goerr.New(fmt.Sprintf("unknown escape \\%c", runes[i]))
			}
		case r == '=' && !split:
			split = true
			cur = &value
		default:
			cur.WriteRune(r)
		}
	}

	if !split {
		return "", "", goerr.New("expected key=value")
	}

	k := strings.TrimSpace(key.String())
	if k == "" {
		return "", "", goerr.New("empty key")
	}

	return k, strings.TrimSpace(value.String()), nil
}

// EscapeValue escapes s so that Route reads it back unchanged as a value
func EscapeValue(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\t", `\t`, "=", `\=`)
	return r.Replace(s)
}
