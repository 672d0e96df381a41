package tool_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/scholar/pkg/tool"
)

func TestRouteSaveMemory(t *testing.T) {
	d, err := tool.Route("TOOL:save_memory\n---\ntopic=Foo\nsummary=Bar")
	gt.NoError(t, err)
	gt.NotNil(t, d)
	gt.Equal(t, d.Tool, "save_memory")
	gt.Equal(t, d.Args, map[string]string{"topic": "Foo", "summary": "Bar"})
}

func TestRoutePlainText(t *testing.T) {
	d, err := tool.Route("Just a report")
	gt.NoError(t, err)
	gt.Nil(t, d)
}

func TestRoute(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		tool     string
		args     map[string]string
		wantLine int
	}{
		{
			name:  "no args",
			input: "TOOL:calculator",
			tool:  "calculator",
			args:  map[string]string{},
		},
		{
			name:  "header line is ignored even if it looks like an arg",
			input: "TOOL:calculator\nexpression=1+1\nexpression=2+2",
			tool:  "calculator",
			args:  map[string]string{"expression": "2+2"},
		},
		{
			name:  "first equals splits",
			input: "TOOL:calculator\n---\nexpression=a=b",
			tool:  "calculator",
			args:  map[string]string{"expression": "a=b"},
		},
		{
			name:  "surrounding whitespace trimmed",
			input: "TOOL:  write_file  \r\n---\r\n filename = notes.md \r\ncontent=x\r\n",
			tool:  "write_file",
			args:  map[string]string{"filename": "notes.md", "content": "x"},
		},
		{
			name:  "escapes",
			input: "TOOL:write_file\n---\ncontent=line1\\nline2\\t\\\\\\=",
			tool:  "write_file",
			args:  map[string]string{"content": "line1\nline2\t\\="},
		},
		{
			name:  "escaped equals in key",
			input: "TOOL:x\n---\na\\=b=c",
			tool:  "x",
			args:  map[string]string{"a=b": "c"},
		},
		{
			name:  "blank lines skipped",
			input: "TOOL:save_memory\n---\n\ntopic=Foo\n   \nsummary=Bar\n",
			tool:  "save_memory",
			args:  map[string]string{"topic": "Foo", "summary": "Bar"},
		},
		{
			name:  "empty value allowed",
			input: "TOOL:write_file\n---\ncontent=",
			tool:  "write_file",
			args:  map[string]string{"content": ""},
		},
		{name: "empty tool name", input: "TOOL:\n---\na=b", wantLine: 1},
		{name: "invalid tool name", input: "TOOL:save memory\n---", wantLine: 1},
		{name: "line without equals", input: "TOOL:save_memory\n---\ntopic=Foo\nsummary Bar", wantLine: 4},
		{name: "empty key", input: "TOOL:save_memory\n---\n=Bar", wantLine: 3},
		{name: "unknown escape", input: "TOOL:write_file\n---\ncontent=C:\\path", wantLine: 3},
		{name: "dangling escape", input: "TOOL:write_file\n---\ncontent=abc\\", wantLine: 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := tool.Route(tc.input)
			if tc.wantLine > 0 {
				gt.Error(t, err)
				gt.True(t, errors.Is(err, tool.ErrMalformedDirective))

				var perr *tool.ParseError
				gt.True(t, errors.As(err, &perr))
				gt.Equal(t, perr.Line, tc.wantLine)
				return
			}

			gt.NoError(t, err)
			gt.Equal(t, d.Tool, tc.tool)
			gt.Equal(t, d.Args, tc.args)
		})
	}
}

func TestRoutePrefixMustBeAtStart(t *testing.T) {
	d, err := tool.Route(" TOOL:save_memory\n---\ntopic=Foo")
	gt.NoError(t, err)
	gt.Nil(t, d)
}

func TestEscapeValueRoundTrip(t *testing.T) {
	values := []string{
		"plain",
		"multi\nline\treport with a=b and C:\\dir",
		"# Title\n\n- bullet",
	}

	for _, v := range values {
		d, err := tool.Route("TOOL:write_file\n---\ncontent=" + tool.EscapeValue(v))
		gt.NoError(t, err)
		gt.Equal(t, d.Args["content"], v)
	}
}
