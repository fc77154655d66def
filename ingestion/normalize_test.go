package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"entities", "Fees &amp; charges &lt;2025&gt;", "Fees & charges <2025>"},
		{"double escaped entities", "Fees &amp;lt;br&amp;gt; due", "Fees <br> due"},
		{"triple escaped ampersand", "A &amp;amp;amp; B", "A & B"},
		{"escaped line breaks collapse", "one&#10;&#10;&#10;two", "one\ntwo"},
		{"blank lines collapse", "one\n\n\ntwo", "one\ntwo"},
		{"crlf blank lines collapse", "one\r\n\r\ntwo", "one\ntwo"},
		{"single newline kept", "one\ntwo", "one\ntwo"},
		{"trim", "  \n hello \n\n ", "hello"},
		{"nbsp only", "&nbsp;", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Admission &amp; fees\n\n\nApply online.\r\n\r\nDeadline: June.",
		"  plain text  ",
		"line\nline\n\nline",
		"Fees &amp;lt;br&amp;gt; due",
		"&amp;amp;nbsp;Tuition&amp;#10;&amp;#10;Due",
		"  &amp;lt;&amp;lt; \r\n\r\n &amp;",
	}
	for _, input := range inputs {
		once := Normalize(input)
		assert.Equal(t, once, Normalize(once))
	}
}
