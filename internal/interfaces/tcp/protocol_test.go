package tcp

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

func TestReadRequest(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		rest string
	}{
		{"sentinel ends request", "line1\nline2\nline3\n<ENDOFDOCUMENT>\nignored\n", "line1\nline2\nline3\n", "ignored\n"},
		{"closing tag kept", "<NAF>\n</NAF>\nafter\n", "<NAF>\n</NAF>\n", "after\n"},
		{"sentinel after closing tag is consumed", "<NAF>\n</NAF>\n<ENDOFDOCUMENT>\n", "<NAF>\n</NAF>\n", ""},
		{"crlf terminator", "a\r\n<ENDOFDOCUMENT>\r\n", "a\r\n", ""},
		{"eof without sentinel", "a\nb", "a\nb", ""},
		{"empty", "", "", ""},
		{"sentinel must be the whole line", "x <ENDOFDOCUMENT>\n<ENDOFDOCUMENT>\n", "x <ENDOFDOCUMENT>\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bufio.NewReader(strings.NewReader(tt.in))
			got, err := ReadRequest(r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))

			var rest bytes.Buffer
			_, _ = rest.ReadFrom(r)
			assert.Equal(t, tt.rest, rest.String())
		})
	}
}

func TestWriteRequest(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRequest(&buf, []byte("a\nb")))
	assert.Equal(t, "a\nb\n<ENDOFDOCUMENT>\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteRequest(&buf, []byte("a\n")))
	assert.Equal(t, "a\n<ENDOFDOCUMENT>\n", buf.String())

	got, err := ReadRequest(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, "a\n", string(got))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, MsgBadlyFormatted, ErrorMessage(errors.New(errors.ErrCodeDocumentMalformed, "x")))
	assert.Equal(t, MsgBadlyFormatted, ErrorMessage(errors.New(errors.ErrCodeDocumentEmpty, "x")))
	assert.Equal(t, MsgNotUTF8, ErrorMessage(errors.New(errors.ErrCodeDocumentEncoding, "x")))
	assert.Equal(t, MsgInputIncorrect, ErrorMessage(errors.New(errors.ErrCodeClassifierFailed, "x")))
	assert.Equal(t, MsgInputIncorrect, ErrorMessage(errors.New(errors.ErrCodeLanguageMismatch, "x")))
}
