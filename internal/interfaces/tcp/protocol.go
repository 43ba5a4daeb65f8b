// Package tcp serves the annotation pipeline over a raw socket.  A request
// is the document text followed by a line holding only EndOfDocument; the
// response is the annotated document, after which the server closes the
// connection.
package tcp

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/turtacn/Opinion-Intelligence/internal/application/annotation"
)

const (
	// EndOfDocument terminates a request.  It is not part of the payload.
	EndOfDocument = "<ENDOFDOCUMENT>"
	// closingTag also terminates a request and stays in the payload.
	// Deprecated: clients should send EndOfDocument.
	closingTag = "</NAF>"
)

// Error responses, sent instead of a document.
const (
	MsgBadlyFormatted = "\n-> ERROR: Badly formatted NAF document!!\n"
	MsgNotUTF8        = "\n-> ERROR: UTF-8 not supported!!\n"
	MsgInputIncorrect = "\n -> ERROR: Input data not correct!!\n"
)

// ReadRequest reads one framed request.  Lines keep their newline; a
// trailing carriage return is ignored when matching a terminator.  EOF
// before any terminator ends the request with what was read.
func ReadRequest(r *bufio.Reader) ([]byte, error) {
	var buf bytes.Buffer
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			trimmed := strings.TrimRight(line, "\r\n")
			switch trimmed {
			case EndOfDocument:
				return buf.Bytes(), nil
			case closingTag:
				buf.WriteString(line)
				skipBufferedSentinel(r)
				return buf.Bytes(), nil
			}
			buf.WriteString(line)
		}
		if err == io.EOF {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// skipBufferedSentinel consumes an EndOfDocument line that arrived together
// with a closing tag, so the server does not close a socket with unread
// input.
func skipBufferedSentinel(r *bufio.Reader) {
	n := r.Buffered()
	if n < len(EndOfDocument) {
		return
	}
	peek, err := r.Peek(n)
	if err != nil {
		return
	}
	line := peek
	if i := bytes.IndexByte(peek, '\n'); i >= 0 {
		line = peek[:i+1]
	}
	if strings.TrimRight(string(line), "\r\n") == EndOfDocument {
		_, _ = r.Discard(len(line))
	}
}

// WriteRequest frames payload for the server.
func WriteRequest(w io.Writer, payload []byte) error {
	if _, err := w.Write(payload); err != nil {
		return err
	}
	if len(payload) > 0 && payload[len(payload)-1] != '\n' {
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, EndOfDocument+"\n")
	return err
}

// ErrorMessage returns the text sent back for a failed request.
func ErrorMessage(err error) string {
	switch annotation.Classify(err) {
	case annotation.FailureParse:
		return MsgBadlyFormatted
	case annotation.FailureEncoding:
		return MsgNotUTF8
	default:
		return MsgInputIncorrect
	}
}
