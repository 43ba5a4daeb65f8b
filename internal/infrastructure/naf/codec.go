package naf

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

const xmlDeclaration = `<?xml version="1.0" encoding="UTF-8" standalone="no"?>` + "\n"

// Decode parses a NAF document.  Payloads that are not UTF-8, or that
// declare another encoding, fail with ErrCodeDocumentEncoding; anything
// that is not well-formed NAF fails with ErrCodeDocumentMalformed.
func Decode(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New(errors.ErrCodeDocumentEmpty, "empty NAF document")
	}
	if !utf8.Valid(data) {
		return nil, errors.New(errors.ErrCodeDocumentEncoding, "NAF document is not valid UTF-8")
	}

	var foreign string
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		if strings.EqualFold(label, "utf8") {
			return input, nil
		}
		foreign = label
		return nil, fmt.Errorf("unsupported charset %q", label)
	}

	doc := &Document{}
	if err := dec.Decode(doc); err != nil {
		if foreign != "" {
			return nil, errors.Newf(errors.ErrCodeDocumentEncoding, "unsupported document encoding %q", foreign)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDocumentMalformed, "badly formatted NAF document")
	}
	if doc.Lang == "" {
		doc.Lang = unprefixedLang(doc)
	}
	return doc, nil
}

// DecodeReader reads r to the end and decodes it.
func DecodeReader(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDocumentMalformed, "failed to read NAF document")
	}
	return Decode(data)
}

// Encode serializes doc with an XML declaration and two-space indentation.
func Encode(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, errors.New(errors.ErrCodeSerializationFailed, "nil NAF document")
	}
	sanitizeComments(doc)

	var buf bytes.Buffer
	buf.WriteString(xmlDeclaration)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerializationFailed, "failed to encode NAF document")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerializationFailed, "failed to flush NAF document")
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// unprefixedLang accepts lang="xx" on the root from producers that drop the
// xml: prefix; the attribute is moved out of the passthrough set.
func unprefixedLang(doc *Document) string {
	for i, a := range doc.Attrs {
		if a.Name.Local == "lang" && (a.Name.Space == "" || a.Name.Space == xmlNamespace) {
			doc.Attrs = append(doc.Attrs[:i], doc.Attrs[i+1:]...)
			return a.Value
		}
	}
	return ""
}

// sanitizeComments removes "--", which XML forbids inside comments.
func sanitizeComments(doc *Document) {
	if doc.Terms != nil {
		for i := range doc.Terms.Terms {
			doc.Terms.Terms[i].Comment = commentText(doc.Terms.Terms[i].Comment)
		}
	}
	if doc.Opinions != nil {
		for i := range doc.Opinions.Opinions {
			op := &doc.Opinions.Opinions[i]
			if op.Target != nil {
				op.Target.Comment = commentText(op.Target.Comment)
			}
			if op.Expression != nil {
				op.Expression.Comment = commentText(op.Expression.Comment)
			}
		}
	}
}

func commentText(s string) string {
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.TrimSuffix(s, "-")
}

// String renders doc for logs; encoding errors are reported inline.
func (d *Document) String() string {
	b, err := Encode(d)
	if err != nil {
		return fmt.Sprintf("<invalid NAF: %v>", err)
	}
	return string(b)
}
