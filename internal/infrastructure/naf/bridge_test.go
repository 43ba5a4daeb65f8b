package naf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Opinion-Intelligence/internal/domain/opinion"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

const twoSentenceNAF = `<NAF xml:lang="en" version="v3">
  <text>
    <wf id="w1" sent="1"><![CDATA[Nice]]></wf>
    <wf id="w2" sent="1"><![CDATA[New]]></wf>
    <wf id="w3" sent="1"><![CDATA[York]]></wf>
    <wf id="w4" sent="2"><![CDATA[-DOCSTART-]]></wf>
    <wf id="w5" sent="2"><![CDATA[Intro]]></wf>
  </text>
  <terms>
    <term id="t2" lemma="New York"><span><target id="w2"/><target id="w3"/></span></term>
    <term id="t1" lemma="nice"><span><target id="w1"/></span></term>
    <term id="t3" lemma="-DOCSTART-"><span><target id="w4"/></span></term>
    <term id="t4" lemma="intro"><span><target id="w5"/></span></term>
  </terms>
  <opinions>
    <opinion id="o3"><opinion_expression polarity="neutral"><span><target id="t4"/></span></opinion_expression></opinion>
  </opinions>
</NAF>`

func TestToDomain_SentencesInReadingOrder(t *testing.T) {
	doc, err := Decode([]byte(twoSentenceNAF))
	require.NoError(t, err)

	od, err := ToDomain(doc)
	require.NoError(t, err)

	assert.Equal(t, "en", od.Lang)
	require.Len(t, od.Sentences, 2)
	s1, s2 := od.Sentences[0], od.Sentences[1]
	assert.Equal(t, 1, s1.Index)
	assert.Equal(t, []string{"Nice", "New", "York"}, s1.Forms())
	assert.Equal(t, []string{"w1", "w2", "w3"}, s1.IDs())
	assert.Equal(t, "nice", s1.Tokens[0].Lemma)
	assert.Equal(t, "New York", s1.Tokens[1].Lemma)
	assert.Equal(t, "New York", s1.Tokens[2].Lemma)
	assert.False(t, s1.IsBoundary())
	assert.True(t, s2.IsBoundary())

	assert.Equal(t, []opinion.Term{
		{ID: "t2", Form: "New York", Lemma: "New York"},
		{ID: "t1", Form: "Nice", Lemma: "nice"},
		{ID: "t3", Form: "-DOCSTART-", Lemma: "-DOCSTART-"},
		{ID: "t4", Form: "Intro", Lemma: "intro"},
	}, od.Terms)
}

const multiWordNAF = `<NAF xml:lang="en" version="v3">
  <text>
    <wf id="w1" sent="1"><![CDATA[I]]></wf>
    <wf id="w2" sent="1"><![CDATA[love]]></wf>
    <wf id="w3" sent="1"><![CDATA[New]]></wf>
    <wf id="w4" sent="1"><![CDATA[York]]></wf>
    <wf id="w5" sent="1"><![CDATA[!]]></wf>
  </text>
  <terms>
    <term id="t1" lemma="I"><span><target id="w1"/></span></term>
    <term id="t2" lemma="love"><span><target id="w2"/></span></term>
    <term id="t3" lemma="New York"><span><target id="w3"/><target id="w4"/></span></term>
  </terms>
</NAF>`

func TestToDomain_MultiWordTermKeepsEveryWordForm(t *testing.T) {
	doc, err := Decode([]byte(multiWordNAF))
	require.NoError(t, err)

	od, err := ToDomain(doc)
	require.NoError(t, err)
	require.Len(t, od.Sentences, 1)
	s := od.Sentences[0]
	assert.Equal(t, []string{"I", "love", "New", "York", "!"}, s.Forms())
	assert.Equal(t, []string{"w1", "w2", "w3", "w4", "w5"}, s.IDs())
	assert.Empty(t, s.Tokens[4].Lemma, "a word form outside every term is kept without a lemma")
	assert.Len(t, od.Terms, 3)
}

func TestMerge_SpansResolveToCoveringTerms(t *testing.T) {
	doc, err := Decode([]byte(multiWordNAF))
	require.NoError(t, err)
	od, err := ToDomain(doc)
	require.NoError(t, err)

	s := od.Sentences[0]
	target, err := opinion.ToSpan(s, s.IDs(), 2, 4)
	require.NoError(t, err)
	expr, err := opinion.ToSpan(s, s.IDs(), 1, 4)
	require.NoError(t, err)
	opinion.Attach(od, s.Index, &target, opinion.Expression{Span: expr, Polarity: opinion.Label("positive")})

	require.NoError(t, Merge(doc, od))
	require.Len(t, doc.Opinions.Opinions, 1)
	op := doc.Opinions.Opinions[0]
	assert.Equal(t, []string{"t3"}, op.Target.Span.IDs())
	assert.Equal(t, "New York", op.Target.Comment)
	assert.Equal(t, []string{"t2", "t3"}, op.Expression.Span.IDs())
	assert.Equal(t, "love New York", op.Expression.Comment)
}

func TestMerge_SpanOverUncoveredWordFormsFails(t *testing.T) {
	doc, err := Decode([]byte(multiWordNAF))
	require.NoError(t, err)
	od, err := ToDomain(doc)
	require.NoError(t, err)

	s := od.Sentences[0]
	bang, err := opinion.ToSpan(s, s.IDs(), 4, 5)
	require.NoError(t, err)
	opinion.Attach(od, s.Index, nil, opinion.Expression{Span: bang})

	err = Merge(doc, od)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownTerm))
	assert.Empty(t, doc.Opinions.Opinions, "nothing is written when an opinion cannot be resolved")
}

func TestToDomain_SynthesizesTerms(t *testing.T) {
	doc, err := Decode([]byte(`<NAF xml:lang="en"><text><wf id="w1" sent="1">Good</wf><wf id="w2" sent="1">.</wf></text></NAF>`))
	require.NoError(t, err)

	od, err := ToDomain(doc)
	require.NoError(t, err)
	require.Len(t, od.Sentences, 1)
	assert.Equal(t, []string{"w1", "w2"}, od.Sentences[0].IDs())
	require.NotNil(t, doc.Terms)
	assert.Len(t, doc.Terms.Terms, 2)
	require.Len(t, od.Terms, 2)
	assert.Equal(t, opinion.Term{ID: "t1", Form: "Good", Lemma: "Good"}, od.Terms[0])
}

func TestToDomain_Errors(t *testing.T) {
	_, err := ToDomain(nil)
	assert.Error(t, err)

	doc, err := Decode([]byte(`<NAF xml:lang="en"><text><wf id="w1" sent="1">a</wf></text><terms><term id="t1"><span><target id="w9"/></span></term></terms></NAF>`))
	require.NoError(t, err)
	_, err = ToDomain(doc)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownTerm))

	doc, err = Decode([]byte(`<NAF xml:lang="en"><text><wf id="w1">a</wf></text></NAF>`))
	require.NoError(t, err)
	_, err = ToDomain(doc)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDocumentMalformed))
}

func TestToDomain_NoText(t *testing.T) {
	od, err := ToDomain(&Document{Lang: "eu"})
	require.NoError(t, err)
	assert.Equal(t, "eu", od.Lang)
	assert.Empty(t, od.Sentences)
}

func TestMerge_OpinionsAndSentiments(t *testing.T) {
	doc, err := Decode([]byte(twoSentenceNAF))
	require.NoError(t, err)
	od, err := ToDomain(doc)
	require.NoError(t, err)

	s1 := od.Sentences[0]
	target, err := opinion.ToSpan(s1, s1.IDs(), 1, 3)
	require.NoError(t, err)
	whole, err := s1.Whole()
	require.NoError(t, err)
	opinion.Attach(od, s1.Index, &target, opinion.Expression{
		Span:     whole,
		Polarity: opinion.Label("positive"),
		Feature:  opinion.Label("LOCATION"),
	})
	od.AttachSentiment("t1", opinion.Sentiment{Polarity: "positive", Resource: "en-general"})

	require.NoError(t, Merge(doc, od))
	require.NoError(t, Merge(doc, od))

	require.Len(t, doc.Opinions.Opinions, 2)
	added := doc.Opinions.Opinions[1]
	assert.Equal(t, "o4", added.ID)
	assert.Equal(t, []string{"t2"}, added.Target.Span.IDs())
	assert.Equal(t, "New York", added.Target.Comment)
	assert.Equal(t, "positive", added.Expression.Polarity)
	assert.Equal(t, "LOCATION", added.Expression.SentimentProductFeature)
	assert.Equal(t, []string{"t1", "t2"}, added.Expression.Span.IDs())
	assert.Equal(t, "Nice New York", added.Expression.Comment)

	require.Len(t, doc.Terms.Terms[1].Sentiments, 1)
	assert.Equal(t, "en-general", doc.Terms.Terms[1].Sentiments[0].Resource)

	out, err := Encode(doc)
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, `<opinion id="o4">`)
	assert.Contains(t, s, `sentiment_product_feature="LOCATION"`)
	assert.Contains(t, s, `<sentiment resource="en-general" polarity="positive">`)
	assert.Equal(t, 1, strings.Count(s, `<opinion id="o4">`))
}

func TestMerge_UnknownSentimentTerm(t *testing.T) {
	doc := &Document{Lang: "en", Terms: &TermsLayer{}}
	od := opinion.NewDocument("en", nil)
	od.AttachSentiment("t42", opinion.Sentiment{Polarity: "negative", Resource: "d"})
	err := Merge(doc, od)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownTerm))

	assert.Error(t, Merge(nil, od))
}
