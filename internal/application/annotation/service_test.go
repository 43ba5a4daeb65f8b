package annotation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/naf"
	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/common"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

const batteryNAF = `<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<NAF xml:lang="en" version="v3">
  <nafHeader>
    <linguisticProcessors layer="terms">
      <lp name="ixa-pipe-pos-en" version="1.5.2" beginTimestamp="2018-01-01T10:00:00+0100" endTimestamp="2018-01-01T10:00:01+0100"/>
    </linguisticProcessors>
  </nafHeader>
  <text>
    <wf id="w1" offset="0" length="3" sent="1"><![CDATA[The]]></wf>
    <wf id="w2" offset="4" length="7" sent="1"><![CDATA[battery]]></wf>
    <wf id="w3" offset="12" length="4" sent="1"><![CDATA[life]]></wf>
    <wf id="w4" offset="17" length="2" sent="1"><![CDATA[is]]></wf>
    <wf id="w5" offset="20" length="5" sent="1"><![CDATA[great]]></wf>
    <wf id="w6" offset="26" length="1" sent="1"><![CDATA[.]]></wf>
  </text>
  <terms>
    <term id="t1" lemma="the"><span><target id="w1"/></span></term>
    <term id="t2" lemma="battery"><span><target id="w2"/></span></term>
    <term id="t3" lemma="life"><span><target id="w3"/></span></term>
    <term id="t4" lemma="be"><span><target id="w4"/></span></term>
    <term id="t5" lemma="great"><span><target id="w5"/></span></term>
    <term id="t6" lemma="."><span><target id="w6"/></span></term>
  </terms>
</NAF>
`

func absaService(t *testing.T, cfg ServiceConfig) (*Service, *fakeClassifier) {
	t.Helper()
	log := &eventLog{}
	ote := newFakeLabeler("en-ote", log)
	ote.spans["The"] = []common.LabeledSpan{{Start: 1, End: 2, Type: "FEATURE"}}
	pol := newFakeClassifier("en-pol", "positive", log)
	s, err := New(KindABSA, Deps{TargetLabeler: ote, PolarityClassifier: pol}, Options{})
	require.NoError(t, err)
	return NewService(s, cfg, nil), pol
}

func TestService_AnnotateRoundTrip(t *testing.T) {
	svc, _ := absaService(t, ServiceConfig{
		Language:         "en",
		ProcessorName:    "opinion-tagger-en-ote",
		ProcessorVersion: "1.0.0-abc123",
	})
	begin := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	svc.now = func() time.Time { return begin }

	res, err := svc.Annotate(context.Background(), []byte(batteryNAF))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Opinions)
	assert.Equal(t, 1, res.Sentences)
	assert.Equal(t, "en", res.Lang)
	assert.Equal(t, KindABSA, svc.Kind())

	out, err := naf.Decode(res.Output)
	require.NoError(t, err)
	require.NotNil(t, out.Opinions)
	require.Len(t, out.Opinions.Opinions, 1)
	op := out.Opinions.Opinions[0]
	assert.Equal(t, "o1", op.ID)
	require.NotNil(t, op.Target)
	assert.Equal(t, []string{"t2"}, op.Target.Span.IDs())
	require.NotNil(t, op.Expression)
	assert.Equal(t, "positive", op.Expression.Polarity)
	assert.Equal(t, "FEATURE", op.Expression.SentimentProductFeature)
	assert.Len(t, op.Expression.Span.IDs(), 6)

	lps := out.LinguisticProcessors(naf.LayerOpinions)
	require.Len(t, lps, 1)
	assert.Equal(t, "opinion-tagger-en-ote", lps[0].Name)
	assert.Equal(t, "1.0.0-abc123", lps[0].Version)
	assert.Equal(t, begin.Format(naf.TimestampLayout), lps[0].BeginTimestamp)
	assert.Len(t, out.LinguisticProcessors("terms"), 1, "existing header is kept")
}

func TestService_LabelsWordFormsOfMultiWordTerms(t *testing.T) {
	log := &eventLog{}
	ote := newFakeLabeler("en-ote", log)
	ote.spans["I"] = []common.LabeledSpan{{Start: 2, End: 4, Type: "LOCATION"}}
	s, err := New(KindTarget, Deps{TargetLabeler: ote}, Options{})
	require.NoError(t, err)
	svc := NewService(s, ServiceConfig{}, nil)

	res, err := svc.Annotate(context.Background(), []byte(`<NAF xml:lang="en" version="v3">
  <text>
    <wf id="w1" sent="1">I</wf>
    <wf id="w2" sent="1">love</wf>
    <wf id="w3" sent="1">New</wf>
    <wf id="w4" sent="1">York</wf>
  </text>
  <terms>
    <term id="t1" lemma="I"><span><target id="w1"/></span></term>
    <term id="t2" lemma="love"><span><target id="w2"/></span></term>
    <term id="t3" lemma="New York"><span><target id="w3"/><target id="w4"/></span></term>
  </terms>
</NAF>`))
	require.NoError(t, err)
	assert.Contains(t, log.events, "label I love New York")

	out, err := naf.Decode(res.Output)
	require.NoError(t, err)
	require.Len(t, out.Opinions.Opinions, 1)
	op := out.Opinions.Opinions[0]
	assert.Nil(t, op.Target)
	assert.Equal(t, []string{"t3"}, op.Expression.Span.IDs())
	assert.Equal(t, "New York", op.Expression.Comment)
}

func TestService_ContinuesOpinionNumbering(t *testing.T) {
	svc, _ := absaService(t, ServiceConfig{})

	first, err := svc.Annotate(context.Background(), []byte(batteryNAF))
	require.NoError(t, err)
	second, err := svc.Annotate(context.Background(), first.Output)
	require.NoError(t, err)

	out, err := naf.Decode(second.Output)
	require.NoError(t, err)
	assert.Equal(t, []string{"o1", "o2"}, out.OpinionIDs())
	assert.Len(t, out.LinguisticProcessors(naf.LayerOpinions), 2)
}

func TestService_LanguageMismatch(t *testing.T) {
	svc, pol := absaService(t, ServiceConfig{Language: "es"})

	_, err := svc.Annotate(context.Background(), []byte(batteryNAF))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeLanguageMismatch))
	assert.Zero(t, pol.calls)
}

func TestService_DecodeErrorsKeepTheirCodes(t *testing.T) {
	svc, _ := absaService(t, ServiceConfig{})

	_, err := svc.Annotate(context.Background(), []byte("<NAF><text>"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeDocumentMalformed))

	_, err = svc.Annotate(context.Background(), []byte{0xff, 0xfe, '<'})
	assert.True(t, errors.IsCode(err, errors.ErrCodeDocumentEncoding))
}

func TestService_ClassifierFailure(t *testing.T) {
	svc, pol := absaService(t, ServiceConfig{})
	pol.err = assert.AnError

	res, err := svc.Annotate(context.Background(), []byte(batteryNAF))
	assert.Nil(t, res)
	assert.True(t, errors.IsCode(err, errors.ErrCodeClassifierFailed))
	assert.Equal(t, 1, pol.resets)
}

func TestService_DefaultOutputFormat(t *testing.T) {
	svc, _ := absaService(t, ServiceConfig{OutputFormat: "tabulated"})
	assert.Equal(t, "tabulated", svc.Config().OutputFormat)

	res, err := svc.Annotate(context.Background(), []byte(batteryNAF))
	require.NoError(t, err)
	_, err = naf.Decode(res.Output)
	assert.NoError(t, err, "tabulated still serializes NAF")

	svc, _ = absaService(t, ServiceConfig{})
	assert.Equal(t, "naf", svc.Config().OutputFormat)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, FailureNone, Classify(nil))
	assert.Equal(t, FailureEncoding, Classify(errors.New(errors.ErrCodeDocumentEncoding, "x")))
	assert.Equal(t, FailureParse, Classify(errors.New(errors.ErrCodeDocumentMalformed, "x")))
	assert.Equal(t, FailureParse, Classify(errors.New(errors.ErrCodeUnknownTerm, "x")))
	assert.Equal(t, FailureAnnotate, Classify(errors.New(errors.ErrCodeLanguageMismatch, "x")))
	assert.Equal(t, FailureAnnotate, Classify(assert.AnError))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, prometheus.OutcomeOK, Outcome(nil))
	assert.Equal(t, prometheus.OutcomeEncodingError, Outcome(errors.New(errors.ErrCodeDocumentEncoding, "x")))
	assert.Equal(t, prometheus.OutcomeParseError, Outcome(errors.New(errors.ErrCodeDocumentEmpty, "x")))
	assert.Equal(t, prometheus.OutcomeAnnotateError, Outcome(errors.New(errors.ErrCodeClassifierFailed, "x")))
	assert.Equal(t, prometheus.OutcomeAnnotateError, Outcome(assert.AnError))
}
