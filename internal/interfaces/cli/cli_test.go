package cli

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Opinion-Intelligence/internal/application/annotation"
	"github.com/turtacn/Opinion-Intelligence/internal/config"
	"github.com/turtacn/Opinion-Intelligence/internal/interfaces/tcp"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

const batteryNAF = `<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<NAF xml:lang="en" version="v3">
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

const targetModelYAML = `
labels: [B-T, I-T, O]
bias: {O: 1.0}
features:
  w=battery: {B-T: 3.0}
`

const polarityModelYAML = `
labels: [positive, negative, neutral]
bias: {neutral: 0.5}
features:
  w=great: {positive: 2.0}
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// testConfig writes a config file with quiet logging plus extra YAML.
func testConfig(t *testing.T, extra string) string {
	t.Helper()
	return writeFile(t, t.TempDir(), "opinion.yaml", "log:\n  level: error\n  format: console\n"+extra)
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "opinion", cmd.Use)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"ote", "aspect", "pol", "absa", "server", "client", "worker", "lexicon", "model", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}

	for _, flag := range []string{"config", "log-level", "log-format"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
	assert.Equal(t, "c", cmd.PersistentFlags().Lookup("config").Shorthand)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "opinion "+Version)
	assert.Contains(t, out, "commit:")
}

func TestOTE_AnnotatesStdin(t *testing.T) {
	dir := t.TempDir()
	model := writeFile(t, dir, "en-ote.yaml", targetModelYAML)

	out, err := run(t, batteryNAF, "--config", testConfig(t, ""), "ote", "-m", model, "-l", "en")
	require.NoError(t, err)
	assert.Contains(t, out, `<opinion id="o1">`)
	assert.Contains(t, out, `name="opinion-tagger-en-ote"`)
	assert.Contains(t, out, `version="`+processorVersion()+`"`)
}

func TestOTE_Failures(t *testing.T) {
	model := writeFile(t, t.TempDir(), "en-ote.yaml", targetModelYAML)
	cfg := testConfig(t, "")

	tests := []struct {
		name  string
		stdin string
		args  []string
		code  errors.ErrorCode
	}{
		{"language mismatch", batteryNAF, []string{"ote", "-m", model, "-l", "es"}, errors.ErrCodeLanguageMismatch},
		{"missing model", batteryNAF, []string{"ote"}, errors.ErrCodeStrategyMisconfig},
		{"malformed document", "<NAF><text>", []string{"ote", "-m", model}, errors.ErrCodeDocumentMalformed},
		{"bad policy", batteryNAF, []string{"ote", "-m", model, "--clear-features", "sometimes"}, errors.ErrCodePolicyInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.stdin, append([]string{"--config", cfg}, tt.args...)...)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestAspect_InvalidVariant(t *testing.T) {
	_, err := run(t, batteryNAF, "--config", testConfig(t, ""), "aspect", "--variant", "tree", "-m", "x.yaml")
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestPol_DictionaryOnly(t *testing.T) {
	dict := writeFile(t, t.TempDir(), "en-general.tsv", "great\tpositive\nbattery\tO\n")

	out, err := run(t, batteryNAF, "--config", testConfig(t, ""), "pol", "--dictionary", dict)
	require.NoError(t, err)
	assert.Contains(t, out, `resource="en-general"`)
	assert.NotContains(t, out, "<opinion ")
}

func TestABSA_FromFlags(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, batteryNAF, "--config", testConfig(t, ""), "absa",
		"--target-model", writeFile(t, dir, "en-ote.yaml", targetModelYAML),
		"--polarity-model", writeFile(t, dir, "en-pol.yaml", polarityModelYAML))
	require.NoError(t, err)
	assert.Contains(t, out, `polarity="positive"`)
}

func TestABSA_ModelsFromConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, "annotation:\n"+
		"  target_model: "+writeFile(t, dir, "en-ote.yaml", targetModelYAML)+"\n"+
		"  polarity_model: "+writeFile(t, dir, "en-pol.yaml", polarityModelYAML)+"\n")

	out, err := run(t, batteryNAF, "--config", cfg, "absa")
	require.NoError(t, err)
	assert.Contains(t, out, `<opinion id="o1">`)
}

func TestAnnotationFlags_OnlyChangedOverride(t *testing.T) {
	f := &annotationFlags{}
	cmd := &cobra.Command{Use: "x"}
	f.bindModels(cmd)
	f.bindCommon(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--polarity-model", "s3://models/en-pol.yaml"}))

	cfg := config.AnnotationConfig{ClearFeatures: "docstart", TargetModel: "/srv/en-ote.yaml"}
	f.apply(cmd, &cfg)
	assert.Equal(t, "docstart", cfg.ClearFeatures, "flag default does not override the file")
	assert.Equal(t, "/srv/en-ote.yaml", cfg.TargetModel)
	assert.Equal(t, "s3://models/en-pol.yaml", cfg.PolarityModel)
}

func TestModelBuckets(t *testing.T) {
	got := modelBuckets(config.AnnotationConfig{
		TargetModel:   "s3://models/en-ote.yaml",
		PolarityModel: "s3://models/en-pol.yaml",
		Dictionary:    "s3://dictionaries/en.tsv",
		AspectModel:   "/local/aspect.yaml",
	})
	assert.Equal(t, []string{"dictionaries", "models"}, got)
}

type echoAnnotator struct{}

func (echoAnnotator) Kind() annotation.Kind { return annotation.KindTarget }

func (echoAnnotator) Annotate(_ context.Context, payload []byte) (*annotation.Result, error) {
	return &annotation.Result{Output: append([]byte("echo:"), payload...)}, nil
}

func TestClient_SendsStdin(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tcp.NewServer(echoAnnotator{}).Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	port := strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)
	out, err := run(t, "<NAF/>", "--config", testConfig(t, ""), "client", "--host", "127.0.0.1", "-p", port, "--timeout", "5s")
	require.NoError(t, err)
	assert.Equal(t, "echo:<NAF/>\n", out)
}

func TestClient_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)
	require.NoError(t, ln.Close())

	_, err = run(t, "<NAF/>", "--config", testConfig(t, ""), "client", "--host", "127.0.0.1", "-p", port)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConnectionFailed))
}

func TestServer_RejectsInvalidConfig(t *testing.T) {
	_, err := run(t, "", "--config", testConfig(t, ""), "server", "--workers", "0")
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	_, err = run(t, "", "--config", testConfig(t, ""), "server", "--task", "sentiment")
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestServer_ServesUntilCancelled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	model := writeFile(t, t.TempDir(), "en-ote.yaml", targetModelYAML)
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--config", testConfig(t, ""), "server", "-p", strconv.Itoa(port), "--target-model", model, "--host", "127.0.0.1"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	c := tcp.NewClient("127.0.0.1", port, tcp.WithRequestTimeout(5*time.Second))
	var out bytes.Buffer
	require.Eventually(t, func() bool {
		out.Reset()
		_, err := c.Annotate(context.Background(), []byte(batteryNAF), &out)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	assert.Contains(t, out.String(), `<opinion id="o1">`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestWorker_RequiresKafkaSettings(t *testing.T) {
	_, err := run(t, "", "--config", testConfig(t, ""), "worker")
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestLexiconImport(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	dict := writeFile(t, t.TempDir(), "en-general.tsv", "great\tpositive\nawful\tnegative\n")
	cfg := testConfig(t, "redis:\n  addr: "+mr.Addr()+"\n")

	out, err := run(t, "", "--config", cfg, "lexicon", "import", dict)
	require.NoError(t, err)
	assert.Equal(t, "imported 2 entries into opinion:lexicon:en-general\n", out)
	assert.Equal(t, "negative", mr.HGet("opinion:lexicon:en-general", "awful"))

	_, err = run(t, "", "--config", cfg, "lexicon", "import", dict, "--name", "shared")
	require.NoError(t, err)
	assert.Equal(t, "positive", mr.HGet("opinion:lexicon:shared", "great"))
}

func TestModelPush_Validation(t *testing.T) {
	cfg := testConfig(t, "")
	_, err := run(t, "", "--config", cfg, "model", "push", "en-ote.yaml", "/not/an/object")
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	_, err = run(t, "", "--config", cfg, "model", "push", "en-ote.yaml", "s3://models/en-ote.yaml")
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation), "no endpoint configured")
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/yaml", contentTypeFor("en-ote.yaml"))
	assert.Equal(t, "text/tab-separated-values", contentTypeFor("en-general.tsv"))
}
