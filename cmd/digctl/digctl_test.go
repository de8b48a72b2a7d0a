package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/digkit/dig/printer"
	"github.com/joshuapare/digkit/dig/source"
	"github.com/joshuapare/digkit/internal/config"
	"github.com/joshuapare/digkit/internal/logger"
	"github.com/joshuapare/digkit/pkg/types"
)

var payload = bytes.Repeat([]byte("hello digkit\n"), 100)

func resetFlags() {
	verbose, quiet = false, false
	configPath, recordSize, charsetName = "", 0, ""
	excavateFormat, excavateDepth = "", 0
	viewArtifact = 0
	manifestFormat, manifestOutput = "json", ""
	diagFormat, diagShowSummary = "compact", false
	cfg = config.Default()
	logger.Discard()
}

// run executes digctl with args and returns what it wrote to stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvVar, "")
	t.Cleanup(resetFlags)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// gzImage writes a gzip file holding payload and returns its path and bytes.
func gzImage(t *testing.T) (string, []byte) {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "image.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path, buf.Bytes()
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "digkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, "digctl dev")
}

func TestExcavate(t *testing.T) {
	path, _ := gzImage(t)
	out, err := run(t, "excavate", path)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(out, "image.gz (2 artifacts)\n"), out)
	require.Contains(t, out, "#1 image.gz")
	require.Contains(t, out, "[gzip] (compressed)")
	require.Contains(t, out, "#2 gzip payload 1.3 kB")
	require.Contains(t, out, "[decompressed]")
	require.Contains(t, out, "passes")
}

func TestExcavateQuietJSON(t *testing.T) {
	path, _ := gzImage(t)
	out, err := run(t, "excavate", "-q", "--format", "json", path)
	require.NoError(t, err)

	var m printer.Manifest
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	require.Len(t, m.Artifacts, 2)
	require.Equal(t, source.Sum(payload), m.Artifacts[1].Digest)
}

func TestExcavateDepth(t *testing.T) {
	path, _ := gzImage(t)
	out, err := run(t, "excavate", "-q", "--depth", "1", path)
	require.NoError(t, err)
	require.NotContains(t, out, "gzip payload")
}

func TestExcavateRecords(t *testing.T) {
	path, _ := gzImage(t)
	_, err := run(t, "excavate", "--records", "512", path)
	require.NoError(t, err)

	_, err = run(t, "excavate", "--records", "-1", path)
	require.ErrorContains(t, err, "record_size")
}

func TestExcavateErrors(t *testing.T) {
	_, err := run(t, "excavate", filepath.Join(t.TempDir(), "missing.img"))
	require.ErrorContains(t, err, "failed to open image")

	empty := filepath.Join(t.TempDir(), "empty.img")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = run(t, "excavate", empty)
	require.Error(t, err)

	path, _ := gzImage(t)
	_, err = run(t, "excavate", "--charset", "klingon", path)
	require.ErrorContains(t, err, "charset")
}

func TestConfigFile(t *testing.T) {
	path, _ := gzImage(t)
	conf := writeConfig(t, "examiners: [blank]\n")
	out, err := run(t, "excavate", "--config", conf, path)
	require.NoError(t, err)
	require.Contains(t, out, "(1 artifacts)")
	require.NotContains(t, out, "gzip payload")

	bad := writeConfig(t, "examiners: [nope]\n")
	_, err = run(t, "excavate", "--config", bad, path)
	require.ErrorContains(t, err, `unknown examiner "nope"`)
}

func TestConfigFromEnv(t *testing.T) {
	path, data := gzImage(t)
	conf := writeConfig(t, "output:\n  show_digests: true\n")

	t.Cleanup(resetFlags)
	t.Setenv(config.EnvVar, conf)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"excavate", path})
	require.NoError(t, rootCmd.Execute())
	require.Contains(t, out.String(), source.Sum(data).String())
}

func TestView(t *testing.T) {
	path, _ := gzImage(t)
	out, err := run(t, "view", path)
	require.NoError(t, err)
	require.Contains(t, out, "#1 image.gz")
	require.Contains(t, out, "span")
	require.Contains(t, out, "#2 gzip payload")
	require.Contains(t, out, "gap (1300 units)")

	out, err = run(t, "view", "--artifact", "2", path)
	require.NoError(t, err)
	require.NotContains(t, out, "#1 image.gz")

	_, err = run(t, "view", "--artifact", "9", path)
	require.ErrorContains(t, err, "no artifact #9")
}

func TestManifest(t *testing.T) {
	path, data := gzImage(t)

	out, err := run(t, "manifest", path)
	require.NoError(t, err)
	var m printer.Manifest
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	require.Equal(t, "image.gz", m.Label)
	require.Equal(t, []uint32{1}, m.Roots)

	dst := filepath.Join(t.TempDir(), "out.cbor")
	out, err = run(t, "manifest", "--format", "cbor", "-o", dst, path)
	require.NoError(t, err)
	require.Empty(t, out)

	raw, err := os.ReadFile(dst)
	require.NoError(t, err)
	got, err := printer.ReadCBOR(raw)
	require.NoError(t, err)
	require.Len(t, got.Artifacts, 2)
	require.Equal(t, source.Sum(data), got.Artifacts[0].Digest)
	require.Equal(t, []string{"gzip"}, got.Artifacts[0].Tags)

	_, err = run(t, "manifest", "--format", "text", path)
	require.Error(t, err)
}

// truncatedImage writes the first half of a gzip stream over noisy bytes.
func truncatedImage(t *testing.T) string {
	t.Helper()
	noisy := make([]byte, 4096)
	for i := range noisy {
		noisy[i] = byte(i*7) ^ byte(i>>3)
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(noisy)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "cut.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes()[:buf.Len()/2], 0o644))
	return path
}

func TestDiagnose(t *testing.T) {
	clean, _ := gzImage(t)
	out, err := run(t, "diagnose", clean)
	require.NoError(t, err)
	require.Equal(t, "No issues found.\n", out)

	cut := truncatedImage(t)
	out, err = run(t, "diagnose", cut)
	require.ErrorContains(t, err, "0 critical, 1 errors found")
	require.Contains(t, out, "[ERROR/#1:gzip/DATA]")

	out, err = run(t, "diagnose", "--format", "json", cut)
	require.Error(t, err)
	var report types.DiagnosticReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Diagnostics, 1)
	require.Equal(t, 1, report.Summary.Errors)

	out, err = run(t, "diagnose", "--summary", cut)
	require.Error(t, err)
	require.Contains(t, out, "Errors:    1\n")

	_, err = run(t, "diagnose", "--format", "hex", clean)
	require.ErrorContains(t, err, "unknown format")
}

func TestExcavatePrintsDiagnosticsSummary(t *testing.T) {
	out, err := run(t, "excavate", truncatedImage(t))
	require.NoError(t, err)
	require.Contains(t, out, "diagnostics: 0 critical, 1 errors, 0 warnings, 0 info\n")
}

func TestBuildExaminers(t *testing.T) {
	exams, err := buildExaminers(config.KnownExaminers)
	require.NoError(t, err)
	require.Len(t, exams, len(config.KnownExaminers))
	for i, ex := range exams {
		require.Equal(t, config.KnownExaminers[i], ex.Name())
	}

	_, err = buildExaminers([]string{"blank", "bogus"})
	require.Error(t, err)
}
