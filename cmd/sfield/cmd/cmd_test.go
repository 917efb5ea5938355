package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/scalarfield/pkg/codec"
	"github.com/ssargent/scalarfield/pkg/config"
	"github.com/ssargent/scalarfield/pkg/exr"
	"github.com/ssargent/scalarfield/pkg/fieldio"
	"github.com/ssargent/scalarfield/pkg/fieldstore"
	"github.com/ssargent/scalarfield/pkg/logger"
)

func sampleField() *codec.ScalarField {
	return &codec.ScalarField{Height: 2, Width: 2, Data: []float32{1, -2.5, 3, 0.25}}
}

func writeSample(t *testing.T, path string, f *codec.ScalarField) {
	t.Helper()
	require.NoError(t, fieldio.WriteFile(path, f))
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.sf")
	writeSample(t, in, sampleField())

	exrPath := filepath.Join(dir, "out.exr")
	field, err := convertFile(in, exrPath, "Z")
	require.NoError(t, err)
	assert.Equal(t, 2, field.Height)

	got, err := exr.LoadEXR(exrPath, exr.WithChannel("Z"))
	require.NoError(t, err)
	assert.True(t, got.Equal(sampleField()))

	back := filepath.Join(dir, "back.sf")
	_, err = convertFile(exrPath, back, "Z")
	require.NoError(t, err)

	want, err := codec.Encode(sampleField())
	require.NoError(t, err)
	raw, err := os.ReadFile(back)
	require.NoError(t, err)
	assert.Equal(t, want, raw)

	_, err = convertFile(exrPath, back, "missing")
	assert.ErrorIs(t, err, exr.ErrMissingChannel)
}

func TestInspectFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.exr")
	writeSample(t, path, sampleField())

	report, err := inspectFile(path, exr.DefaultChannel)
	require.NoError(t, err)
	assert.Equal(t, fieldio.FormatEXR, report.Format)
	assert.Equal(t, 2, report.Height)
	assert.Equal(t, 2, report.Width)
	assert.Equal(t, 12+16, report.EncodedBytes)
	assert.Equal(t, -2.5, report.Stats.Min)

	var buf bytes.Buffer
	require.NoError(t, outputReportTable(&buf, report))
	assert.Contains(t, buf.String(), "2x2")

	bad := filepath.Join(dir, "bad.sf")
	require.NoError(t, os.WriteFile(bad, []byte("SF01\x01\x00"), 0o644))
	_, err = inspectFile(bad, exr.DefaultChannel)
	assert.ErrorIs(t, err, codec.ErrTruncatedBuffer)
}

func TestPackUnpack(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.sf")
	b := filepath.Join(dir, "b.exr")
	writeSample(t, a, sampleField())
	writeSample(t, b, &codec.ScalarField{Height: 1, Width: 3, Data: []float32{9, 8, 7}})

	logPath := filepath.Join(dir, "frames.sfl")
	offsets, err := packFiles(logger.Nop(), logPath, []string{a, b}, exr.DefaultChannel)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 28}, offsets)

	// Simulate an interrupted append, then pack again.
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0600)
	require.NoError(t, err)
	_, err = f.Write([]byte("SF01\x02"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	offsets, err = packFiles(logger.Nop(), logPath, []string{a}, exr.DefaultChannel)
	require.NoError(t, err)
	assert.Equal(t, []int64{28 + 24}, offsets)

	out := filepath.Join(dir, "out")
	files, err := unpackLog(logger.Nop(), logPath, out, fieldio.FormatSF)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, filepath.Join(out, "frame-00001.sf"), files[1])

	got, err := fieldio.ReadFile(files[1])
	require.NoError(t, err)
	assert.Equal(t, []float32{9, 8, 7}, got.Data)

	exrOut := filepath.Join(dir, "exr")
	files, err = unpackLog(logger.Nop(), logPath, exrOut, fieldio.FormatEXR)
	require.NoError(t, err)
	require.Len(t, files, 3)
	got, err = exr.LoadEXR(files[0])
	require.NoError(t, err)
	assert.True(t, got.Equal(sampleField()))
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := initConfig(path, "/srv/fields", false)
	require.NoError(t, err)
	assert.Equal(t, "/srv/fields", cfg.DataDir)
	assert.NoError(t, cfg.Validate())

	_, err = initConfig(path, "", false)
	assert.Error(t, err)

	again, err := initConfig(path, "", true)
	require.NoError(t, err)
	assert.NotEqual(t, cfg.Security.APIKey, again.Security.APIKey)
}

func TestLoadSettings(t *testing.T) {
	_, _, err := loadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	want := config.DefaultConfig()
	want.Port = 9123
	require.NoError(t, config.SaveConfig(want, path))

	cfg, resolved, err := loadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, path, resolved)
	assert.Equal(t, 9123, cfg.Port)
}

func TestOutputFieldsTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, outputFieldsTable(&buf, nil))
	assert.Contains(t, buf.String(), "No fields found")

	buf.Reset()
	require.NoError(t, outputFieldsTable(&buf, []fieldstore.FieldInfo{{ID: "abc", Height: 2, Width: 3, SizeBytes: 36}}))
	assert.Contains(t, buf.String(), "ID")
	assert.Contains(t, buf.String(), "abc")
}

func TestRepositoryCommands(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	dataDir := filepath.Join(dir, "data")
	_, err := initConfig(configPath, dataDir, false)
	require.NoError(t, err)

	in := filepath.Join(dir, "in.sf")
	writeSample(t, in, sampleField())

	out, err := runCLI(t, "put", in, "--config", configPath, "--data-dir", dataDir)
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	_, err = fieldstore.ParseID(id)
	require.NoError(t, err)

	out, err = runCLI(t, "list", "--output", "json", "--config", configPath, "--data-dir", dataDir)
	require.NoError(t, err)
	var infos []fieldstore.FieldInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, id, infos[0].ID)

	exrOut := filepath.Join(dir, "got.exr")
	_, err = runCLI(t, "get", id, exrOut, "--config", configPath, "--data-dir", dataDir)
	require.NoError(t, err)
	got, err := exr.LoadEXR(exrOut)
	require.NoError(t, err)
	assert.True(t, got.Equal(sampleField()))

	_, err = runCLI(t, "delete", id, "--config", configPath, "--data-dir", dataDir)
	require.NoError(t, err)

	_, err = runCLI(t, "delete", id, "--config", configPath, "--data-dir", dataDir)
	assert.ErrorIs(t, err, fieldstore.ErrFieldNotFound)
}

func TestEnsureConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	current := config.DefaultConfig()
	current.DataDir = "/srv/sfield"

	cfg, created, err := ensureConfig(path, current)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "/srv/sfield", cfg.DataDir)
	assert.NoError(t, cfg.Validate())

	loaded, err := config.LoadConfig(path)
	require.NoError(t, err)

	again, created, err := ensureConfig(path, loaded)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, loaded, again)

	// An existing file without a key is an error rather than being overwritten.
	broken := config.DefaultConfig()
	_, _, err = ensureConfig(path, broken)
	assert.Error(t, err)
}
