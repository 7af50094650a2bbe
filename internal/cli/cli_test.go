// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipapadil7-star/nexus/internal/apperr"
	"github.com/ipapadil7-star/nexus/internal/backend"
	"github.com/ipapadil7-star/nexus/internal/backend/backendtest"
	"github.com/ipapadil7-star/nexus/internal/config"
)

// =============================================================================
// HARNESS
// =============================================================================

type run struct {
	out, err bytes.Buffer
	fake     *backendtest.Fake
	home     string
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("NEXUS_HOME", home)
	for _, name := range []string{
		"API_KEY", "GEMINI_API_KEY", "NEXUS_API_KEY", "NEXUS_TEXT_MODEL", "NEXUS_PERSONA",
		"NEXUS_OCR", "NEXUS_POLL_INTERVAL", "NEXUS_DATA_DIR", "NEXUS_LOG_LEVEL", "NEXUS_METRICS_ADDR",
	} {
		t.Setenv(name, "")
	}
	t.Cleanup(config.ResetGlobalForTesting)
	return home
}

func newRun(t *testing.T) *run {
	t.Helper()
	return &run{fake: backendtest.New(), home: isolate(t)}
}

// exec runs the command line with stdin set to input.
func (r *run) exec(t *testing.T, input string, args ...string) error {
	t.Helper()
	interactive := false
	var be backend.Backend = r.fake
	if r.fake == nil {
		be = nil
	}
	root := NewRootCommand(Options{
		Backend:     be,
		In:          strings.NewReader(input),
		Out:         &r.out,
		Err:         &r.err,
		Interactive: &interactive,
	})
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

// =============================================================================
// VERSION
// =============================================================================

func TestVersion(t *testing.T) {
	r := newRun(t)
	require.NoError(t, r.exec(t, "", "version"))
	assert.Contains(t, r.out.String(), "nexus dev")
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk_Chat(t *testing.T) {
	r := newRun(t)
	require.NoError(t, r.exec(t, "", "ask", "halo", "nexus"))
	assert.Contains(t, r.out.String(), "halo juga")
	assert.Contains(t, r.out.String(), "NEXUS")
}

func TestAsk_Generation(t *testing.T) {
	r := newRun(t)
	require.NoError(t, r.exec(t, "", "ask", "/gambar naga merah"))
	assert.Contains(t, r.out.String(), "🖼")

	media, err := filepath.Glob(filepath.Join(r.home, "media", "*"))
	require.NoError(t, err)
	assert.NotEmpty(t, media)
}

func TestAsk_FailureSetsExitCode(t *testing.T) {
	r := newRun(t)
	r.fake.ImageErr = errors.New("googleapi: Error 429: RESOURCE_EXHAUSTED")

	err := r.exec(t, "", "ask", "/gambar naga")
	require.Error(t, err)
	assert.Equal(t, ExitRateLimited, ExitCode(err))
	assert.Contains(t, r.err.String(), "Kebanyakan permintaan")
	assert.Empty(t, r.out.String())
}

func TestAsk_AttachmentRejected(t *testing.T) {
	r := newRun(t)
	path := filepath.Join(t.TempDir(), "catatan.exe")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	err := r.exec(t, "", "ask", "/dengarkan", "--file", path)
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, ExitCode(err))
	assert.Contains(t, apperr.Classify(err).Message, "tidak didukung")
}

func TestAsk_WithAttachment(t *testing.T) {
	r := newRun(t)
	path := filepath.Join(t.TempDir(), "foto.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0644))

	require.NoError(t, r.exec(t, "", "ask", "/dengarkan", "--file", path))
	assert.Contains(t, r.out.String(), "🔊")
}

func TestAsk_MissingAPIKey(t *testing.T) {
	r := newRun(t)
	r.fake = nil

	err := r.exec(t, "", "ask", "halo")
	require.Error(t, err)
	assert.Equal(t, ExitAuthError, ExitCode(err))
	assert.Equal(t, missingKeyMessage, apperr.Classify(err).Message)
}

func TestAsk_RequiresInput(t *testing.T) {
	r := newRun(t)
	require.Error(t, r.exec(t, "", "ask"))
}

func TestUnknownFlag_IsUsageError(t *testing.T) {
	r := newRun(t)
	err := r.exec(t, "", "ask", "--tidak-ada", "x")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, ExitCode(err))
}

func TestInvalidConfig_IsConfigError(t *testing.T) {
	r := newRun(t)
	path := filepath.Join(r.home, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[chat]\npersona = \"bajak-laut\"\n"), 0600))

	err := r.exec(t, "", "--config", path, "ask", "halo")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, ExitCode(err))
}

// =============================================================================
// LINE MODE
// =============================================================================

func TestREPL_Conversation(t *testing.T) {
	r := newRun(t)
	input := "halo\n\n/help\n/keluar\n/gambar tidak pernah jalan\n"
	require.NoError(t, r.exec(t, input, "chat"))

	out := r.out.String()
	assert.Contains(t, out, replWelcome)
	assert.Contains(t, out, "halo juga")
	assert.Contains(t, out, "/gambar")
	assert.NotContains(t, r.fake.Calls(), "GenerateImage")
}

func TestREPL_RootFallsBackWhenNotInteractive(t *testing.T) {
	r := newRun(t)
	require.NoError(t, r.exec(t, "/video kucing menari\n"))

	out := r.out.String()
	assert.Contains(t, out, "🎬")
}

func TestREPL_ConfirmationFlow(t *testing.T) {
	r := newRun(t)
	require.NoError(t, r.exec(t, "halo\n/bersihkan\n/ya\n", "chat"))
	assert.Contains(t, r.out.String(), "(percakapan dibersihkan)")
}

// =============================================================================
// MACROS
// =============================================================================

func TestMacros_ImportListExport(t *testing.T) {
	r := newRun(t)
	src := filepath.Join(t.TempDir(), "macros.yaml")
	require.NoError(t, os.WriteFile(src, []byte(`version: 1
macros:
  - name: pagi
    text: /gambar matahari terbit di pantai
  - name: gambar
    text: bentrok dengan bawaan
`), 0644))

	require.NoError(t, r.exec(t, "", "macros", "import", src))
	assert.Contains(t, r.out.String(), "1 perintah diimpor.")
	assert.Contains(t, r.err.String(), "/gambar dilewati")

	r.out.Reset()
	require.NoError(t, r.exec(t, "", "macros", "list"))
	assert.Contains(t, r.out.String(), "/pagi")

	dst := filepath.Join(t.TempDir(), "out.yaml")
	r.out.Reset()
	require.NoError(t, r.exec(t, "", "macros", "export", dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Contains(t, string(data), "matahari terbit")
}

func TestMacros_ListEmpty(t *testing.T) {
	r := newRun(t)
	require.NoError(t, r.exec(t, "", "macros", "list"))
	assert.Contains(t, r.out.String(), "Belum ada perintah kustom.")
}

func TestMacros_UsedByAsk(t *testing.T) {
	r := newRun(t)
	src := filepath.Join(t.TempDir(), "macros.yaml")
	require.NoError(t, os.WriteFile(src, []byte("version: 1\nmacros:\n  - name: sapa\n    text: halo dari macro\n"), 0644))
	require.NoError(t, r.exec(t, "", "macros", "import", src))

	require.NoError(t, r.exec(t, "", "ask", "/sapa"))
	assert.Contains(t, r.out.String(), "halo juga")
}

// =============================================================================
// EXIT CODES
// =============================================================================

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{apperr.NewBadRequest("x"), ExitUsageError},
		{apperr.NewUnsupported("x"), ExitBlockedError},
		{errors.New("API key not valid"), ExitAuthError},
		{errors.New("connection refused"), ExitNetworkError},
		{errors.New("quota exceeded"), ExitRateLimited},
		{context.DeadlineExceeded, ExitTimeoutError},
		{fmt.Errorf("invalid config: %w", config.ValidateErrors{{Field: "a", Message: "b"}}), ExitConfigError},
		{&ErrGenerationFailed{Category: apperr.SafetyBlocked}, ExitBlockedError},
		{errors.New("sesuatu yang aneh"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.err), func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestDisplayError(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, errors.New("connection refused"))
	assert.Contains(t, buf.String(), "Koneksi ke server bermasalah")

	buf.Reset()
	DisplayError(&buf, &ErrGenerationFailed{Message: "sudah dicetak"})
	assert.Empty(t, buf.String())
}
