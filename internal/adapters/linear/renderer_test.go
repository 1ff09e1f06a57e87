package linear_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/linear"
)

func plain() termenv.Profile { return termenv.Ascii }

func TestRenderer_StageLifecycle(t *testing.T) {
	var live, log bytes.Buffer
	r := linear.NewRendererWithProfile(&live, &log, plain)

	require.NoError(t, r.Start(context.Background()))

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.OnPlanEmit([]string{"configure", "compile", "link"}, []string{"dsdgen", "dsqgen"})
	r.OnTaskStart("root", "", "build", start)
	r.OnTaskStart("span1", "root", "compile", start)
	r.OnTaskComplete("span1", start.Add(1500*time.Millisecond), nil)
	r.OnTaskStart("span2", "root", "link", start.Add(2*time.Second))
	r.OnTaskComplete("span2", start.Add(2250*time.Millisecond), errors.New("unit w_item.c was not compiled"))
	r.OnTaskComplete("root", start.Add(3*time.Second), nil)

	require.NoError(t, r.Stop())

	want := strings.Join([]string{
		"Planning 3 stage(s) for target(s): dsdgen, dsqgen",
		"[build] Starting...",
		"  [compile] Starting...",
		"  [compile] ✓ Completed in 1.5s",
		"  [link] Starting...",
		"  [link] ✗ Failed after 250ms: unit w_item.c was not compiled",
		"[build] ✓ Completed in 3s",
		"",
	}, "\n")

	assert.Equal(t, want, live.String())
	assert.Equal(t, want, log.String())
}

func TestRenderer_UnknownSpan(t *testing.T) {
	var live bytes.Buffer
	r := linear.NewRendererWithProfile(&live, nil, plain)

	r.OnTaskComplete("missing", time.Now(), nil)
	assert.Empty(t, live.String())
}

func TestRenderer_StopReportsOpenStages(t *testing.T) {
	var live, log bytes.Buffer
	r := linear.NewRendererWithProfile(&live, &log, plain)

	r.OnTaskStart("span1", "", "verify", time.Now())
	require.NoError(t, r.Stop())

	assert.Contains(t, log.String(), "[verify] interrupted")

	// A second stop has nothing left to report.
	log.Reset()
	require.NoError(t, r.Stop())
	assert.Empty(t, log.String())
}

func TestRenderer_ColouredLiveOutputStaysPlainInLog(t *testing.T) {
	var live, log bytes.Buffer
	r := linear.NewRendererWithProfile(&live, &log, func() termenv.Profile { return termenv.ANSI })

	start := time.Now()
	r.OnTaskStart("span1", "", "install", start)
	r.OnTaskComplete("span1", start.Add(time.Second), nil)

	assert.Contains(t, live.String(), "\x1b[")
	assert.NotContains(t, log.String(), "\x1b[")
	assert.Contains(t, log.String(), "[install] ✓ Completed in 1s")
}
