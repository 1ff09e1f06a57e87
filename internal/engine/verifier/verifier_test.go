package verifier_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/adapters/shell"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.trai.ch/kiln/internal/engine/verifier"
	"go.uber.org/mock/gomock"
)

func newVerifier(t *testing.T) *verifier.Verifier {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stand-in binaries are shell scripts")
	}

	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	return verifier.New(shell.NewExecutor(logger), fs.NewHasher(), logger)
}

func newProject(t *testing.T) *domain.Project {
	t.Helper()
	dir := t.TempDir()
	return &domain.Project{
		SourceDir: dir,
		Verify:    domain.VerifySpec{DescribeArg: "-help", Timeout: 5 * time.Second},
	}
}

func script(t *testing.T, dir, name, body string, perm os.FileMode) *domain.Binary {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), perm))
	return &domain.Binary{Target: name, Path: path, Executable: true, State: domain.BinaryUnverified}
}

func TestVerifier_Verify_Verified(t *testing.T) {
	v := newVerifier(t)
	project := newProject(t)
	bin := script(t, project.SourceDir, "dsdgen", "#!/bin/sh\n[ \"$1\" = \"-help\" ] || exit 3\necho\necho 'dsdgen Population Generator (Version 2.13.0)'\necho 'usage: dsdgen [options]'\n", domain.ExecPerm)

	warnings := v.Verify(context.Background(), project, []*domain.Binary{bin})

	assert.Empty(t, warnings)
	assert.Equal(t, domain.BinaryVerified, bin.State)
	assert.Equal(t, "dsdgen Population Generator (Version 2.13.0)", bin.Describe)
	assert.Len(t, bin.Digest, 16)
}

func TestVerifier_Verify_RestoresExecutableBit(t *testing.T) {
	v := newVerifier(t)
	project := newProject(t)
	bin := script(t, project.SourceDir, "dsqgen", "#!/bin/sh\necho 'dsqgen Query Generator'\n", domain.FilePerm)

	warnings := v.Verify(context.Background(), project, []*domain.Binary{bin})

	assert.Empty(t, warnings)
	assert.Equal(t, domain.BinaryVerified, bin.State)
	assert.True(t, bin.Executable)

	info, err := os.Stat(bin.Path)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0o100)
}

func TestVerifier_Verify_Missing(t *testing.T) {
	v := newVerifier(t)
	project := newProject(t)
	first := &domain.Binary{Target: "distcomp", Path: filepath.Join(project.SourceDir, "distcomp")}
	second := &domain.Binary{Target: "mkheader", Path: filepath.Join(project.SourceDir, "mkheader")}

	warnings := v.Verify(context.Background(), project, []*domain.Binary{first, second})

	require.Len(t, warnings, 1, "missing binaries share one warning")
	assert.Equal(t, domain.WarnVerification, warnings[0].Kind)
	assert.Contains(t, warnings[0].Message, "distcomp, mkheader")
	assert.Equal(t, domain.BinaryMissing, first.State)
	assert.Equal(t, domain.BinaryMissing, second.State)
}

func TestVerifier_Verify_Broken(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "silent", body: "#!/bin/sh\nexit 0\n"},
		{name: "crashes", body: "#!/bin/sh\necho 'segfault' >&2\nexit 139\n"},
		{name: "not_an_executable", body: "\x7fELF garbage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newVerifier(t)
			project := newProject(t)
			bin := script(t, project.SourceDir, tt.name, tt.body, domain.ExecPerm)

			warnings := v.Verify(context.Background(), project, []*domain.Binary{bin})

			require.Len(t, warnings, 1)
			assert.Equal(t, domain.WarnVerification, warnings[0].Kind)
			assert.Equal(t, tt.name, warnings[0].Subject)
			assert.Equal(t, domain.BinaryBroken, bin.State)
			assert.Empty(t, bin.Describe)
		})
	}
}

func TestVerifier_Verify_Timeout(t *testing.T) {
	v := newVerifier(t)
	project := newProject(t)
	project.Verify.Timeout = 100 * time.Millisecond
	bin := script(t, project.SourceDir, "hang", "#!/bin/sh\nexec sleep 30\n", domain.ExecPerm)

	start := time.Now()
	warnings := v.Verify(context.Background(), project, []*domain.Binary{bin})

	require.Len(t, warnings, 1)
	assert.Equal(t, domain.BinaryBroken, bin.State)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestVerifier_Verify_Mixed(t *testing.T) {
	v := newVerifier(t)
	project := newProject(t)
	ok := script(t, project.SourceDir, "dsdgen", "#!/bin/sh\necho dsdgen\n", domain.ExecPerm)
	gone := &domain.Binary{Target: "mkheader", Path: filepath.Join(project.SourceDir, "mkheader")}

	warnings := v.Verify(context.Background(), project, []*domain.Binary{gone, ok})

	require.Len(t, warnings, 1)
	assert.Equal(t, domain.BinaryVerified, ok.State)
	assert.Equal(t, domain.BinaryMissing, gone.State)
}
