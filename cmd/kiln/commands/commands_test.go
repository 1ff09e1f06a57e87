package commands_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/cmd/kiln/commands"
	"go.trai.ch/kiln/internal/app"
	"go.trai.ch/kiln/internal/build"
)

type mockApp struct {
	runFunc      func(ctx context.Context, targetNames []string, opts app.RunOptions) error
	cleanFunc    func(ctx context.Context, opts app.CleanOptions) error
	manifestFunc func(ctx context.Context, target, configPath string, w io.Writer) error
}

func (m *mockApp) Run(ctx context.Context, targetNames []string, opts app.RunOptions) error {
	if m.runFunc != nil {
		return m.runFunc(ctx, targetNames, opts)
	}
	return nil
}

func (m *mockApp) Clean(ctx context.Context, opts app.CleanOptions) error {
	if m.cleanFunc != nil {
		return m.cleanFunc(ctx, opts)
	}
	return nil
}

func (m *mockApp) Manifest(ctx context.Context, target, configPath string, w io.Writer) error {
	if m.manifestFunc != nil {
		return m.manifestFunc(ctx, target, configPath, w)
	}
	return nil
}

func TestCommands_Build(t *testing.T) {
	t.Run("wires flags correctly", func(t *testing.T) {
		var capturedOpts app.RunOptions
		var capturedTargets []string

		mock := &mockApp{
			runFunc: func(_ context.Context, targetNames []string, opts app.RunOptions) error {
				capturedOpts = opts
				capturedTargets = targetNames
				return nil
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{"build", "dsdgen", "dsqgen", "-j", "4", "--no-smoke", "--config", "tools/kiln.yaml"})

		require.NoError(t, cli.Execute(context.Background()))
		assert.Equal(t, []string{"dsdgen", "dsqgen"}, capturedTargets)
		assert.Equal(t, app.RunOptions{ConfigPath: "tools/kiln.yaml", Jobs: 4, NoSmoke: true}, capturedOpts)
	})

	t.Run("builds configured targets without arguments", func(t *testing.T) {
		called := false
		mock := &mockApp{
			runFunc: func(_ context.Context, targetNames []string, opts app.RunOptions) error {
				called = true
				assert.Empty(t, targetNames)
				assert.True(t, opts.NoInstall)
				return nil
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{"build", "--no-install"})

		require.NoError(t, cli.Execute(context.Background()))
		assert.True(t, called)
	})

	t.Run("returns error on run failure", func(t *testing.T) {
		mock := &mockApp{
			runFunc: func(_ context.Context, _ []string, _ app.RunOptions) error {
				return errors.New("simulated error")
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{"build"})
		// Silence output to avoid polluting test logs
		cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))

		err := cli.Execute(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "simulated error")
	})
}

func TestCommands_Manifest(t *testing.T) {
	var gotTarget, gotConfig string
	mock := &mockApp{
		manifestFunc: func(_ context.Context, target, configPath string, w io.Writer) error {
			gotTarget, gotConfig = target, configPath
			_, err := io.WriteString(w, "manifest registry 2024.1\n")
			return err
		},
	}

	cli := commands.New(mock)
	buf := new(bytes.Buffer)
	cli.SetOutput(buf, buf)
	cli.SetArgs([]string{"-c", "kiln.yaml", "manifest", "dsqgen"})

	require.NoError(t, cli.Execute(context.Background()))
	assert.Equal(t, "dsqgen", gotTarget)
	assert.Equal(t, "kiln.yaml", gotConfig)
	assert.Equal(t, "manifest registry 2024.1\n", buf.String())

	cli = commands.New(mock)
	cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))
	cli.SetArgs([]string{"manifest", "a", "b"})
	require.Error(t, cli.Execute(context.Background()))
}

func TestCommands_Clean(t *testing.T) {
	var got app.CleanOptions
	called := false
	mock := &mockApp{
		cleanFunc: func(_ context.Context, opts app.CleanOptions) error {
			called = true
			got = opts
			return nil
		},
	}

	cli := commands.New(mock)
	cli.SetArgs([]string{"clean", "--config", "/src/tpcds"})

	require.NoError(t, cli.Execute(context.Background()))
	assert.True(t, called)
	assert.Equal(t, "/src/tpcds", got.ConfigPath)
}

func TestCommands_Version(t *testing.T) {
	cli := commands.New(&mockApp{})
	buf := new(bytes.Buffer)
	cli.SetOutput(buf, buf)
	cli.SetArgs([]string{"version"})

	require.NoError(t, cli.Execute(context.Background()))
	assert.Equal(t, "kiln version "+build.Version+" (commit: "+build.Commit+", date: "+build.Date+")\n", buf.String())
}
