package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/kiln/internal/app"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

type mocked struct {
	loader *mocks.MockConfigLoader
	logger *mocks.MockLogger
}

func newProvider(t *testing.T) (ComponentProvider, mocked) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := mocked{
		loader: mocks.NewMockConfigLoader(ctrl),
		logger: mocks.NewMockLogger(ctrl),
	}

	application := app.New(
		m.loader,
		nil,
		mocks.NewMockSourceResolver(ctrl),
		mocks.NewMockBuildRecordStore(ctrl),
		mocks.NewMockRecorder(ctrl),
		mocks.NewMockBuildLog(ctrl),
		mocks.NewMockRenderer(ctrl),
		m.logger,
	)

	return func(_ context.Context) (*app.Components, func(), error) {
		return &app.Components{App: application, Logger: m.logger}, func() {}, nil
	}, m
}

// TestRun_Success verifies that the run function returns 0 when the command succeeds.
func TestRun_Success(t *testing.T) {
	provider, _ := newProvider(t)
	stdout := new(bytes.Buffer)

	exitCode := run(context.Background(), []string{"version"}, stdout, new(bytes.Buffer), provider)

	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stdout.String(), "kiln version")
}

func TestRun_ProviderError(t *testing.T) {
	stderr := new(bytes.Buffer)
	provider := func(_ context.Context) (*app.Components, func(), error) {
		return nil, nil, errors.New("graph cycle")
	}

	exitCode := run(context.Background(), []string{"build"}, new(bytes.Buffer), stderr, provider)

	assert.Equal(t, 1, exitCode)
	assert.Equal(t, "Error: graph cycle\n", stderr.String())
}

func TestRun_CommandError(t *testing.T) {
	provider, m := newProvider(t)
	m.loader.EXPECT().Load(".").Return(nil, zerr.Wrap(domain.ErrConfigNotFound, "searched every parent directory"))
	m.logger.EXPECT().Error(gomock.Any()).Do(func(err error) {
		assert.ErrorIs(t, err, domain.ErrConfigNotFound)
	})

	exitCode := run(context.Background(), []string{"build"}, new(bytes.Buffer), new(bytes.Buffer), provider)
	assert.Equal(t, 1, exitCode)
}

func TestRun_UnknownCommand(t *testing.T) {
	provider, m := newProvider(t)
	m.logger.EXPECT().Error(gomock.Any())

	exitCode := run(context.Background(), []string{"deploy"}, new(bytes.Buffer), new(bytes.Buffer), provider)
	assert.Equal(t, 1, exitCode)
}
