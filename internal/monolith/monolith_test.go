package monolith

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/oracle-arbitrage-bot/internal/config"
	"github.com/fd1az/oracle-arbitrage-bot/internal/di"
	"github.com/fd1az/oracle-arbitrage-bot/internal/logger"
)

func newApp(ctx context.Context) *App {
	return New(ctx, &config.Config{}, logger.New(io.Discard, logger.LevelError, "test", nil))
}

func TestApp_FirstFailureCancelsSiblings(t *testing.T) {
	app := newApp(context.Background())
	boom := errors.New("boom")

	stopped := make(chan struct{})
	app.Go("feed", func(ctx context.Context) error {
		<-ctx.Done()
		close(stopped)
		return ctx.Err()
	})
	app.Go("detector", func(context.Context) error { return boom })

	err := app.Wait()
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "detector")

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("sibling task was not cancelled")
	}
}

func TestApp_CancellationIsNotAFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	app := newApp(ctx)

	app.Go("feed", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	cancel()

	assert.NoError(t, app.Wait())
}

func TestApp_CloseRunsInReverse(t *testing.T) {
	app := newApp(context.Background())

	var order []int
	app.OnClose(func() error { order = append(order, 1); return nil })
	app.OnClose(func() error { order = append(order, 2); return errors.New("second") })

	err := app.Close()
	assert.EqualError(t, err, "second")
	assert.Equal(t, []int{2, 1}, order)
	assert.NoError(t, app.Close())
}

type fakeModule struct {
	registered, started bool
}

func (m *fakeModule) RegisterServices(c di.Container) error {
	m.registered = true
	return nil
}

func (m *fakeModule) Startup(context.Context, Monolith) error {
	m.started = true
	return nil
}

func TestApp_Modules(t *testing.T) {
	app := newApp(context.Background())
	m := &fakeModule{}

	require.NoError(t, app.RegisterModules(m))
	require.NoError(t, app.StartModules(context.Background(), m))
	assert.True(t, m.registered)
	assert.True(t, m.started)

	assert.NotNil(t, app.Services().Get("config"))
}
