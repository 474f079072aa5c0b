// Package monolith provides the application container and module interface.
package monolith

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/fd1az/oracle-arbitrage-bot/internal/config"
	"github.com/fd1az/oracle-arbitrage-bot/internal/di"
	"github.com/fd1az/oracle-arbitrage-bot/internal/logger"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	Services() di.ServiceRegistry
	// Go runs fn under the shared supervisor; the first error cancels every task.
	Go(name string, fn func(ctx context.Context) error)
	// OnClose registers cleanup run by Close in reverse order.
	OnClose(fn func() error)
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// App implements the Monolith interface.
type App struct {
	config    *config.Config
	logger    logger.LoggerInterface
	container di.Container

	group *errgroup.Group
	ctx   context.Context

	closeMu sync.Mutex
	closers []func() error
}

// New creates a new application container. Tasks started with Go are bound
// to ctx.
func New(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) *App {
	group, gctx := errgroup.WithContext(ctx)

	container := di.NewContainer()

	// Register global services
	container.Register("config", cfg)
	container.Register("logger", log)

	return &App{
		config:    cfg,
		logger:    log,
		container: container,
		group:     group,
		ctx:       gctx,
	}
}

func (a *App) Config() *config.Config {
	return a.config
}

func (a *App) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *App) Services() di.ServiceRegistry {
	return a.container
}

// Context is cancelled when any supervised task fails or the parent is done.
func (a *App) Context() context.Context {
	return a.ctx
}

// Go starts a supervised task.
func (a *App) Go(name string, fn func(ctx context.Context) error) {
	a.group.Go(func() error {
		if err := fn(a.ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error(a.ctx, "task failed", "task", name, "error", err)
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	})
}

// Wait blocks until every supervised task has returned and reports the
// first failure.
func (a *App) Wait() error {
	return a.group.Wait()
}

// OnClose registers a cleanup function.
func (a *App) OnClose(fn func() error) {
	a.closeMu.Lock()
	defer a.closeMu.Unlock()
	a.closers = append(a.closers, fn)
}

// RegisterModules registers all provided modules.
func (a *App) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules.
func (a *App) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Close runs the registered cleanups in reverse order and joins their errors.
func (a *App) Close() error {
	a.closeMu.Lock()
	closers := a.closers
	a.closers = nil
	a.closeMu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
