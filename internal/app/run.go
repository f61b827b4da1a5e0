package app

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/specialistvlad/treeforge/internal/builder"
	"github.com/specialistvlad/treeforge/internal/ctxlog"
	"github.com/specialistvlad/treeforge/internal/fsutil"
	"github.com/specialistvlad/treeforge/internal/notify"
)

// Run loads the graph, builds it once and copies the result to the output
// path. With Serve set it keeps the status server up until ctx is done.
func (a *App) Run(ctx context.Context) (err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.")

	if err := a.checkOutputPath(); err != nil {
		return err
	}

	g, err := a.loader.Load(ctx, a.config.GraphPath)
	if err != nil {
		return fmt.Errorf("failed to load graph: %w", err)
	}
	a.logger.Info("Graph loaded.", "files", len(g.Files), "sources", len(g.Sources), "transforms", len(g.Transforms))

	var opts []builder.Option
	if a.config.TempDir != "" {
		opts = append(opts, builder.WithTempDir(a.config.TempDir))
	}
	b, err := builder.New(ctx, g.Root, opts...)
	if err != nil {
		return fmt.Errorf("failed to construct builder: %w", err)
	}
	defer func() {
		err = multierr.Append(err, b.Cleanup())
	}()
	a.logger.Debug("Builder constructed.", "node_count", len(b.NodeWrappers()), "watched", b.WatchedPaths(), "unwatched", b.UnwatchedPaths())

	if err := a.metrics.Observe(b); err != nil {
		return fmt.Errorf("failed to observe builder: %w", err)
	}
	if a.config.NotifyURL != "" {
		fwd, dialErr := notify.Dial(ctx, notify.Options{URL: a.config.NotifyURL, Namespace: a.config.NotifyNamespace})
		if dialErr != nil {
			return fmt.Errorf("failed to connect notifier: %w", dialErr)
		}
		defer func() {
			err = multierr.Append(err, fwd.Close())
		}()
		if err := fwd.Observe(b); err != nil {
			return fmt.Errorf("failed to observe builder: %w", err)
		}
	}
	a.setBuilder(b)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	grp, gctx := errgroup.WithContext(runCtx)

	if a.config.StatusPort > 0 {
		ln, err := a.listenStatus()
		if err != nil {
			return err
		}
		grp.Go(func() error { return a.serveStatus(ln) })
		grp.Go(func() error {
			<-gctx.Done()
			return a.closeStatusServer()
		})
	}

	grp.Go(func() error {
		if !a.config.Serve {
			defer stop()
		}
		if err := a.build(gctx, b); err != nil {
			return err
		}
		if a.config.Serve {
			a.logger.Info("Serving build status until interrupted.")
		}
		return nil
	})

	err = grp.Wait()
	a.logger.Debug("App.Run method finished.")
	return err
}

// build runs one build and copies the result to the output path.
func (a *App) build(ctx context.Context, b *builder.Builder) error {
	if err := b.Build(ctx); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	out := a.config.OutputPath
	if out == "" {
		a.logger.Info("No output path configured, the tree is discarded on exit.", "path", b.OutputPath())
		return nil
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := fsutil.EmptyDir(out); err != nil {
		return fmt.Errorf("failed to prepare output directory: %w", err)
	}
	if err := fsutil.CopyTree(b.OutputPath(), out, true); err != nil {
		return fmt.Errorf("failed to copy build output to %s: %w", out, err)
	}
	a.logger.Info("Build output written.", "path", out)
	return nil
}

// checkOutputPath refuses to replace an existing output directory unless
// overwriting was requested.
func (a *App) checkOutputPath() error {
	out := a.config.OutputPath
	if out == "" || a.config.Overwrite {
		return nil
	}
	if _, err := os.Stat(out); err == nil {
		return fmt.Errorf("output directory %s already exists; pass -overwrite to replace it", out)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("error accessing output directory %s: %w", out, err)
	}
	return nil
}
