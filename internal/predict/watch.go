package predict

import (
	"context"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/thyroid-cli/internal/registry"
)

// Watch reloads the latest registry version whenever the registry root
// changes and swaps it into s. It returns when ctx is done. A version that
// fails to load is logged and the current predictor keeps serving.
func Watch(ctx context.Context, resolver *registry.Resolver, s *Server) error {
	if err := os.MkdirAll(resolver.Root, 0o755); err != nil {
		return eris.Wrapf(err, "predict: create registry root %s", resolver.Root)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return eris.Wrap(err, "predict: create watcher")
	}
	defer w.Close() //nolint:errcheck

	if err := w.Add(resolver.Root); err != nil {
		return eris.Wrapf(err, "predict: watch %s", resolver.Root)
	}
	zap.L().Info("predict: watching registry", zap.String("root", resolver.Root))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			reload(resolver, s)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			zap.L().Warn("predict: watcher error", zap.Error(err))
		}
	}
}

// reload swaps in the latest version if it is newer than the active one.
func reload(resolver *registry.Resolver, s *Server) {
	version, ok, err := resolver.LatestVersion()
	if err != nil || !ok {
		return
	}
	if active := s.Active(); active != nil && active.Version >= version {
		return
	}

	dir, ok, err := resolver.LatestDir()
	if err != nil || !ok {
		return
	}
	p, err := LoadDir(dir)
	if err != nil {
		zap.L().Warn("predict: reload failed", zap.String("dir", dir), zap.Error(err))
		return
	}
	s.Swap(p)
}
