package filewatch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// ModifiedError is the cause of contexts canceled by UntilModifyContext.
type ModifiedError struct {
	Path string
	Op   fsnotify.Op
}

func (m *ModifiedError) Error() string {
	return fmt.Sprintf("%s is updated (%s)", m.Path, m.Op)
}

// UntilModifyContext returns a context that is canceled with a *ModifiedError
// when one of the files is written, created, removed or renamed.
//
// Parent directories are watched, so replacing a file by rename is also detected.
//
// If error is not nil, both of the context and the cancel function are nil.
func UntilModifyContext(ctx context.Context, files ...string) (context.Context, func(), error) {
	cctx, cancel := context.WithCancelCause(ctx)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		cancel(err)
		return nil, nil, err
	}

	targets := map[string]struct{}{}
	dirs := map[string]struct{}{}
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			w.Close()
			cancel(err)
			return nil, nil, err
		}
		targets[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for d := range dirs {
		if err := w.Add(d); err != nil {
			w.Close()
			cancel(err)
			return nil, nil, err
		}
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-cctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Op == fsnotify.Chmod {
					continue
				}
				if _, ok := targets[filepath.Clean(event.Name)]; !ok {
					continue
				}
				cancel(&ModifiedError{Path: event.Name, Op: event.Op})
				return
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				cancel(err)
				return
			}
		}
	}()

	return cctx, func() { cancel(nil) }, nil
}

// Supervise calls run with a context which is canceled when one of files is modified,
// and calls run again after that.
//
// It returns when ctx is done or run returns for another reason.
// onRestart, if not nil, is called before each restart.
func Supervise(
	ctx context.Context,
	files []string,
	run func(context.Context) error,
	onRestart func(*ModifiedError),
) error {
	for {
		wctx, cancel, err := UntilModifyContext(ctx, files...)
		if err != nil {
			return err
		}
		err = run(wctx)
		cause := context.Cause(wctx)
		cancel()

		if ctx.Err() != nil {
			return err
		}
		var mod *ModifiedError
		if !errors.As(cause, &mod) {
			return err
		}
		if onRestart != nil {
			onRestart(mod)
		}
	}
}
