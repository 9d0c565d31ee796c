package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reconciler/internal/errors"
	"github.com/vango-dev/reconciler/internal/watch"
	"github.com/vango-dev/reconciler/pkg/protocol"
	"github.com/vango-dev/reconciler/pkg/reconcile"
)

func watchCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Re-reconcile a tree document on every save",
		Long: `Watch a tree document and print a patches frame each time it
changes. The first frame is a snapshot of the whole tree; later frames
carry only the patches since the previous save and are numbered in
sequence.

A save that fails to parse is reported and skipped; the next valid save
is diffed against the last valid tree.

Examples:
  reconcile watch page.yaml
  reconcile watch page.yaml --format binary > frames.bin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), a, args[0], format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json, binary")

	return cmd
}

func runWatch(ctx context.Context, a *app, path, format string) error {
	if err := checkFormat(format, "text", "json", "binary"); err != nil {
		return err
	}

	initial, err := loadTree(path)
	if err != nil {
		return err
	}

	live := a.reconciler().NewLiveTree(initial, reconcile.WithRecover(a.cfg.Recover()))
	defer live.Close()

	var mu sync.Mutex
	emit := func(frame protocol.PatchesFrame, snapshot bool) {
		mu.Lock()
		defer mu.Unlock()
		if err := writeFrame(a.out, format, frame, snapshot); err != nil {
			a.errorMsg("write frame %d: %v", frame.Seq, err)
		}
	}
	emit(live.Snapshot(), true)

	w := watch.New(watch.Config{
		Paths:    []string{path},
		Debounce: a.cfg.Watch.Debounce,
		Logger:   a.logger,
	})
	w.OnChange(func(c watch.Change) {
		if c.Removed {
			mu.Lock()
			a.warn("%s was removed; waiting for it to come back", path)
			mu.Unlock()
			return
		}
		frame, err := reload(ctx, live, path)
		if err != nil {
			mu.Lock()
			a.errorMsg("%s", errors.Classify(err).FormatCompact())
			mu.Unlock()
			return
		}
		if len(frame.Patches) > 0 {
			emit(frame, false)
		}
	})

	errCh := make(chan error, 1)
	go func() { errCh <- w.Start(ctx) }()

	select {
	case <-w.Ready():
		mu.Lock()
		a.info("Watching %s (Ctrl+C to stop)", path)
		mu.Unlock()
	case err := <-errCh:
		return err
	}

	if err := <-errCh; err != nil && !stderrors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// reload parses the document at path and reconciles the live tree with it.
func reload(ctx context.Context, live *reconcile.LiveTree, path string) (protocol.PatchesFrame, error) {
	next, err := loadTree(path)
	if err != nil {
		return protocol.PatchesFrame{}, err
	}
	return live.Update(ctx, next)
}

// writeFrame prints a numbered frame. Text and JSON frames get a header
// line; binary frames carry the snapshot flag instead.
func writeFrame(w io.Writer, format string, frame protocol.PatchesFrame, snapshot bool) error {
	if format != "binary" {
		header := fmt.Sprintf("frame %d (%d patches)", frame.Seq, len(frame.Patches))
		if snapshot {
			header += " snapshot"
		}
		if _, err := fmt.Fprintln(w, header); err != nil {
			return err
		}
	}
	return writePatches(w, format, frame, snapshot)
}
