// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/BNSketch/pkg/ux"
	"github.com/AleutianAI/BNSketch/services/sketch/cancel"
	"github.com/AleutianAI/BNSketch/services/sketch/sketchbook"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		flags    runFlags
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch SKETCH",
		Short: "Re-run the inference every time the sketch file changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			cmd.SetContext(ctx)

			out := ux.NewPrinter(cmd.OutOrStdout())
			rerun := func(_ context.Context, path string) {
				out.Title("Running " + path)
				res, err := a.solve(cmd, path, flags)
				switch {
				case errors.Is(err, cancel.ErrCancelled) && ctx.Err() != nil:
					return
				case err != nil:
					out.Status(ux.IconError, "%v", err)
				default:
					out.Box(res.results.FormatReport())
				}
				out.Muted("waiting for changes (Ctrl+C to stop)")
			}

			w, err := sketchbook.NewWatcher(args[0], rerun, debounce, a.log())
			if err != nil {
				return err
			}
			defer w.Stop()

			rerun(ctx, args[0])
			w.Start(ctx)
			<-ctx.Done()
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", sketchbook.DefaultDebounce, "quiet period before re-running")
	return cmd
}
