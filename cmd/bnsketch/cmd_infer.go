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
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/BNSketch/pkg/ux"
	"github.com/AleutianAI/BNSketch/services/sketch/algorithms/attractors"
	"github.com/AleutianAI/BNSketch/services/sketch/archive"
	"github.com/AleutianAI/BNSketch/services/sketch/inference"
	"github.com/AleutianAI/BNSketch/services/sketch/sketchbook"
)

// runFlags are shared by every command that runs a solver.
type runFlags struct {
	mode    string
	timeout time.Duration
	quiet   bool
	save    bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "", "property groups to evaluate: full, static or dynamic")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "cancel the run after this long (0 uses the config)")
	cmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "do not print progress")
	cmd.Flags().BoolVar(&f.save, "save", false, "store the run in the archive")
}

// solved is a completed solver run.
type solved struct {
	sketch   *sketchbook.Sketch
	solver   *inference.Solver
	results  *inference.Results
	finished *inference.FinishedSolver
}

// signalContext is cancelled by SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// solve loads the sketch at path and runs it to completion.
func (a *app) solve(cmd *cobra.Command, path string, f runFlags) (*solved, error) {
	sk, err := sketchbook.Load(path)
	if err != nil {
		return nil, err
	}
	return a.solveSketch(cmd, sk, f)
}

func (a *app) solveSketch(cmd *cobra.Command, sk *sketchbook.Sketch, f runFlags) (*solved, error) {
	modeName := f.mode
	if modeName == "" {
		modeName = a.cfg.Solver.Mode
	}
	mode, err := inference.ParseMode(modeName)
	if err != nil {
		return nil, err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()
	timeout := f.timeout
	if timeout == 0 {
		timeout = a.cfg.Solver.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	progress := ux.NewPrinter(cmd.ErrOrStderr())
	var observer inference.Observer
	if !f.quiet {
		observer = inference.ObserverFunc(func(r inference.StatusReport) bool {
			progress.Muted("%s", r.Message)
			return true
		})
	}
	solver := inference.NewSolver(inference.SolverConfig{
		Logger:                 a.log(),
		MaxMinimalTrapFreeVars: a.cfg.TrapSpaces.MaxMinimalFreeVars,
		Observer:               observer,
	})

	started := time.Now()
	res, runErr := solver.Run(ctx, sk, mode)
	if f.save {
		if err := a.archiveRun(sk, mode, started, solver); err != nil {
			a.log().Warn("could not archive run", "error", err)
		}
	}
	if runErr != nil {
		return nil, runErr
	}
	fin, err := solver.Finished()
	if err != nil {
		return nil, err
	}
	return &solved{sketch: sk, solver: solver, results: res, finished: fin}, nil
}

func (a *app) archiveRun(sk *sketchbook.Sketch, mode inference.Mode, started time.Time, s *inference.Solver) error {
	arc, err := a.openArchive(false)
	if err != nil {
		return err
	}
	defer arc.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	id, err := arc.Put(ctx, archive.RecordFromSolver(archive.NewID(), sk.Name, mode, started, s))
	if err != nil {
		return err
	}
	a.log().Info("run archived", "id", id)
	return nil
}

func (a *app) openArchive(ephemeral bool) (*archive.Archive, error) {
	if ephemeral || a.cfg.Archive.InMemory {
		cfg := archive.InMemoryConfig()
		cfg.Logger = a.log()
		return archive.Open(cfg)
	}
	cfg := archive.DefaultConfig(a.cfg.Archive.Path)
	cfg.GCInterval = a.cfg.Archive.GCInterval
	cfg.Logger = a.log()
	return archive.Open(cfg)
}

// -----------------------------------------------------------------------------
// infer
// -----------------------------------------------------------------------------

func newInferCmd(a *app) *cobra.Command {
	var (
		flags  runFlags
		asJSON bool
		refine bool
	)
	cmd := &cobra.Command{
		Use:   "infer SKETCH",
		Short: "Run the inference and print the results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON {
				flags.quiet = true
			}
			out, err := a.solve(cmd, args[0], flags)
			if err != nil {
				return err
			}
			return printInference(cmd, out, asJSON, refine)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the results as JSON")
	cmd.Flags().BoolVar(&refine, "refine", false, "also print regulation signs and essentiality shared by every candidate")
	return cmd
}

// inferenceJSON is the --json document.
type inferenceJSON struct {
	*inference.Results
	Regulations []regulationJSON `json:"refined_regulations,omitempty"`
}

type regulationJSON struct {
	Regulator string `json:"regulator"`
	Target    string `json:"target"`
	Sign      string `json:"sign"`
	Essential string `json:"essential"`
}

func printInference(cmd *cobra.Command, out *solved, asJSON, refine bool) error {
	var regs []regulationJSON
	if refine && out.results.NumSatNetworks.Sign() > 0 {
		refined, err := inference.RefineRegulations(out.finished, &out.sketch.Model)
		if err != nil {
			return fmt.Errorf("refine regulations: %w", err)
		}
		for _, r := range refined {
			regs = append(regs, regulationJSON{
				Regulator: r.Regulator,
				Target:    r.Target,
				Sign:      r.Sign.String(),
				Essential: r.Essential.String(),
			})
		}
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(inferenceJSON{Results: out.results, Regulations: regs})
	}

	p := ux.NewPrinter(cmd.OutOrStdout())
	p.Box(out.results.FormatReport())
	if out.results.NumSatNetworks.Sign() == 0 {
		p.Status(ux.IconWarning, "the sketch is unsatisfiable")
	} else {
		p.Status(ux.IconSuccess, "%s candidates satisfy the sketch", out.results.NumSatNetworks)
	}
	if len(regs) > 0 {
		p.Title("Refined regulations")
		for _, r := range regs {
			p.Line("  %s -> %s  sign=%s essential=%s", r.Regulator, r.Target, r.Sign, r.Essential)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// attractors
// -----------------------------------------------------------------------------

func newAttractorsCmd(a *app) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "attractors SKETCH",
		Short: "Group the satisfying candidates by their number of attractors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.solve(cmd, args[0], flags)
			if err != nil {
				return err
			}
			p := ux.NewPrinter(cmd.OutOrStdout())
			if out.results.NumSatNetworks.Sign() == 0 {
				p.Status(ux.IconWarning, "the sketch is unsatisfiable")
				return nil
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			tokenStop := out.solver.Token().WatchContext(ctx)
			defer tokenStop()

			det := attractors.NewDetector(a.log(), out.solver.Token().Check)
			table, err := det.SortColorsByAttractorCount(ctx, out.finished.Graph)
			if err != nil {
				return err
			}
			p.Title("Candidates by attractor count")
			for count, colors := range table {
				if colors.IsEmpty() {
					continue
				}
				p.Line("  %d attractor(s): %s candidates", count, colors.Cardinality())
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// -----------------------------------------------------------------------------
// variants
// -----------------------------------------------------------------------------

func newVariantsCmd(a *app) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "variants SKETCH [VARIABLE...]",
		Short: "List the admissible update functions of variables",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.solve(cmd, args[0], flags)
			if err != nil {
				return err
			}
			vars := args[1:]
			if len(vars) == 0 {
				vars = out.finished.Network.Variables()
			}
			p := ux.NewPrinter(cmd.OutOrStdout())
			for _, v := range vars {
				variants, more, err := out.finished.UpdateFnVariants(v)
				if err != nil {
					return err
				}
				p.Title(v)
				if len(variants) == 0 {
					p.Muted("  (none)")
				}
				for _, fn := range variants {
					p.Line("  %s", fn)
				}
				if more {
					p.Muted("  ... more than %d", inference.MaxUpdateFnCount)
				}
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
