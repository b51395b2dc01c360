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
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/BNSketch/pkg/ux"
	"github.com/AleutianAI/BNSketch/services/sketch/archive"
)

// The archive is a single-process database: these commands fail while a
// server holds it open.
func newRunsCmd(a *app) *cobra.Command {
	runs := &cobra.Command{
		Use:   "runs",
		Short: "Inspect archived runs",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List archived runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			arc, err := a.openArchive(false)
			if err != nil {
				return err
			}
			defer arc.Close()
			recs, err := arc.List(cmd.Context())
			if err != nil {
				return err
			}
			p := ux.NewPrinter(cmd.OutOrStdout())
			if len(recs) == 0 {
				p.Muted("no archived runs")
				return nil
			}
			for _, rec := range recs {
				p.Status(outcomeIcon(rec.Outcome), "%s  %-9s %-7s %s  %s",
					rec.ID, rec.Outcome, rec.Mode, rec.StartedAt.Format(time.RFC3339), rec.SketchName)
			}
			return nil
		},
	}

	var asJSON bool
	show := &cobra.Command{
		Use:   "show ID",
		Short: "Print an archived run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arc, err := a.openArchive(false)
			if err != nil {
				return err
			}
			defer arc.Close()
			rec, err := arc.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			}
			p := ux.NewPrinter(cmd.OutOrStdout())
			p.Status(outcomeIcon(rec.Outcome), "%s (%s, %s)", rec.ID, rec.Outcome, rec.Mode)
			if rec.Results != nil {
				p.Box(rec.Results.FormatReport())
				return nil
			}
			p.Line("error: %s", rec.Error)
			for _, s := range rec.Statuses {
				p.Muted("%s", s.Message)
			}
			return nil
		},
	}
	show.Flags().BoolVar(&asJSON, "json", false, "print the record as JSON")

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an archived run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arc, err := a.openArchive(false)
			if err != nil {
				return err
			}
			defer arc.Close()
			if err := arc.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			ux.NewPrinter(cmd.OutOrStdout()).Status(ux.IconSuccess, "deleted %s", args[0])
			return nil
		},
	}

	runs.AddCommand(list, show, del)
	return runs
}

func outcomeIcon(o archive.Outcome) ux.Icon {
	switch o {
	case archive.OutcomeFinished:
		return ux.IconSuccess
	case archive.OutcomeCancelled:
		return ux.IconWarning
	default:
		return ux.IconError
	}
}
