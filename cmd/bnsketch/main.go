// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command bnsketch infers Boolean network candidates from sketches.
package main

import (
	"context"
	"fmt"
	"os"
	"time"
)

func main() {
	root, a := newRootCmd()
	err := root.Execute()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if terr := a.teardown(ctx); terr != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", terr)
	}
	if err != nil {
		cancel()
		os.Exit(1)
	}
}
