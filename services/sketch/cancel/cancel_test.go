// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cancel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCause_String(t *testing.T) {
	tests := []struct {
		name     string
		c        Cause
		expected string
	}{
		{"explicit", CauseExplicit, "explicit"},
		{"observer", CauseObserverGone, "observer_gone"},
		{"timeout", CauseTimeout, "timeout"},
		{"shutdown", CauseShutdown, "shutdown"},
		{"unknown", Cause(42), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.c.String())
		})
	}
}

func TestToken_FirstCancelWins(t *testing.T) {
	tok := NewToken()
	require.NoError(t, tok.Check())
	assert.False(t, tok.Cancelled())

	assert.True(t, tok.Cancel(CauseObserverGone, "receiver dropped"))
	assert.False(t, tok.Cancel(CauseExplicit, "later"))

	r, ok := tok.Reason()
	require.True(t, ok)
	assert.Equal(t, CauseObserverGone, r.Cause)
	assert.Equal(t, "receiver dropped", r.Message)

	err := tok.Check()
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Contains(t, err.Error(), "observer_gone")

	select {
	case <-tok.Done():
	default:
		t.Fatal("Done not closed after Cancel")
	}
}

func TestToken_NilAndZeroValue(t *testing.T) {
	var nilTok *Token
	assert.NoError(t, nilTok.Check())

	var zero Token
	assert.NoError(t, zero.Check())
	zero.Cancel(CauseExplicit, "")
	assert.ErrorIs(t, zero.Check(), ErrCancelled)
}

func TestToken_ConcurrentCancel(t *testing.T) {
	tok := NewToken()
	var wg sync.WaitGroup
	wins := make(chan bool, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wins <- tok.Cancel(CauseExplicit, "")
		}()
	}
	wg.Wait()
	close(wins)
	n := 0
	for w := range wins {
		if w {
			n++
		}
	}
	assert.Equal(t, 1, n)
}

func TestToken_WatchContext(t *testing.T) {
	t.Run("deadline maps to timeout", func(t *testing.T) {
		tok := NewToken()
		ctx, cancelCtx := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancelCtx()
		stop := tok.WatchContext(ctx)
		defer stop()

		select {
		case <-tok.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("token not cancelled by deadline")
		}
		r, _ := tok.Reason()
		assert.Equal(t, CauseTimeout, r.Cause)
	})

	t.Run("stop releases watcher", func(t *testing.T) {
		tok := NewToken()
		ctx, cancelCtx := context.WithCancel(context.Background())
		stop := tok.WatchContext(ctx)
		stop()
		stop()
		cancelCtx()
		time.Sleep(10 * time.Millisecond)
		assert.False(t, tok.Cancelled())
	})
}
