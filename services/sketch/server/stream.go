// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/BNSketch/services/sketch/inference"
)

// -----------------------------------------------------------------------------
// Broadcaster
// -----------------------------------------------------------------------------

// broadcaster is the solver observer of a server run. It keeps the full
// history so late subscribers can replay it, and fans reports out to every
// subscriber. It never reports itself gone: runs outlive their viewers.
type broadcaster struct {
	mu      sync.Mutex
	history []inference.StatusReport
	subs    map[*inference.ChannelObserver]struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[*inference.ChannelObserver]struct{})}
}

// setCreated seeds the history with the Created report, which solvers do
// not forward.
func (b *broadcaster) setCreated(r inference.StatusReport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = append([]inference.StatusReport{r}, b.history...)
}

// Notify implements inference.Observer.
func (b *broadcaster) Notify(r inference.StatusReport) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = append(b.history, r)
	for sub := range b.subs {
		if !sub.Notify(r) {
			delete(b.subs, sub)
		}
	}
	return true
}

// subscribe atomically returns the history so far and a subscription for
// everything after it.
func (b *broadcaster) subscribe(buffer int) ([]inference.StatusReport, *inference.ChannelObserver) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := inference.NewChannelObserver(buffer)
	b.subs[sub] = struct{}{}
	return append([]inference.StatusReport(nil), b.history...), sub
}

func (b *broadcaster) unsubscribe(sub *inference.ChannelObserver) {
	sub.Close()
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub)
}

// -----------------------------------------------------------------------------
// Websocket
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const writeTimeout = 10 * time.Second

// handleStream sends status reports as JSON text messages until the run
// ends, then closes normally. With ?cancel_on_close=true, a client that
// disconnects first cancels the run.
func (s *Server) handleStream(c *gin.Context) {
	id := c.Param("id")
	ar, live := s.lookup(id)
	var rec []inference.StatusReport
	if !live {
		r, ok := s.archived(c, id)
		if !ok {
			return
		}
		rec = r.Statuses
	}
	cancelOnClose, _ := strconv.ParseBool(c.Query("cancel_on_close"))

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()
	streamClients.Inc()
	defer streamClients.Dec()

	logger := s.logger.With(slog.String("run", id))
	send := func(r inference.StatusReport) bool {
		_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := ws.WriteJSON(r); err != nil {
			logger.Debug("websocket write failed", slog.String("error", err.Error()))
			return false
		}
		return true
	}
	closeNormally := func(reason string) {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
			time.Now().Add(writeTimeout))
	}

	if !live {
		for _, r := range rec {
			if !send(r) {
				return
			}
		}
		closeNormally("run archived")
		return
	}

	// Reads only detect the peer going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	history, sub := ar.feed.subscribe(s.cfg.StatusBuffer)
	defer ar.feed.unsubscribe(sub)

	var last inference.StatusReport
	for _, r := range history {
		if !send(r) {
			return
		}
		last = r
	}
	for !last.Status.Terminal() {
		select {
		case r := <-sub.Updates():
			if !send(r) {
				return
			}
			last = r
		case <-ar.run.Done():
			// Reports dropped on a full buffer end up here; finish with
			// the authoritative terminal report.
			statuses := ar.run.Solver().StatusLog()
			final := statuses[len(statuses)-1]
			if !send(final) {
				return
			}
			last = final
		case <-gone:
			if cancelOnClose {
				logger.Info("stream client left, cancelling run")
				ar.run.Solver().Cancel()
			}
			return
		}
	}
	closeNormally("run ended")
}
