package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"climateworld/internal/network"
	"climateworld/internal/world"
	"climateworld/internal/worldmap"
)

// handleStream upgrades to a websocket and sends every chunk of a world in
// row-major order, followed by a ready message carrying the world summary.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	info, err := s.index.Info(r.Context(), r.PathValue("id"))
	if err != nil {
		writeIndexError(w, err)
		return
	}
	gen, err := s.chunkGenerator(info.Config)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Reader loop: the client sends nothing, so any read result means it left.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	out := make(chan network.Envelope, s.cfg.Stream.ChunkBuffer)
	go s.produceChunks(ctx, info, gen, out)

	timeout := s.cfg.Stream.WriteTimeout.Duration()
	for env := range out {
		_ = conn.SetWriteDeadline(time.Now().Add(timeout))
		if err := conn.WriteJSON(env); err != nil {
			s.logger.Printf("stream %s: write failed: %v", info.ID, err)
			cancel()
			for range out {
			}
			return
		}
	}
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"), time.Now().Add(time.Second))
}

type chunkSource interface {
	Chunk(ctx context.Context, chunkX, chunkY int) (*world.ChunkBuffer, bool, error)
}

func (s *Server) produceChunks(ctx context.Context, info worldmap.WorldInfo, gen chunkSource, out chan<- network.Envelope) {
	defer close(out)

	var seq uint64
	send := func(msgType network.MessageType, payload any) bool {
		seq++
		env, err := network.NewEnvelope(msgType, seq, payload)
		if err != nil {
			s.logger.Printf("stream %s: %v", info.ID, err)
			return false
		}
		select {
		case out <- env:
			return true
		case <-ctx.Done():
			return false
		}
	}

	if !send(network.MessageWorldAccepted, acceptedFor(info.ID, info.Config)) {
		return
	}

	region := world.NewRegion(info.Config.WorldSize, info.Config.ChunkSize)
	for _, coord := range region.Chunks() {
		buf, cached, err := gen.Chunk(ctx, coord.X, coord.Y)
		if err != nil {
			if ctx.Err() == nil {
				send(network.MessageError, network.ErrorPayload{Message: err.Error()})
			}
			return
		}
		if !send(network.MessageChunk, network.NewChunkPayload(buf, cached)) {
			return
		}
	}

	send(network.MessageReady, network.Ready{WorldID: info.ID, Summary: info.Summary})
}
