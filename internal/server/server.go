package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"climateworld/internal/config"
	"climateworld/internal/indexdb"
	"climateworld/internal/network"
	"climateworld/internal/terrain"
	"climateworld/internal/world"
	"climateworld/internal/worldmap"
)

const maxRequestBody = 64 * 1024

type Server struct {
	cfg      *config.Config
	index    *worldmap.Index
	db       *indexdb.SQLiteIndex
	stores   world.StoreProvider
	palette  world.Palette
	schema   *jsonschema.Schema
	upgrader websocket.Upgrader
	httpSrv  *http.Server
	logger   *log.Logger

	mu     sync.Mutex
	chunks map[string]*terrain.CachedGenerator

	rngMu sync.Mutex
	rng   *rand.Rand
}

func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	palette, err := world.NewPalette(cfg.BiomeColors)
	if err != nil {
		return nil, fmt.Errorf("biome colors: %w", err)
	}
	schema, err := compileCreateWorldSchema()
	if err != nil {
		return nil, fmt.Errorf("compile request schema: %w", err)
	}

	s := &Server{
		cfg:     cfg,
		palette: palette,
		schema:  schema,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: log.New(log.Writer(), "worldserver ", log.LstdFlags|log.Lmicroseconds),
		chunks: make(map[string]*terrain.CachedGenerator),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if cfg.Cache.Enabled {
		s.stores = world.NewDiskStoreProvider(cfg.Cache.Dir)
	} else {
		s.stores = world.NewMemoryStoreProvider()
	}

	var recorder worldmap.Recorder
	if cfg.IndexPath != "" {
		db, err := indexdb.OpenSQLite(cfg.IndexPath)
		if err != nil {
			return nil, fmt.Errorf("open world index: %w", err)
		}
		s.db = db
		recorder = db
	}
	s.index = worldmap.NewIndex(cfg.Limits.MaxLoadedWorlds, recorder)
	restored, err := s.index.Restore(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}
	if restored > 0 {
		s.logger.Printf("restored %d recorded worlds", restored)
	}
	return s, nil
}

// Handler returns the HTTP routes of the service.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /worlds", s.handleCreateWorld)
	mux.HandleFunc("GET /worlds", s.handleListWorlds)
	mux.HandleFunc("GET /worlds/{id}", s.handleWorld)
	mux.HandleFunc("GET /worlds/{id}/chunks/{cx}/{cy}", s.handleChunk)
	mux.HandleFunc("GET /worlds/{id}/export", s.handleExport)
	mux.HandleFunc("GET /worlds/{id}/stream", s.handleStream)
	mux.HandleFunc("GET /lookup", s.handleLookup)
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.ListenAddress, s.cfg.HTTPPort)
	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("HTTP server listening on %s", addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Close releases the chunk stores and the world index database.
func (s *Server) Close() error {
	s.mu.Lock()
	var errs []error
	for digest, gen := range s.chunks {
		if err := gen.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(s.chunks, digest)
	}
	s.mu.Unlock()
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

type createWorldResponse struct {
	World     worldmap.WorldInfo     `json:"world"`
	Accepted  network.WorldAccepted  `json:"accepted"`
	Fallbacks []config.FieldFallback `json:"fallbacks"`
}

func (s *Server) handleCreateWorld(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if len(body) > maxRequestBody {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := s.schema.Validate(doc); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	var fields config.FieldValues
	if err := json.Unmarshal(body, &fields); err != nil {
		http.Error(w, "invalid request fields", http.StatusBadRequest)
		return
	}

	s.rngMu.Lock()
	genCfg, fallbacks := config.ParseFields(fields, s.cfg.Generation, s.rng)
	s.rngMu.Unlock()
	if genCfg.WorldSize > s.cfg.Limits.MaxWorldSize {
		fallbacks = append(fallbacks, config.FieldFallback{
			Field:  "world_size",
			Input:  fields.WorldSize,
			Value:  strconv.Itoa(s.cfg.Generation.WorldSize),
			Reason: "exceeds limit",
		})
		genCfg.WorldSize = s.cfg.Generation.WorldSize
	}
	for _, fb := range fallbacks {
		s.logger.Printf("world request fallback: %s", fb)
	}

	id := uuid.NewString()
	started := time.Now()
	grid, err := terrain.NewGenerator(genCfg).GenerateWorld(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("generation failed: %v", err), http.StatusServiceUnavailable)
		return
	}
	info, err := s.index.Add(r.Context(), id, genCfg, grid)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.logger.Printf("generated world %s (seed %d, %dx%d) in %s", id, genCfg.Seed, grid.Width, grid.Height, time.Since(started).Round(time.Millisecond))

	if fallbacks == nil {
		fallbacks = []config.FieldFallback{}
	}
	w.Header().Set("Location", "/worlds/"+id)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, createWorldResponse{
		World:     info,
		Accepted:  acceptedFor(id, genCfg),
		Fallbacks: fallbacks,
	})
}

func (s *Server) handleListWorlds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.index.Worlds())
}

func (s *Server) handleWorld(w http.ResponseWriter, r *http.Request) {
	info, err := s.index.Info(r.Context(), r.PathValue("id"))
	if err != nil {
		writeIndexError(w, err)
		return
	}
	writeJSON(w, info)
}

type lookupResponse struct {
	World string     `json:"world"`
	X     int        `json:"x"`
	Y     int        `json:"y"`
	Cell  world.Cell `json:"cell"`
	Color string     `json:"color"`
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := q.Get("world")
	xStr := q.Get("x")
	yStr := q.Get("y")
	if id == "" || xStr == "" || yStr == "" {
		http.Error(w, "world, x and y query parameters required", http.StatusBadRequest)
		return
	}
	x, err := strconv.Atoi(xStr)
	if err != nil {
		http.Error(w, "invalid x parameter", http.StatusBadRequest)
		return
	}
	y, err := strconv.Atoi(yStr)
	if err != nil {
		http.Error(w, "invalid y parameter", http.StatusBadRequest)
		return
	}

	cell, err := s.index.Lookup(r.Context(), id, x, y)
	if err != nil {
		writeIndexError(w, err)
		return
	}
	writeJSON(w, lookupResponse{World: id, X: x, Y: y, Cell: cell, Color: s.palette.Hex(cell.Biome)})
}

func (s *Server) handleChunk(w http.ResponseWriter, r *http.Request) {
	cx, err := strconv.Atoi(r.PathValue("cx"))
	if err != nil {
		http.Error(w, "invalid chunk x", http.StatusBadRequest)
		return
	}
	cy, err := strconv.Atoi(r.PathValue("cy"))
	if err != nil {
		http.Error(w, "invalid chunk y", http.StatusBadRequest)
		return
	}
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
	buf, cached, err := gen.Chunk(r.Context(), cx, cy)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, network.NewChunkPayload(buf, cached))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	info, grid, err := s.index.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeIndexError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := network.EncodeGrid(&buf, grid); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", network.GridContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.grid.zst"`, info.ID))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

// chunkGenerator returns the shared cached generator for a config.
func (s *Server) chunkGenerator(cfg config.Generation) (*terrain.CachedGenerator, error) {
	digest := terrain.ConfigDigest(cfg)
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen, ok := s.chunks[digest]; ok {
		return gen, nil
	}
	gen, err := terrain.NewCachedGenerator(terrain.NewGenerator(cfg), s.stores)
	if err != nil {
		return nil, err
	}
	s.chunks[digest] = gen
	return gen, nil
}

func acceptedFor(id string, cfg config.Generation) network.WorldAccepted {
	perAxis := cfg.WorldSize / cfg.ChunkSize
	return network.WorldAccepted{
		WorldID:   id,
		Seed:      cfg.Seed,
		WorldSize: cfg.WorldSize,
		ChunkSize: cfg.ChunkSize,
		Chunks:    perAxis * perAxis,
	}
}

func writeIndexError(w http.ResponseWriter, err error) {
	if errors.Is(err, worldmap.ErrWorldNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
