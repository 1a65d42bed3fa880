// Package server exposes the retrieval pipeline over HTTP plus a WebSocket
// endpoint for interactive querying.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/safdari/biharrag/internal/types"
	"github.com/safdari/biharrag/pkg/pipeline"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

type Config struct {
	Addr string
}

type Server struct {
	config   Config
	pipeline *pipeline.Pipeline
	store    types.ChunkStore
}

func New(config Config, p *pipeline.Pipeline, store types.ChunkStore) *Server {
	if config.Addr == "" {
		config.Addr = ":8000"
	}
	return &Server{
		config:   config,
		pipeline: p,
		store:    store,
	}
}

// ListenAndServe registers the routes and blocks serving them.
func (s *Server) ListenAndServe() error {
	log.Printf("Starting server on %s", s.config.Addr)
	return http.ListenAndServe(s.config.Addr, s.Handler())
}

// Handler returns the route table, useful for embedding and tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/query", s.handleQuery)
	mux.HandleFunc("/process-volume", s.handleProcessVolume)
	mux.HandleFunc("/volumes", s.handleVolumes)
	mux.HandleFunc("/search-by-reference", s.handleSearchByReference)
	mux.HandleFunc("/statistics", s.handleStatistics)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"collection": "Bihar ul Anwar",
		"volumes":    stats.TotalVolumes,
		"chunks":     stats.TotalChunks,
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req pipeline.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("query is required"))
		return
	}

	result, err := s.pipeline.Query(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type processVolumeRequest struct {
	Path   string `json:"path"`
	Volume int    `json:"volume"`
}

func (s *Server) handleProcessVolume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req processVolumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("path is required"))
		return
	}
	if req.Volume == 0 {
		req.Volume = pipeline.VolumeNumberFromFilename(req.Path)
	}
	if req.Volume == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("volume could not be determined from %q", req.Path))
		return
	}

	result, err := s.pipeline.IngestVolume(r.Context(), req.Path, req.Volume)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleVolumes(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.ProcessedVolumes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	seen := make(map[int]bool, len(records))
	for _, rec := range records {
		seen[rec.VolumeNumber] = true
	}
	missing := make([]int, 0, pipeline.MaxVolume)
	for v := 1; v <= pipeline.MaxVolume; v++ {
		if !seen[v] {
			missing = append(missing, v)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"processed":       records,
		"processed_count": len(records),
		"missing_volumes": missing,
	})
}

func (s *Server) handleSearchByReference(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	volume, err := strconv.Atoi(q.Get("volume"))
	if err != nil || volume < 1 || volume > pipeline.MaxVolume {
		writeError(w, http.StatusBadRequest, fmt.Errorf("volume must be 1..%d", pipeline.MaxVolume))
		return
	}

	passages, err := s.store.SearchByReference(r.Context(), volume, q.Get("chapter"), q.Get("hadith"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"volume":  volume,
		"chapter": q.Get("chapter"),
		"hadith":  q.Get("hadith"),
		"count":   len(passages),
		"results": passages,
	})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Printf("Error reading message: %v", err)
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Error unmarshaling message: %v", err)
			continue
		}

		go s.handleMessage(conn, msg)
	}
}

func (s *Server) handleMessage(conn *websocket.Conn, msg Message) {
	query := strings.TrimSpace(msg.Content)
	if query == "" {
		s.sendMessage(conn, "error", "empty query")
		return
	}

	s.sendMessage(conn, "status", "Searching Bihar ul Anwar...")

	result, err := s.pipeline.Query(context.Background(), pipeline.QueryRequest{Query: query})
	if err != nil {
		s.sendMessage(conn, "error", fmt.Sprintf("Error: %v", err))
		return
	}

	if err := conn.WriteJSON(Message{Type: "response", Content: result.Answer, Data: result.Sources}); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

func (s *Server) sendMessage(conn *websocket.Conn, msgType string, content string) {
	msg := Message{
		Type:    msgType,
		Content: content,
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
