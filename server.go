package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/digitpad/digitpad/encoding/strokes"
	"github.com/digitpad/digitpad/inference"
	"github.com/digitpad/digitpad/inference/remote"
	"github.com/digitpad/digitpad/log"
	"github.com/digitpad/digitpad/pad"
	"github.com/digitpad/digitpad/report"
	"github.com/digitpad/digitpad/surface"
	"github.com/digitpad/digitpad/tensor"
	"github.com/digitpad/digitpad/version"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const (
	maxRecordingSize = 8 << 20
	maxPointerSize   = 1 << 10
	maxSessions      = 256
)

var (
	errUnknownSession  = errors.New("unknown session")
	errTooManySessions = errors.New("too many sessions")
)

type ApiServer struct {
	options    pad.Options
	classifier *inference.Classifier
	model      *remote.Client

	mu          sync.Mutex
	sessions    map[string]*pad.Pad
	maxSessions int
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// SessionJSON is the public state of a pad.
type SessionJSON struct {
	ID          string `json:"id"`
	Prediction  int    `json:"prediction"`
	Text        string `json:"text"`
	Drawing     bool   `json:"drawing"`
	Strokes     int    `json:"strokes"`
	Side        int    `json:"side"`
	Block       int    `json:"block"`
	Placeholder bool   `json:"placeholder"`
}

type PointerRequest struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// NewApiServer serves pads built from options. classifier and model may be
// nil, sessions then draw without predicting.
func NewApiServer(options pad.Options, classifier *inference.Classifier, model *remote.Client) *ApiServer {
	return &ApiServer{
		options:    options,
		classifier: classifier,
		model:      model,
		sessions:    make(map[string]*pad.Pad),
		maxSessions: maxSessions,
	}
}

func (s *ApiServer) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error()})
}

func (s *ApiServer) writeSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SuccessResponse{Data: data})
}

func (s *ApiServer) writeBytes(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// statusFor maps pad and classifier errors to HTTP statuses.
func statusFor(err error) int {
	switch errors.Cause(err) {
	case errUnknownSession:
		return http.StatusNotFound
	case errTooManySessions:
		return http.StatusTooManyRequests
	case pad.ErrSuperseded:
		return http.StatusConflict
	case inference.ErrModelNotReady, inference.ErrModelUnavailable:
		return http.StatusServiceUnavailable
	case tensor.ErrNotGrayscale, tensor.ErrNotSquare:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// bodyStatus tells an oversized request body from a malformed one.
func bodyStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func (s *ApiServer) predictor() pad.Predictor {
	if s.classifier == nil {
		return nil
	}
	return s.classifier
}

func (s *ApiServer) session(id string) (*pad.Pad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.sessions[id]
	if !ok {
		return nil, errors.Wrap(errUnknownSession, id)
	}
	return p, nil
}

// withSession resolves the {id} path value before calling h.
func (s *ApiServer) withSession(h func(http.ResponseWriter, *http.Request, string, *pad.Pad)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		p, err := s.session(id)
		if err != nil {
			s.writeError(w, statusFor(err), err)
			return
		}
		h(w, r, id, p)
	}
}

func sessionJSON(id string, p *pad.Pad) SessionJSON {
	prediction := p.Prediction()
	opts := p.Options()
	return SessionJSON{
		ID:          id,
		Prediction:  int(prediction),
		Text:        prediction.String(),
		Drawing:     p.Drawing(),
		Strokes:     len(p.Recording().Strokes),
		Side:        opts.Side,
		Block:       opts.Block,
		Placeholder: !prediction.Valid(),
	}
}

// POST /api/sessions
func (s *ApiServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	p, err := pad.New(s.options, s.predictor())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	id := uuid.New().String()
	s.mu.Lock()
	if len(s.sessions) >= s.maxSessions {
		s.mu.Unlock()
		p.Close()
		err := errors.Wrapf(errTooManySessions, "limit is %d", s.maxSessions)
		s.writeError(w, statusFor(err), err)
		return
	}
	s.sessions[id] = p
	s.mu.Unlock()
	log.Trace.Printf("session %s created", id)

	w.Header().Set("Location", "/api/sessions/"+id)
	s.writeSuccess(w, sessionJSON(id, p))
}

// DELETE /api/sessions/{id}
func (s *ApiServer) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	p, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		s.writeError(w, http.StatusNotFound, errors.Wrap(errUnknownSession, id))
		return
	}
	p.Close()
	log.Trace.Printf("session %s deleted", id)
	s.writeSuccess(w, map[string]string{"id": id})
}

// GET /api/sessions/{id}
func (s *ApiServer) handleGetSession(w http.ResponseWriter, r *http.Request, id string, p *pad.Pad) {
	s.writeSuccess(w, sessionJSON(id, p))
}

// POST /api/sessions/{id}/pointer
func (s *ApiServer) handlePointer(w http.ResponseWriter, r *http.Request, id string, p *pad.Pad) {
	var req PointerRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxPointerSize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, bodyStatus(err), err)
		return
	}

	pt := surface.Point{X: req.X, Y: req.Y}
	switch req.Type {
	case "down":
		p.PointerDown(pt)
	case "move":
		if err := p.PointerMove(pt); err != nil {
			s.writeError(w, statusFor(err), err)
			return
		}
	case "up":
		if _, err := p.Release(r.Context()); err != nil {
			s.writeError(w, statusFor(err), err)
			return
		}
	default:
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("unknown pointer event %q", req.Type))
		return
	}

	s.writeSuccess(w, sessionJSON(id, p))
}

// POST /api/sessions/{id}/clear
func (s *ApiServer) handleClear(w http.ResponseWriter, r *http.Request, id string, p *pad.Pad) {
	p.Clear()
	s.writeSuccess(w, sessionJSON(id, p))
}

// GET /api/sessions/{id}/{drawing,downsampled,preview}.png
func (s *ApiServer) handleImage(surfaceOf func(*pad.Pad) image.Image) func(http.ResponseWriter, *http.Request, string, *pad.Pad) {
	return func(w http.ResponseWriter, r *http.Request, id string, p *pad.Pad) {
		var buf bytes.Buffer
		if err := png.Encode(&buf, surfaceOf(p)); err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		s.writeBytes(w, "image/png", buf.Bytes())
	}
}

// GET /api/sessions/{id}/tensor
func (s *ApiServer) handleTensor(w http.ResponseWriter, r *http.Request, id string, p *pad.Pad) {
	t, err := p.Tensor()
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeSuccess(w, t)
}

// GET /api/sessions/{id}/recording
func (s *ApiServer) handleGetRecording(w http.ResponseWriter, r *http.Request, id string, p *pad.Pad) {
	rec := p.Recording()
	data, err := rec.MarshalBinary()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.strokes\"", id))
	s.writeBytes(w, "application/octet-stream", data)
}

// PUT /api/sessions/{id}/recording
func (s *ApiServer) handlePutRecording(w http.ResponseWriter, r *http.Request, id string, p *pad.Pad) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRecordingSize))
	if err != nil {
		s.writeError(w, bodyStatus(err), fmt.Errorf("failed to read recording: %v", err))
		return
	}

	var rec strokes.Recording
	if err := rec.UnmarshalBinary(data); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, err := p.Replay(r.Context(), rec); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeSuccess(w, sessionJSON(id, p))
}

// GET /api/sessions/{id}/report.pdf
func (s *ApiServer) handleReport(w http.ResponseWriter, r *http.Request, id string, p *pad.Pad) {
	sheet := report.Sheet{
		Title:      "digitpad " + id,
		Recording:  p.Recording(),
		Model:      p.Downsampled(),
		Prediction: p.Prediction(),
	}
	var buf bytes.Buffer
	if err := report.Generate(&buf, sheet); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeBytes(w, "application/pdf", buf.Bytes())
}

// GET /api/model
func (s *ApiServer) handleModel(w http.ResponseWriter, r *http.Request) {
	if s.classifier == nil {
		s.writeSuccess(w, map[string]interface{}{"state": "none"})
		return
	}

	info := map[string]interface{}{
		"url":   s.classifier.ModelURL(),
		"state": s.classifier.State().String(),
	}
	if err := s.classifier.Err(); err != nil {
		info["error"] = err.Error()
	}
	if s.model != nil && s.classifier.State() == inference.Ready {
		info["metadata"] = s.model.Metadata()
	}
	s.writeSuccess(w, info)
}

// GET /api/version
func (s *ApiServer) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeSuccess(w, map[string]string{"version": version.Version})
}

// Close releases every session.
func (s *ApiServer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.sessions {
		p.Close()
		delete(s.sessions, id)
	}
}

func (s *ApiServer) routes() *http.ServeMux {
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.withSession(s.handleGetSession))
	mux.HandleFunc("POST /api/sessions/{id}/pointer", s.withSession(s.handlePointer))
	mux.HandleFunc("POST /api/sessions/{id}/clear", s.withSession(s.handleClear))
	mux.HandleFunc("GET /api/sessions/{id}/drawing.png", s.withSession(s.handleImage(func(p *pad.Pad) image.Image { return p.Canvas() })))
	mux.HandleFunc("GET /api/sessions/{id}/downsampled.png", s.withSession(s.handleImage(func(p *pad.Pad) image.Image { return p.Downsampled() })))
	mux.HandleFunc("GET /api/sessions/{id}/preview.png", s.withSession(s.handleImage(func(p *pad.Pad) image.Image { return p.Preview() })))
	mux.HandleFunc("GET /api/sessions/{id}/tensor", s.withSession(s.handleTensor))
	mux.HandleFunc("GET /api/sessions/{id}/recording", s.withSession(s.handleGetRecording))
	mux.HandleFunc("PUT /api/sessions/{id}/recording", s.withSession(s.handlePutRecording))
	mux.HandleFunc("GET /api/sessions/{id}/report.pdf", s.withSession(s.handleReport))
	mux.HandleFunc("GET /api/model", s.handleModel)
	mux.HandleFunc("GET /api/version", s.handleVersion)

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Root endpoint with API documentation
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `
<!DOCTYPE html>
<html>
<head>
	<title>digitpad REST API</title>
</head>
<body>
	<h1>digitpad REST API</h1>
	<h2>Endpoints:</h2>
	<ul>
		<li>POST /api/sessions - Create a drawing session</li>
		<li>GET /api/sessions/{id} - Get prediction and session state</li>
		<li>DELETE /api/sessions/{id} - Delete session</li>
		<li>POST /api/sessions/{id}/pointer - Pointer event {"type":"down|move|up","x":0,"y":0}</li>
		<li>POST /api/sessions/{id}/clear - Clear the canvas</li>
		<li>GET /api/sessions/{id}/drawing.png - Full resolution drawing</li>
		<li>GET /api/sessions/{id}/downsampled.png - Model input</li>
		<li>GET /api/sessions/{id}/preview.png - Pixelated preview</li>
		<li>GET /api/sessions/{id}/tensor - Model input tensor</li>
		<li>GET /api/sessions/{id}/recording - Download strokes</li>
		<li>PUT /api/sessions/{id}/recording - Replay strokes</li>
		<li>GET /api/sessions/{id}/report.pdf - PDF report</li>
		<li>GET /api/model - Model state</li>
		<li>GET /api/version - Get version</li>
	</ul>
</body>
</html>
		`)
	})

	return mux
}

// runServerMode serves until ctx is cancelled, then drains in-flight requests.
func runServerMode(ctx context.Context, port string, server *ApiServer) error {
	httpServer := &http.Server{
		Addr:    ":" + port,
		Handler: server.routes(),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info.Printf("Starting HTTP server on port %s", port)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	server.Close()
	return err
}
