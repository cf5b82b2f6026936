package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/bottega-vr/bottega/internal/character"
	"github.com/bottega-vr/bottega/internal/orchestrator"
	"github.com/bottega-vr/bottega/pkg/audio"
)

// turnRequest is the body of POST /v1/characters/{name}/turns.
type turnRequest struct {
	Input string `json:"input"`
}

// turnResponse echoes one completed turn. Audio is base64-encoded
// little-endian 16-bit PCM; the field is omitted when the turn produced no
// audio.
type turnResponse struct {
	TurnID     string `json:"turn_id"`
	Character  string `json:"character"`
	Reply      string `json:"reply"`
	Marker     string `json:"marker"`
	Cue        string `json:"cue"`
	Fallback   bool   `json:"fallback"`
	Cached     bool   `json:"cached"`
	Audio      string `json:"audio,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
}

// characterInfo is one entry of GET /v1/characters.
type characterInfo struct {
	Name string `json:"name"`
	Busy bool   `json:"busy"`
}

// characterDetail is the body of GET /v1/characters/{name}.
type characterDetail struct {
	Name  string     `json:"name"`
	Busy  bool       `json:"busy"`
	State sceneState `json:"state"`
}

// sceneState mirrors [character.WorkshopState] on the wire.
type sceneState struct {
	Painting       bool    `json:"painting"`
	Calculating    bool    `json:"calculating"`
	Inventing      bool    `json:"inventing"`
	FocusedProject string  `json:"focused_project,omitempty"`
	Frustration    float64 `json:"frustration"`
}

// turnRecord is one entry of GET /v1/characters/{name}/turns, read from
// the transcript archive.
type turnRecord struct {
	TurnID    string    `json:"turn_id"`
	Visitor   string    `json:"visitor"`
	Reply     string    `json:"reply"`
	Marker    string    `json:"marker"`
	Cached    bool      `json:"cached"`
	Fallback  bool      `json:"fallback"`
	CreatedAt time.Time `json:"created_at"`
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleListCharacters(w http.ResponseWriter, _ *http.Request) {
	out := make([]characterInfo, 0, len(s.names))
	for _, name := range s.names {
		c, _ := s.lookup(name)
		out = append(out, characterInfo{Name: name, Busy: c.Orchestrator.Busy()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetCharacter(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(r.PathValue("name"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown character")
		return
	}
	st := c.Context.State()
	writeJSON(w, http.StatusOK, characterDetail{
		Name: c.Orchestrator.Character(),
		Busy: c.Orchestrator.Busy(),
		State: sceneState{
			Painting:       st.IsPainting,
			Calculating:    st.IsCalculating,
			Inventing:      st.IsInventing,
			FocusedProject: st.FocusedProject,
			Frustration:    st.FrustrationLevel,
		},
	})
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(r.PathValue("name"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown character")
		return
	}

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	turn, err := c.Orchestrator.ProcessTurn(r.Context(), req.Input)
	switch {
	case errors.Is(err, orchestrator.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, "input must not be empty")
		return
	case errors.Is(err, orchestrator.ErrBusy):
		writeError(w, http.StatusConflict, "character is mid-turn, try again")
		return
	case err != nil:
		s.logger.Error("turn failed", "character", c.Orchestrator.Character(), "error", err)
		writeError(w, http.StatusInternalServerError, "turn failed")
		return
	}

	resp := turnResponse{
		TurnID:    turn.ID,
		Character: c.Orchestrator.Character(),
		Reply:     turn.Reply,
		Marker:    turn.Marker.String(),
		Cue:       string(turn.Cue),
		Fallback:  turn.Fallback,
		Cached:    turn.Cached,
	}
	if !turn.Audio.Empty() {
		resp.Audio = base64.StdEncoding.EncodeToString(audio.EncodePCM16(turn.Audio))
		resp.SampleRate = turn.Audio.SampleRate
		resp.Channels = turn.Audio.Channels
		resp.DurationMS = turn.Audio.Duration().Milliseconds()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePutState(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(r.PathValue("name"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown character")
		return
	}

	var req sceneState
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	c.Context.SetState(character.WorkshopState{
		IsPainting:       req.Painting,
		IsCalculating:    req.Calculating,
		IsInventing:      req.Inventing,
		FocusedProject:   req.FocusedProject,
		FrustrationLevel: req.Frustration,
	})

	st := c.Context.State()
	writeJSON(w, http.StatusOK, sceneState{
		Painting:       st.IsPainting,
		Calculating:    st.IsCalculating,
		Inventing:      st.IsInventing,
		FocusedProject: st.FocusedProject,
		Frustration:    st.FrustrationLevel,
	})
}

// defaultRecentLimit caps GET /v1/characters/{name}/turns when the caller
// sends no limit parameter.
const defaultRecentLimit = 20

func (s *Server) handleRecentTurns(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(r.PathValue("name"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown character")
		return
	}

	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	turns, err := s.archive.Recent(r.Context(), c.Orchestrator.Character(), limit)
	if err != nil {
		s.logger.Error("archive read failed", "character", c.Orchestrator.Character(), "error", err)
		writeError(w, http.StatusInternalServerError, "archive read failed")
		return
	}

	out := make([]turnRecord, 0, len(turns))
	for _, t := range turns {
		out = append(out, turnRecord{
			TurnID:    t.ID,
			Visitor:   t.Visitor,
			Reply:     t.Reply,
			Marker:    t.Marker,
			Cached:    t.Cached,
			Fallback:  t.Fallback,
			CreatedAt: t.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(r.PathValue("name"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown character")
		return
	}

	if err := c.Orchestrator.ResetSession(); err != nil {
		writeError(w, http.StatusConflict, "character is mid-turn, try again")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
