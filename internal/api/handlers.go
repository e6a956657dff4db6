package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MJE43/gridiron-dice/internal/match"
	"github.com/MJE43/gridiron-dice/internal/play"
	"github.com/MJE43/gridiron-dice/internal/rules"
)

// handleRules publishes the dice tables
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, RulesResponse{
		Outcomes:      rules.OutcomeTable(),
		Chaos:         rules.ChaosTable(),
		EngineVersion: EngineVersion,
	})
}

// handleCreateMatch opens a new session at the kickoff state
func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req CreateMatchRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.metrics.Record("create_match", time.Since(start), true)
			s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON format")
			return
		}
	}
	if err := ValidateCreateMatchRequest(&req); err != nil {
		s.metrics.Record("create_match", time.Since(start), true)
		s.errorHandler.HandleValidationError(w, r, "team", err.Error())
		return
	}

	userTeam := req.UserTeam
	if userTeam == "" {
		userTeam = s.cfg.UserTeamName
	}
	npcTeam := req.NPCTeam
	if npcTeam == "" {
		npcTeam = s.cfg.NPCTeamName
	}

	sess, err := s.sessions.Create(match.New(
		match.WithTeamName(match.User, userTeam),
		match.WithTeamName(match.NPC, npcTeam),
	))
	s.metrics.Record("create_match", time.Since(start), err != nil)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	s.logger.Info("match created", zap.String("match_id", sess.ID.String()))
	s.writeJSON(w, http.StatusCreated, matchResponse(sess.Snapshot()))
}

// handleListMatches lists live sessions, oldest first
func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	snaps := s.sessions.List()
	out := make([]MatchResponse, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, matchResponse(snap))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"matches": out,
		"count":   len(out),
	})
}

// handleGetMatch returns the committed state of one session
func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, matchResponse(sess.Snapshot()))
}

// handleDeleteMatch drops a session
func (s *Server) handleDeleteMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := s.matchID(w, r)
	if !ok {
		return
	}
	if err := s.sessions.Delete(id); err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.logger.Info("match deleted", zap.String("match_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

// handlePlay resolves one play against the committed state
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req PlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.metrics.Record("play", time.Since(start), true)
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON format")
		return
	}
	dice, err := ValidatePlayRequest(&req)
	if err != nil {
		s.metrics.Record("play", time.Since(start), true)
		s.errorHandler.HandleValidationError(w, r, "d6", err.Error())
		return
	}

	res, err := sess.Play(s.resolver, dice)
	s.metrics.Record("play", time.Since(start), err != nil)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	s.logger.Debug("play resolved",
		zap.String("match_id", sess.ID.String()),
		zap.Int("d6", dice.D6),
		zap.String("phase", string(res.Phase)),
		zap.Int("events", len(res.Events)),
	)
	s.writeJSON(w, http.StatusOK, playResponse(sess.ID, res))
}

// handleChaos completes a play that is waiting on its d20
func (s *Server) handleChaos(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req ChaosRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.metrics.Record("chaos", time.Since(start), true)
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON format")
		return
	}
	d20, err := ValidateChaosRequest(&req)
	if err != nil {
		s.metrics.Record("chaos", time.Since(start), true)
		s.errorHandler.HandleValidationError(w, r, "d20", err.Error())
		return
	}

	res, err := sess.Chaos(s.resolver, d20)
	s.metrics.Record("chaos", time.Since(start), err != nil)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	s.logger.Debug("chaos resolved",
		zap.String("match_id", sess.ID.String()),
		zap.Int("d20", d20),
	)
	s.writeJSON(w, http.StatusOK, playResponse(sess.ID, res))
}

func (s *Server) matchID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.errorHandler.HandleValidationError(w, r, "id", "match id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id, ok := s.matchID(w, r)
	if !ok {
		return nil, false
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return nil, false
	}
	return sess, true
}

func matchResponse(snap SessionSnapshot) MatchResponse {
	return MatchResponse{
		ID:            snap.ID.String(),
		State:         snap.State,
		Phase:         snap.Phase(),
		Pending:       snap.Pending,
		Plays:         snap.Plays,
		CreatedAt:     snap.CreatedAt.Format(time.RFC3339),
		EngineVersion: EngineVersion,
	}
}

func playResponse(id uuid.UUID, res play.Result) PlayResponse {
	resp := PlayResponse{
		MatchID:       id.String(),
		State:         res.State,
		Events:        res.Events,
		Phase:         res.Phase,
		EngineVersion: EngineVersion,
	}
	if h, ok := play.Highlight(res.Events); ok {
		resp.Highlight = &h
	}
	return resp
}
