package api

import (
	"github.com/MJE43/gridiron-dice/internal/match"
	"github.com/MJE43/gridiron-dice/internal/play"
	"github.com/MJE43/gridiron-dice/internal/rules"
)

// EngineError represents a structured error response with context
type EngineError struct {
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
}

// Error implements the error interface
func (e EngineError) Error() string {
	return e.Message
}

// Error types
const (
	// Input validation errors
	ErrTypeValidation  = "validation_error"
	ErrTypeInvalidDice = "invalid_dice"
	ErrTypeMissingDice = "missing_dice"

	// Match-related errors
	ErrTypeMatchNotFound  = "match_not_found"
	ErrTypeChaosPending   = "chaos_pending"
	ErrTypeNoChaosPending = "no_chaos_pending"
	ErrTypeSessionLimit   = "session_limit"

	// System errors
	ErrTypeTimeout  = "timeout"
	ErrTypeInternal = "internal_error"
)

// ErrorCategory represents error categories for monitoring
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryMatch      ErrorCategory = "match"
	CategorySystem     ErrorCategory = "system"
	CategoryTimeout    ErrorCategory = "timeout"
)

// GetErrorCategory returns the category for an error type
func GetErrorCategory(errType string) ErrorCategory {
	switch errType {
	case ErrTypeValidation, ErrTypeInvalidDice, ErrTypeMissingDice:
		return CategoryValidation
	case ErrTypeMatchNotFound, ErrTypeChaosPending, ErrTypeNoChaosPending, ErrTypeSessionLimit:
		return CategoryMatch
	case ErrTypeTimeout:
		return CategoryTimeout
	default:
		return CategorySystem
	}
}

// VersionInfo contains engine version information
type VersionInfo struct {
	EngineVersion string `json:"engine_version"`
	StateVersion  string `json:"state_version"`
	GitCommit     string `json:"git_commit,omitempty"`
	BuildTime     string `json:"build_time,omitempty"`
}

// CreateMatchRequest starts a new match session
type CreateMatchRequest struct {
	UserTeam string `json:"user_team,omitempty"`
	NPCTeam  string `json:"npc_team,omitempty"`
}

// PlayRequest carries the dice for one play. D20 may be supplied up front
// when the caller already rolled it.
type PlayRequest struct {
	D6  *int `json:"d6"`
	D10 *int `json:"d10,omitempty"`
	D20 *int `json:"d20,omitempty"`
}

// ChaosRequest completes a play that is waiting on its chaos die
type ChaosRequest struct {
	D20 *int `json:"d20"`
}

// MatchResponse describes a session and its committed state
type MatchResponse struct {
	ID            string      `json:"id"`
	State         match.State `json:"state"`
	Phase         play.Phase  `json:"phase"`
	Pending       *play.Dice  `json:"pending,omitempty"`
	Plays         int         `json:"plays"`
	CreatedAt     string      `json:"created_at"`
	EngineVersion string      `json:"engine_version"`
}

// PlayResponse is the result of one resolver call. While the phase is
// AWAITING_CHAOS_D20 the state is provisional and not yet committed.
type PlayResponse struct {
	MatchID       string       `json:"match_id"`
	State         match.State  `json:"state"`
	Events        []play.Event `json:"events"`
	Phase         play.Phase   `json:"phase"`
	Highlight     *play.Event  `json:"highlight,omitempty"`
	EngineVersion string       `json:"engine_version"`
}

// RulesResponse publishes the dice tables
type RulesResponse struct {
	Outcomes      []rules.Outcome     `json:"outcomes"`
	Chaos         []rules.ChaosEffect `json:"chaos"`
	EngineVersion string              `json:"engine_version"`
}
