// Package store provides persistence for analyzed sessions.
package store

import (
	"context"
	"time"

	"trade-bias-analyzer/internal/models"
)

// SessionStore defines the interface for session persistence.
type SessionStore interface {
	// Sessions
	SaveSession(ctx context.Context, source string, trades []models.TradeRecord, result *models.AnalysisResult) (string, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	GetTrades(ctx context.Context, sessionID string) ([]models.TradeRecord, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]SessionSummary, error)
	DeleteSession(ctx context.Context, id string) error

	// Counterfactual runs
	SaveCounterfactual(ctx context.Context, sessionID string, result *models.CounterfactualResult) (string, error)
	ListCounterfactuals(ctx context.Context, sessionID string) ([]CounterfactualRun, error)

	Close() error
}

// SessionSummary is the list view of a stored session.
type SessionSummary struct {
	ID           string    `json:"id" yaml:"id"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	Source       string    `json:"source" yaml:"source"`
	TradeCount   int       `json:"trade_count" yaml:"trade_count"`
	Archetype    string    `json:"archetype" yaml:"archetype"`
	DominantBias string    `json:"dominant_bias" yaml:"dominant_bias"`
}

// Session is a stored session with its analysis result.
type Session struct {
	SessionSummary `yaml:",inline"`
	Result         *models.AnalysisResult `json:"result" yaml:"result"`
}

// CounterfactualRun is a stored what-if replay of a session.
type CounterfactualRun struct {
	ID        string                       `json:"id" yaml:"id"`
	SessionID string                       `json:"session_id" yaml:"session_id"`
	CreatedAt time.Time                    `json:"created_at" yaml:"created_at"`
	Result    *models.CounterfactualResult `json:"result" yaml:"result"`
}

// SessionFilter filters session listings.
type SessionFilter struct {
	Archetype    string
	DominantBias string
	Source       string
	Since        time.Time
	Limit        int
}
