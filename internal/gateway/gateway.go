// Package gateway wraps each quiz operation with remote-first, local-fallback
// behaviour and tags every result with where it came from.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/moodquiz/backend/internal/models"
)

// Provenance says which store produced a result.
type Provenance string

const (
	ProvenanceRemote Provenance = "remote"
	ProvenanceLocal  Provenance = "local"
)

var (
	// ErrInvalidAnswer is returned for answers the server would refuse.
	// Nothing is stored, remotely or locally.
	ErrInvalidAnswer = errors.New("invalid answer")
	// ErrInvalidUser is returned for a user without a name.
	ErrInvalidUser = errors.New("invalid user")
)

// Validator checks an answer against the question set and score range.
type Validator interface {
	Check(questionID, score int) error
}

// Remote is the subset of the API client the gateway needs.
type Remote interface {
	Health(ctx context.Context) error
	CreateUser(ctx context.Context, in models.NewUser) (models.User, error)
	SubmitResponse(ctx context.Context, in models.NewResponse) (models.Response, error)
	ListResponses(ctx context.Context) ([]models.ResponseRow, error)
	ListUserResponses(ctx context.Context, userID int64) ([]models.Response, error)
}

// Local is the subset of the local store the gateway needs.
type Local interface {
	AddUser(ctx context.Context, in models.NewUser) (models.User, error)
	AddResponse(ctx context.Context, in models.NewResponse) (models.Response, error)
	Responses(ctx context.Context) ([]models.Response, error)
	Snapshot(ctx context.Context) ([]models.User, []models.Response, error)
}

// Timeouts bound each class of remote call.
type Timeouts struct {
	Write  time.Duration
	Read   time.Duration
	Health time.Duration
}

// DefaultTimeouts are used for any zero field.
var DefaultTimeouts = Timeouts{Write: 3 * time.Second, Read: 5 * time.Second, Health: 2 * time.Second}

// UserResult is a created user.
type UserResult struct {
	User   models.User
	Source Provenance
}

// Ack acknowledges a stored response. Source tells "saved remotely" from
// "saved locally".
type Ack struct {
	Response models.Response
	Source   Provenance
}

// RowsResult is the admin view of every response.
type RowsResult struct {
	Rows   []models.ResponseRow
	Source Provenance
}

// UserResponsesResult holds one user's responses. Remote results are ordered
// by question id ascending, local ones by timestamp descending.
type UserResponsesResult struct {
	Responses []models.Response
	Source    Provenance
}

// Gateway is safe for concurrent use.
type Gateway struct {
	remote   Remote
	local    Local
	rules    Validator
	timeouts Timeouts
	logger   *zap.Logger
	inflight sync.WaitGroup
}

// New creates a gateway. A nil rules accepts every answer.
func New(remote Remote, local Local, rules Validator, timeouts Timeouts, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeouts.Write <= 0 {
		timeouts.Write = DefaultTimeouts.Write
	}
	if timeouts.Read <= 0 {
		timeouts.Read = DefaultTimeouts.Read
	}
	if timeouts.Health <= 0 {
		timeouts.Health = DefaultTimeouts.Health
	}
	return &Gateway{remote: remote, local: local, rules: rules, timeouts: timeouts, logger: logger}
}

// CreateUser stores the user remotely, or locally with a fresh local id when
// the remote fails.
func (g *Gateway) CreateUser(ctx context.Context, in models.NewUser) (UserResult, error) {
	if strings.TrimSpace(in.Name) == "" {
		return UserResult{}, fmt.Errorf("%w: name is required", ErrInvalidUser)
	}
	rctx, cancel := context.WithTimeout(ctx, g.timeouts.Write)
	u, err := g.remote.CreateUser(rctx, in)
	cancel()
	if err == nil {
		return UserResult{User: u, Source: ProvenanceRemote}, nil
	}
	g.logger.Warn("create user: remote failed, saving locally", zap.Error(err))

	u, err = g.local.AddUser(ctx, in)
	if err != nil {
		return UserResult{}, err
	}
	return UserResult{User: u, Source: ProvenanceLocal}, nil
}

// SubmitResponse stores one answer. Answers from users that only exist
// locally go straight to the local store since the server cannot resolve
// their id until the next sync. Invalid answers are refused before either
// store sees them, so the local queue only holds uploadable records.
func (g *Gateway) SubmitResponse(ctx context.Context, in models.NewResponse) (Ack, error) {
	if g.rules != nil {
		if err := g.rules.Check(in.QuestionID, in.Score); err != nil {
			return Ack{}, fmt.Errorf("%w: %w", ErrInvalidAnswer, err)
		}
	}
	if !in.UserID.IsLocal() {
		rctx, cancel := context.WithTimeout(ctx, g.timeouts.Write)
		r, err := g.remote.SubmitResponse(rctx, in)
		cancel()
		if err == nil {
			return Ack{Response: r, Source: ProvenanceRemote}, nil
		}
		g.logger.Warn("submit response: remote failed, saving locally",
			zap.Stringer("user_id", in.UserID), zap.Int("question_id", in.QuestionID), zap.Error(err))
	}

	r, err := g.local.AddResponse(ctx, in)
	if err != nil {
		return Ack{}, err
	}
	return Ack{Response: r, Source: ProvenanceLocal}, nil
}

// SubmitResponseAsync stores the answer in the background and returns
// immediately. Failures are logged and never retried. The write is detached
// from ctx cancellation so leaving the page does not abort it.
func (g *Gateway) SubmitResponseAsync(ctx context.Context, in models.NewResponse) {
	bg := context.WithoutCancel(ctx)
	g.inflight.Add(1)
	go func() {
		defer g.inflight.Done()
		if _, err := g.SubmitResponse(bg, in); err != nil {
			g.logger.Error("background response write failed",
				zap.Stringer("user_id", in.UserID), zap.Int("question_id", in.QuestionID), zap.Error(err))
		}
	}()
}

// Wait blocks until every background write has finished.
func (g *Gateway) Wait() {
	g.inflight.Wait()
}

// FetchAllResponses returns every response joined with its user, newest first.
func (g *Gateway) FetchAllResponses(ctx context.Context) (RowsResult, error) {
	rctx, cancel := context.WithTimeout(ctx, g.timeouts.Read)
	rows, err := g.remote.ListResponses(rctx)
	cancel()
	if err == nil {
		return RowsResult{Rows: rows, Source: ProvenanceRemote}, nil
	}
	g.logger.Warn("fetch responses: remote failed, reading local store", zap.Error(err))

	users, responses, err := g.local.Snapshot(ctx)
	if err != nil {
		return RowsResult{}, err
	}
	return RowsResult{Rows: joinLocal(users, responses), Source: ProvenanceLocal}, nil
}

// FetchUserResponses returns the responses of one user.
func (g *Gateway) FetchUserResponses(ctx context.Context, userID models.ID) (UserResponsesResult, error) {
	if !userID.IsLocal() {
		rctx, cancel := context.WithTimeout(ctx, g.timeouts.Read)
		rows, err := g.remote.ListUserResponses(rctx, userID.Value)
		cancel()
		if err == nil {
			return UserResponsesResult{Responses: rows, Source: ProvenanceRemote}, nil
		}
		g.logger.Warn("fetch user responses: remote failed, reading local store",
			zap.Stringer("user_id", userID), zap.Error(err))
	}

	all, err := g.local.Responses(ctx)
	if err != nil {
		return UserResponsesResult{}, err
	}
	out := make([]models.Response, 0, len(all))
	for _, r := range all {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return UserResponsesResult{Responses: out, Source: ProvenanceLocal}, nil
}

// CheckHealth reports whether the remote answered the probe in time.
func (g *Gateway) CheckHealth(ctx context.Context) bool {
	rctx, cancel := context.WithTimeout(ctx, g.timeouts.Health)
	defer cancel()
	return g.remote.Health(rctx) == nil
}

// joinLocal builds admin rows from the local collections. Responses whose
// user is not in the local collection get placeholder display fields under
// UnknownUserID.
func joinLocal(users []models.User, responses []models.Response) []models.ResponseRow {
	byID := make(map[models.ID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	rows := make([]models.ResponseRow, 0, len(responses))
	for _, r := range responses {
		row := models.ResponseRow{
			QuestionID: r.QuestionID,
			Score:      r.Score,
			Timestamp:  r.Timestamp,
		}
		if u, ok := byID[r.UserID]; ok {
			row.UserID = u.ID
			row.Name, row.Avatar, row.Grade, row.Gender = u.Name, u.Avatar, u.Grade, u.Gender
		} else {
			row.UserID = models.UnknownUserID
			row.Name, row.Avatar = models.UnknownName, models.UnknownAvatar
			row.Grade, row.Gender = models.UnknownGrade, models.UnknownGender
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Timestamp.After(rows[j].Timestamp) })
	return rows
}
