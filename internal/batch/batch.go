// Package batch applies a whole offline upload in one database transaction.
package batch

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moodquiz/backend/internal/models"
	"github.com/moodquiz/backend/internal/responses"
	"github.com/moodquiz/backend/internal/users"
	"github.com/moodquiz/backend/pkg/database"
)

// Tx is the write surface available inside a batch transaction.
type Tx interface {
	CreateUser(ctx context.Context, in models.NewUser) (models.User, error)
	CreateResponse(ctx context.Context, userID int64, questionID, score int, ts *time.Time) (models.Response, error)
}

// Runner executes fn atomically.
type Runner interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// PgRunner runs batches against PostgreSQL.
type PgRunner struct {
	pool *pgxpool.Pool
}

// NewPgRunner creates a runner over pool.
func NewPgRunner(pool *pgxpool.Pool) *PgRunner {
	return &PgRunner{pool: pool}
}

type pgTx struct {
	users     *users.Repository
	responses *responses.Repository
}

func (t pgTx) CreateUser(ctx context.Context, in models.NewUser) (models.User, error) {
	return t.users.Create(ctx, in)
}

func (t pgTx) CreateResponse(ctx context.Context, userID int64, questionID, score int, ts *time.Time) (models.Response, error) {
	return t.responses.Create(ctx, userID, questionID, score, ts)
}

// InTx implements Runner.
func (r *PgRunner) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(pgTx{users: users.NewRepository(tx), responses: responses.NewRepository(tx)})
	})
}

// Apply validates the whole batch, then creates every user and every
// response in one transaction. Response user ids that match an uploaded
// user's local id are rewritten to the new server id; others pass through.
func Apply(ctx context.Context, runner Runner, rules responses.Rules, b models.SyncBatch) (models.SyncResult, error) {
	for i, r := range b.Responses {
		if err := rules.Check(r.QuestionID, r.Score); err != nil {
			return models.SyncResult{}, fmt.Errorf("response %d: %w", i, err)
		}
	}

	var res models.SyncResult
	err := runner.InTx(ctx, func(tx Tx) error {
		idMap := make(map[int64]int64, len(b.Users))
		for _, u := range b.Users {
			created, err := tx.CreateUser(ctx, models.NewUser{Name: u.Name, Avatar: u.Avatar, Grade: u.Grade, Gender: u.Gender})
			if err != nil {
				return fmt.Errorf("create user %d: %w", u.ID, err)
			}
			idMap[u.ID] = created.ID.Value
		}
		for _, r := range b.Responses {
			userID := r.UserID
			if mapped, ok := idMap[userID]; ok {
				userID = mapped
			}
			var ts *time.Time
			if !r.Timestamp.IsZero() {
				t := r.Timestamp
				ts = &t
			}
			if _, err := tx.CreateResponse(ctx, userID, r.QuestionID, r.Score, ts); err != nil {
				return fmt.Errorf("create response for user %d: %w", userID, err)
			}
		}

		res = models.SyncResult{
			SyncedUsers:     len(b.Users),
			SyncedResponses: len(b.Responses),
			UserIDs:         make(map[string]int64, len(idMap)),
		}
		for local, remote := range idMap {
			res.UserIDs[strconv.FormatInt(local, 10)] = remote
		}
		return nil
	})
	if err != nil {
		return models.SyncResult{}, err
	}
	return res, nil
}
