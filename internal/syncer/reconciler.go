// Package syncer drains the local fallback store into the remote API,
// remapping locally minted user ids to the ids the server assigns.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/moodquiz/backend/internal/models"
	"github.com/moodquiz/backend/internal/remote"
)

// ErrSyncFailed is returned when any upload fails. Local records are kept.
var ErrSyncFailed = errors.New("sync failed")

// Mode selects how records are uploaded.
type Mode string

const (
	// ModeRecords creates users then responses one request each.
	ModeRecords Mode = "records"
	// ModeBatch sends everything in one POST /api/sync, applied by the
	// server in a single transaction.
	ModeBatch Mode = "batch"
)

// Remote is the subset of the API client used for uploads.
type Remote interface {
	CreateUser(ctx context.Context, in models.NewUser) (models.User, error)
	SubmitResponse(ctx context.Context, in models.NewResponse) (models.Response, error)
	Sync(ctx context.Context, batch models.SyncBatch) (models.SyncResult, error)
}

// Local is the subset of the local store the reconciler drains.
type Local interface {
	Snapshot(ctx context.Context) ([]models.User, []models.Response, error)
	RemoveSynced(ctx context.Context, users []models.User, responses []models.Response, remap map[models.ID]models.ID) error
	SetAside(ctx context.Context, users []models.User, responses []models.Response) error
}

// Validator checks an answer against the question set and score range.
type Validator interface {
	Check(questionID, score int) error
}

// Options tune a Reconciler.
type Options struct {
	Mode         Mode
	Concurrency  int
	WriteTimeout time.Duration
	// Rules, when set, screens pending answers before any upload.
	Rules Validator
}

// Reconciler uploads pending local records.
type Reconciler struct {
	remote Remote
	local  Local
	opts   Options
	logger *zap.Logger
}

// outcome is what a successful upload leaves for the local store to apply.
type outcome struct {
	remap             map[models.ID]models.ID
	rejectedUsers     []models.User
	rejectedResponses []models.Response
}

// New creates a reconciler. Zero options mean records mode, 8 concurrent
// requests per phase and a 3s timeout per request.
func New(remote Remote, local Local, opts Options, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Mode == "" {
		opts.Mode = ModeRecords
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 3 * time.Second
	}
	return &Reconciler{remote: remote, local: local, opts: opts, logger: logger}
}

// Pending reports whether the local store holds anything to upload.
func (r *Reconciler) Pending(ctx context.Context) (bool, error) {
	users, responses, err := r.local.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	return len(users) > 0 || len(responses) > 0, nil
}

// Run uploads every pending user and response. Local records are removed
// only after all uploads succeeded; on a transient failure the remote may hold
// a partial upload and the local store is untouched.
//
// Records the server will never accept are not retried: answers failing
// Options.Rules are set aside before anything is sent, and records the server
// answers with a rejection are set aside once the rest of the pass succeeds.
func (r *Reconciler) Run(ctx context.Context) (models.SyncResult, error) {
	users, responses, err := r.local.Snapshot(ctx)
	if err != nil {
		return models.SyncResult{}, fmt.Errorf("%w: read local store: %v", ErrSyncFailed, err)
	}
	if len(users) == 0 && len(responses) == 0 {
		return models.SyncResult{}, nil
	}

	responses, invalid := r.screen(responses)
	if len(invalid) > 0 {
		if err := r.local.SetAside(ctx, nil, invalid); err != nil {
			return models.SyncResult{}, fmt.Errorf("%w: set aside invalid answers: %w", ErrSyncFailed, err)
		}
		r.logger.Warn("invalid local answers set aside", zap.Int("count", len(invalid)))
	}
	if len(users) == 0 && len(responses) == 0 {
		return models.SyncResult{RejectedResponses: len(invalid)}, nil
	}

	var out outcome
	var res models.SyncResult
	switch r.opts.Mode {
	case ModeBatch:
		res, out, err = r.runBatch(ctx, users, responses)
	default:
		res, out, err = r.runRecords(ctx, users, responses)
	}
	if err != nil {
		r.logger.Warn("sync failed, local records kept",
			zap.Int("pending_users", len(users)), zap.Int("pending_responses", len(responses)), zap.Error(err))
		return models.SyncResult{}, fmt.Errorf("%w: %w", ErrSyncFailed, err)
	}

	if err := r.local.SetAside(ctx, out.rejectedUsers, out.rejectedResponses); err != nil {
		r.logger.Error("sync uploaded but rejected records not set aside", zap.Error(err))
		return res, fmt.Errorf("%w: set aside rejected records: %w", ErrSyncFailed, err)
	}
	if err := r.local.RemoveSynced(ctx, users, responses, out.remap); err != nil {
		r.logger.Error("sync uploaded but local store not cleared", zap.Error(err))
		return res, fmt.Errorf("%w: clear local store: %w", ErrSyncFailed, err)
	}
	res.RejectedUsers = len(out.rejectedUsers)
	res.RejectedResponses = len(out.rejectedResponses) + len(invalid)
	r.logger.Info("sync completed",
		zap.String("mode", string(r.opts.Mode)),
		zap.Int("synced_users", res.SyncedUsers),
		zap.Int("synced_responses", res.SyncedResponses),
		zap.Int("rejected_users", res.RejectedUsers),
		zap.Int("rejected_responses", res.RejectedResponses))
	return res, nil
}

// screen splits responses into those passing Options.Rules and those failing.
func (r *Reconciler) screen(responses []models.Response) (valid, invalid []models.Response) {
	if r.opts.Rules == nil {
		return responses, nil
	}
	valid = make([]models.Response, 0, len(responses))
	for _, resp := range responses {
		if err := r.opts.Rules.Check(resp.QuestionID, resp.Score); err != nil {
			r.logger.Warn("invalid local answer", zap.Stringer("response_id", resp.ID), zap.Error(err))
			invalid = append(invalid, resp)
			continue
		}
		valid = append(valid, resp)
	}
	return valid, invalid
}

func (r *Reconciler) runRecords(ctx context.Context, users []models.User, responses []models.Response) (models.SyncResult, outcome, error) {
	out := outcome{remap: make(map[models.ID]models.ID, len(users))}
	rejectedOwners := make(map[models.ID]struct{})
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for _, u := range users {
		u := u
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, r.opts.WriteTimeout)
			defer cancel()
			created, err := r.remote.CreateUser(cctx, models.NewUser{
				Name:   u.Name,
				Avatar: u.Avatar,
				Grade:  u.Grade,
				Gender: u.Gender,
			})
			mu.Lock()
			defer mu.Unlock()
			if errors.Is(err, remote.ErrRejected) {
				r.logger.Warn("server rejected local user", zap.Stringer("user_id", u.ID), zap.Error(err))
				out.rejectedUsers = append(out.rejectedUsers, u)
				rejectedOwners[u.ID] = struct{}{}
				return nil
			}
			if err != nil {
				return fmt.Errorf("create user %s: %w", u.ID, err)
			}
			out.remap[u.ID] = created.ID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.SyncResult{}, outcome{}, err
	}

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for _, resp := range responses {
		resp := resp
		if _, ok := rejectedOwners[resp.UserID]; ok {
			mu.Lock()
			out.rejectedResponses = append(out.rejectedResponses, resp)
			mu.Unlock()
			continue
		}
		userID := r.resolve(out.remap, resp.UserID)
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, r.opts.WriteTimeout)
			defer cancel()
			_, err := r.remote.SubmitResponse(cctx, models.NewResponse{
				UserID:     userID,
				QuestionID: resp.QuestionID,
				Score:      resp.Score,
				Timestamp:  resp.Timestamp,
			})
			if errors.Is(err, remote.ErrRejected) {
				r.logger.Warn("server rejected local answer", zap.Stringer("response_id", resp.ID), zap.Error(err))
				mu.Lock()
				out.rejectedResponses = append(out.rejectedResponses, resp)
				mu.Unlock()
				return nil
			}
			if err != nil {
				return fmt.Errorf("submit response %s: %w", resp.ID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.SyncResult{}, outcome{}, err
	}

	return models.SyncResult{
		SyncedUsers:     len(users) - len(out.rejectedUsers),
		SyncedResponses: len(responses) - len(out.rejectedResponses),
	}, out, nil
}

// resolve maps a local user id to its new server id. Remote ids pass through;
// a local id missing from the map is sent unchanged.
func (r *Reconciler) resolve(idMap map[models.ID]models.ID, id models.ID) models.ID {
	if !id.IsLocal() {
		return id
	}
	if mapped, ok := idMap[id]; ok {
		return mapped
	}
	r.logger.Warn("response references unknown local user, sending id unchanged", zap.Stringer("user_id", id))
	return id
}

func (r *Reconciler) runBatch(ctx context.Context, users []models.User, responses []models.Response) (models.SyncResult, outcome, error) {
	batch := models.SyncBatch{
		Users:     make([]models.SyncUser, 0, len(users)),
		Responses: make([]models.SyncResponse, 0, len(responses)),
	}
	for _, u := range users {
		batch.Users = append(batch.Users, models.SyncUser{
			ID:     u.ID.Value,
			Name:   u.Name,
			Avatar: u.Avatar,
			Grade:  u.Grade,
			Gender: u.Gender,
		})
	}
	for _, resp := range responses {
		batch.Responses = append(batch.Responses, models.SyncResponse{
			UserID:     resp.UserID.Value,
			QuestionID: resp.QuestionID,
			Score:      resp.Score,
			Timestamp:  resp.Timestamp,
		})
	}

	cctx, cancel := context.WithTimeout(ctx, r.opts.WriteTimeout)
	defer cancel()
	res, err := r.remote.Sync(cctx, batch)
	if err != nil {
		return models.SyncResult{}, outcome{}, fmt.Errorf("batch upload: %w", err)
	}
	if res.SyncedUsers != len(users) || res.SyncedResponses != len(responses) {
		return models.SyncResult{}, outcome{}, fmt.Errorf("batch upload: server stored %d/%d users, %d/%d responses",
			res.SyncedUsers, len(users), res.SyncedResponses, len(responses))
	}

	out := outcome{remap: make(map[models.ID]models.ID, len(res.UserIDs))}
	for local, id := range res.UserIDs {
		v, err := strconv.ParseInt(local, 10, 64)
		if err != nil {
			r.logger.Warn("batch upload returned malformed user id key", zap.String("key", local))
			continue
		}
		out.remap[models.LocalID(v)] = models.RemoteID(id)
	}
	return res, out, nil
}
