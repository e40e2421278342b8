package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/moodquiz/backend/internal/models"
)

type userRecord struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar"`
	Grade     string    `json:"grade"`
	Gender    string    `json:"gender"`
	CreatedAt time.Time `json:"created_at"`
}

type responseRecord struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	UserOrigin string    `json:"user_origin,omitempty"` // empty means local
	QuestionID int       `json:"question_id"`
	Score      int       `json:"score"`
	Timestamp  time.Time `json:"timestamp"`
}

func (r userRecord) toModel() models.User {
	return models.User{
		ID:        models.LocalID(r.ID),
		Name:      r.Name,
		Avatar:    r.Avatar,
		Grade:     r.Grade,
		Gender:    r.Gender,
		CreatedAt: r.CreatedAt,
	}
}

func (r responseRecord) toModel() models.Response {
	userID := models.LocalID(r.UserID)
	if models.Origin(r.UserOrigin) == models.OriginRemote {
		userID = models.RemoteID(r.UserID)
	}
	return models.Response{
		ID:         models.LocalID(r.ID),
		UserID:     userID,
		QuestionID: r.QuestionID,
		Score:      r.Score,
		Timestamp:  r.Timestamp,
	}
}

// Store holds the pending users and responses. Every method is a whole
// read-modify-write of the affected collections under one mutex, so
// concurrent writers never lose each other's records.
type Store struct {
	mu      sync.Mutex
	storage Storage
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a store over storage.
func New(storage Storage, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		storage: storage,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Users returns the pending users.
func (s *Store) Users(ctx context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := s.loadUsers(ctx, CollectionUsers)
	if err != nil {
		return nil, err
	}
	out := make([]models.User, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toModel())
	}
	return out, nil
}

// Responses returns the pending responses in insertion order.
func (s *Store) Responses(ctx context.Context) ([]models.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := s.loadResponses(ctx, CollectionResponses)
	if err != nil {
		return nil, err
	}
	out := make([]models.Response, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toModel())
	}
	return out, nil
}

// Snapshot reads both collections under a single lock.
func (s *Store) Snapshot(ctx context.Context) ([]models.User, []models.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	urecs, err := s.loadUsers(ctx, CollectionUsers)
	if err != nil {
		return nil, nil, err
	}
	rrecs, err := s.loadResponses(ctx, CollectionResponses)
	if err != nil {
		return nil, nil, err
	}
	users := make([]models.User, 0, len(urecs))
	for _, r := range urecs {
		users = append(users, r.toModel())
	}
	responses := make([]models.Response, 0, len(rrecs))
	for _, r := range rrecs {
		responses = append(responses, r.toModel())
	}
	return users, responses, nil
}

// AddUser appends a user with a fresh local id.
func (s *Store) AddUser(ctx context.Context, in models.NewUser) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := s.loadUsers(ctx, CollectionUsers)
	if err != nil {
		return models.User{}, err
	}
	var maxID int64
	for _, r := range recs {
		if r.ID > maxID {
			maxID = r.ID
		}
	}
	now := s.now()
	rec := userRecord{
		ID:        nextID(now, maxID),
		Name:      in.Name,
		Avatar:    in.Avatar,
		Grade:     in.Grade,
		Gender:    in.Gender,
		CreatedAt: now,
	}
	if err := s.save(ctx, CollectionUsers, append(recs, rec)); err != nil {
		return models.User{}, err
	}
	return rec.toModel(), nil
}

// AddResponse appends a response with a fresh local id. A zero timestamp is
// replaced with the current time.
func (s *Store) AddResponse(ctx context.Context, in models.NewResponse) (models.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := s.loadResponses(ctx, CollectionResponses)
	if err != nil {
		return models.Response{}, err
	}
	var maxID int64
	for _, r := range recs {
		if r.ID > maxID {
			maxID = r.ID
		}
	}
	now := s.now()
	ts := in.Timestamp
	if ts.IsZero() {
		ts = now
	}
	rec := responseRecord{
		ID:         nextID(now, maxID),
		UserID:     in.UserID.Value,
		QuestionID: in.QuestionID,
		Score:      in.Score,
		Timestamp:  ts,
	}
	if in.UserID.Origin == models.OriginRemote {
		rec.UserOrigin = string(models.OriginRemote)
	}
	if err := s.save(ctx, CollectionResponses, append(recs, rec)); err != nil {
		return models.Response{}, err
	}
	return rec.toModel(), nil
}

// Clear drops both collections.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.SetCollection(ctx, CollectionUsers, nil); err != nil {
		return err
	}
	return s.storage.SetCollection(ctx, CollectionResponses, nil)
}

// RemoveSynced deletes exactly the given records, keeping anything written
// after the caller took its snapshot. Kept responses whose local owner was
// uploaded are rewritten through remap to the owner's server id, so they do
// not outlive their user as orphans. With no concurrent writers this is
// equivalent to Clear.
func (s *Store) RemoveSynced(ctx context.Context, users []models.User, responses []models.Response, remap map[models.ID]models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	urecs, err := s.loadUsers(ctx, CollectionUsers)
	if err != nil {
		return err
	}
	rrecs, err := s.loadResponses(ctx, CollectionResponses)
	if err != nil {
		return err
	}

	keptResponses := dropResponses(rrecs, responses)
	for i, r := range keptResponses {
		if r.UserOrigin != "" {
			continue
		}
		if mapped, ok := remap[models.LocalID(r.UserID)]; ok && !mapped.IsLocal() {
			keptResponses[i].UserID = mapped.Value
			keptResponses[i].UserOrigin = string(models.OriginRemote)
		}
	}

	if err := s.save(ctx, CollectionUsers, dropUsers(urecs, users)); err != nil {
		return err
	}
	return s.save(ctx, CollectionResponses, keptResponses)
}

// SetAside moves records out of the pending collections into the rejected
// ones, where they are kept for inspection but never uploaded again.
func (s *Store) SetAside(ctx context.Context, users []models.User, responses []models.Response) error {
	if len(users) == 0 && len(responses) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(users) > 0 {
		pending, err := s.loadUsers(ctx, CollectionUsers)
		if err != nil {
			return err
		}
		rejected, err := s.loadUsers(ctx, CollectionRejectedUsers)
		if err != nil {
			return err
		}
		drop := make(map[int64]struct{}, len(users))
		for _, u := range users {
			drop[u.ID.Value] = struct{}{}
		}
		for _, r := range pending {
			if _, ok := drop[r.ID]; ok {
				rejected = append(rejected, r)
			}
		}
		if err := s.save(ctx, CollectionRejectedUsers, rejected); err != nil {
			return err
		}
		if err := s.save(ctx, CollectionUsers, dropUsers(pending, users)); err != nil {
			return err
		}
	}

	if len(responses) > 0 {
		pending, err := s.loadResponses(ctx, CollectionResponses)
		if err != nil {
			return err
		}
		rejected, err := s.loadResponses(ctx, CollectionRejectedResponses)
		if err != nil {
			return err
		}
		drop := make(map[int64]struct{}, len(responses))
		for _, r := range responses {
			drop[r.ID.Value] = struct{}{}
		}
		for _, r := range pending {
			if _, ok := drop[r.ID]; ok {
				rejected = append(rejected, r)
			}
		}
		if err := s.save(ctx, CollectionRejectedResponses, rejected); err != nil {
			return err
		}
		if err := s.save(ctx, CollectionResponses, dropResponses(pending, responses)); err != nil {
			return err
		}
	}
	return nil
}

// Rejected returns the records moved aside by SetAside.
func (s *Store) Rejected(ctx context.Context) ([]models.User, []models.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	urecs, err := s.loadUsers(ctx, CollectionRejectedUsers)
	if err != nil {
		return nil, nil, err
	}
	rrecs, err := s.loadResponses(ctx, CollectionRejectedResponses)
	if err != nil {
		return nil, nil, err
	}
	return usersToModels(urecs), responsesToModels(rrecs), nil
}

func dropUsers(recs []userRecord, users []models.User) []userRecord {
	drop := make(map[int64]struct{}, len(users))
	for _, u := range users {
		drop[u.ID.Value] = struct{}{}
	}
	kept := make([]userRecord, 0, len(recs))
	for _, r := range recs {
		if _, ok := drop[r.ID]; !ok {
			kept = append(kept, r)
		}
	}
	return kept
}

func dropResponses(recs []responseRecord, responses []models.Response) []responseRecord {
	drop := make(map[int64]struct{}, len(responses))
	for _, r := range responses {
		drop[r.ID.Value] = struct{}{}
	}
	kept := make([]responseRecord, 0, len(recs))
	for _, r := range recs {
		if _, ok := drop[r.ID]; !ok {
			kept = append(kept, r)
		}
	}
	return kept
}

func usersToModels(recs []userRecord) []models.User {
	out := make([]models.User, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toModel())
	}
	return out
}

func responsesToModels(recs []responseRecord) []models.Response {
	out := make([]models.Response, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toModel())
	}
	return out
}

func (s *Store) loadUsers(ctx context.Context, name string) ([]userRecord, error) {
	var recs []userRecord
	if err := s.load(ctx, name, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *Store) loadResponses(ctx context.Context, name string) ([]responseRecord, error) {
	var recs []responseRecord
	if err := s.load(ctx, name, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// load decodes a collection into dst. Absent or corrupt data leaves dst empty.
func (s *Store) load(ctx context.Context, name string, dst any) error {
	raw, err := s.storage.GetCollection(ctx, name)
	if err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.logger.Warn("local collection corrupt, treating as empty", zap.String("collection", name), zap.Error(err))
		return nil
	}
	return nil
}

func (s *Store) save(ctx context.Context, name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := s.storage.SetCollection(ctx, name, b); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

// nextID derives an id from the wall clock in milliseconds, bumped past the
// largest id already in the collection.
func nextID(now time.Time, maxExisting int64) int64 {
	id := now.UnixMilli()
	if id <= maxExisting {
		id = maxExisting + 1
	}
	return id
}
