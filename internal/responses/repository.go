package responses

import (
	"context"
	"time"

	"github.com/moodquiz/backend/internal/models"
	"github.com/moodquiz/backend/pkg/database"
)

// Repository handles response persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates a responses repository over a pool or a transaction.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts one answer. A nil timestamp means now; a set one is kept so
// synced answers retain their original time.
func (r *Repository) Create(ctx context.Context, userID int64, questionID, score int, ts *time.Time) (models.Response, error) {
	const query = `INSERT INTO responses (user_id, question_id, score, created_at)
		VALUES ($1, $2, $3, COALESCE($4::timestamptz, NOW()))
		RETURNING id, created_at`
	resp := models.Response{UserID: models.RemoteID(userID), QuestionID: questionID, Score: score}
	var id int64
	if err := r.db.QueryRow(ctx, query, userID, questionID, score, ts).Scan(&id, &resp.Timestamp); err != nil {
		return models.Response{}, err
	}
	resp.ID = models.RemoteID(id)
	return resp, nil
}

// ListAll returns every response joined with its user, newest first. Responses
// whose user row is missing get placeholder display fields.
func (r *Repository) ListAll(ctx context.Context) ([]models.ResponseRow, error) {
	const query = `SELECT r.user_id,
			COALESCE(u.name, $1), COALESCE(u.avatar, $2), COALESCE(u.grade, $3), COALESCE(u.gender, $4),
			r.question_id, r.score, r.created_at
		FROM responses r
		LEFT JOIN users u ON u.id = r.user_id
		ORDER BY r.created_at DESC, r.id DESC`
	rows, err := r.db.Query(ctx, query, models.UnknownName, models.UnknownAvatar, models.UnknownGrade, models.UnknownGender)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.ResponseRow, 0)
	for rows.Next() {
		var row models.ResponseRow
		var userID int64
		if err := rows.Scan(&userID, &row.Name, &row.Avatar, &row.Grade, &row.Gender, &row.QuestionID, &row.Score, &row.Timestamp); err != nil {
			return nil, err
		}
		row.UserID = models.RemoteID(userID)
		out = append(out, row)
	}
	return out, rows.Err()
}

// ListByUser returns one user's responses ordered by question id.
func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]models.Response, error) {
	const query = `SELECT id, user_id, question_id, score, created_at
		FROM responses WHERE user_id = $1
		ORDER BY question_id ASC, created_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Response, 0)
	for rows.Next() {
		var resp models.Response
		var id, uid int64
		if err := rows.Scan(&id, &uid, &resp.QuestionID, &resp.Score, &resp.Timestamp); err != nil {
			return nil, err
		}
		resp.ID, resp.UserID = models.RemoteID(id), models.RemoteID(uid)
		out = append(out, resp)
	}
	return out, rows.Err()
}
