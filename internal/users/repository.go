package users

import (
	"context"

	"github.com/moodquiz/backend/internal/models"
	"github.com/moodquiz/backend/pkg/database"
)

// Repository handles user persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates a users repository over a pool or a transaction.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a user and returns it with its server id.
func (r *Repository) Create(ctx context.Context, in models.NewUser) (models.User, error) {
	const query = `INSERT INTO users (name, avatar, grade, gender)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	u := models.User{Name: in.Name, Avatar: in.Avatar, Grade: in.Grade, Gender: in.Gender}
	var id int64
	if err := r.db.QueryRow(ctx, query, in.Name, in.Avatar, in.Grade, in.Gender).Scan(&id, &u.CreatedAt); err != nil {
		return models.User{}, err
	}
	u.ID = models.RemoteID(id)
	return u, nil
}
