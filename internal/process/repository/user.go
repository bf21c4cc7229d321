package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OpenTramite/tramite/internal/process/model"
)

// UserRepo resolves user records.
type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) GetByID(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if err != nil {
		return nil, translate(err, "user "+userID.String()+" not found")
	}
	return &user, nil
}

func (r *UserRepo) GetByIDs(ctx context.Context, userIDs []uuid.UUID) ([]model.User, error) {
	if len(userIDs) == 0 {
		return []model.User{}, nil
	}
	var users []model.User
	err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error
	if err != nil {
		return nil, translate(err, "users")
	}
	return users, nil
}
