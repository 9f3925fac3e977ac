package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yashrajoria/grocery-backend/models"
)

// userRow is the PostgreSQL shape of a user.
type userRow struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string     `gorm:"uniqueIndex;not null"`
	Password  string     `gorm:"not null"`
	LastLogin *time.Time `gorm:"column:last_login"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
}

func (userRow) TableName() string { return "users" }

func (u *userRow) toModel() *models.User {
	return &models.User{
		ID:        u.ID.String(),
		Email:     u.Email,
		Password:  u.Password,
		LastLogin: u.LastLogin,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// GormUserRepository keeps users in PostgreSQL.
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Migrate creates or updates the users table.
func (r *GormUserRepository) Migrate() error {
	return r.db.AutoMigrate(&userRow{})
}

func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	row := userRow{Email: user.Email, Password: user.Password}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}

	user.ID = row.ID.String()
	user.CreatedAt = row.CreatedAt
	user.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var row userRow
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&row).Error
	if err != nil {
		return nil, translateGormError(err)
	}
	return row.toModel(), nil
}

func (r *GormUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var row userRow
	if err := r.db.WithContext(ctx).Where("id = ?", uid).First(&row).Error; err != nil {
		return nil, translateGormError(err)
	}
	return row.toModel(), nil
}

func (r *GormUserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}

	res := r.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", uid).Update("last_login", at)
	if res.Error != nil {
		return fmt.Errorf("update last login: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func translateGormError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("query users: %w", err)
}
