package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/frahmantamala/hrm-access/internal/account"
	userDatamodel "github.com/frahmantamala/hrm-access/internal/core/datamodel/user"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) account.RepositoryAPI {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, user *userDatamodel.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

// Update writes every column except the password hash and creation time.
func (r *AccountRepository) Update(ctx context.Context, user *userDatamodel.User) error {
	err := r.db.WithContext(ctx).
		Model(user).
		Select("*").
		Omit("id", "password_hash", "created_at", "last_login", "username").
		Updates(user).Error
	return translate(err)
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *AccountRepository) List(ctx context.Context) ([]*userDatamodel.User, error) {
	var users []*userDatamodel.User
	err := r.db.WithContext(ctx).Order("username ASC").Find(&users).Error
	return users, err
}

func (r *AccountRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&userDatamodel.User{}, id).Error
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return r.db.WithContext(ctx).
		Model(&userDatamodel.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"password_hash": passwordHash,
			"updated_at":    time.Now(),
		}).Error
}

func (r *AccountRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&userDatamodel.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login", at).Error
}

func (r *AccountRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&userDatamodel.User{}).Count(&n).Error
	return n, err
}

// translate maps unique violations of both dialects onto account.ErrUsernameConflict.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return account.ErrUsernameConflict
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return account.ErrUsernameConflict
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return account.ErrUsernameConflict
	}
	return err
}
