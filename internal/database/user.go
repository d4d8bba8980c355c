package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"main/internal/model"
)

// ErrDuplicateEmail is returned when an insert violates the users email
// unique constraint.
var ErrDuplicateEmail = errors.New("email already registered")

// UserStore persists user records and their OAuth account links.
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	FindUserByID(ctx context.Context, id int64) (*model.User, error)
	CreateUser(ctx context.Context, email string, password, name *string) (*model.User, error)
	FindOAuthAccount(ctx context.Context, providerID, providerUserID string) (*model.OAuthAccount, error)
	// LinkOAuthUser finds a user by email or creates one, then records the
	// (provider, provider user) link, all inside a single transaction.
	LinkOAuthUser(ctx context.Context, providerID, providerUserID, email string, name *string) (*model.User, error)
}

type userStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) UserStore {
	return &userStore{db: db}
}

const userColumns = "id, email, password, name, created_at, updated_at"

func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	var password, name sql.NullString
	var updatedAt sql.NullTime

	err := row.Scan(&user.ID, &user.Email, &password, &name, &user.CreatedAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No user found is not an error
		}
		return nil, err
	}

	if password.Valid {
		user.Password = &password.String
	}
	if name.Valid {
		user.Name = &name.String
	}
	if updatedAt.Valid {
		user.UpdatedAt = &updatedAt.Time
	}

	return user, nil
}

func (s *userStore) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = $1", email)
	return scanUser(row)
}

func (s *userStore) FindUserByID(ctx context.Context, id int64) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id)
	return scanUser(row)
}

func (s *userStore) CreateUser(ctx context.Context, email string, password, name *string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		"INSERT INTO users (email, password, name, created_at) VALUES ($1, $2, $3, $4) RETURNING "+userColumns,
		email, password, name, time.Now())

	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return user, nil
}

func (s *userStore) FindOAuthAccount(ctx context.Context, providerID, providerUserID string) (*model.OAuthAccount, error) {
	acct := &model.OAuthAccount{}
	err := s.db.QueryRowContext(ctx,
		"SELECT provider_id, provider_user_id, user_id FROM oauth_accounts WHERE provider_id = $1 AND provider_user_id = $2",
		providerID, providerUserID).Scan(&acct.ProviderID, &acct.ProviderUserID, &acct.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return acct, nil
}

func (s *userStore) LinkOAuthUser(ctx context.Context, providerID, providerUserID, email string, name *string) (*model.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	user, err := scanUser(tx.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = $1", email))
	if err != nil {
		return nil, err
	}

	if user == nil {
		// ON CONFLICT DO NOTHING keeps two concurrent first-time logins
		// with the same email from creating two rows; the loser of the
		// race re-reads the winner's row.
		user, err = scanUser(tx.QueryRowContext(ctx,
			"INSERT INTO users (email, name, created_at) VALUES ($1, $2, $3) ON CONFLICT (email) DO NOTHING RETURNING "+userColumns,
			email, name, time.Now()))
		if err != nil {
			return nil, err
		}
		if user == nil {
			user, err = scanUser(tx.QueryRowContext(ctx,
				"SELECT "+userColumns+" FROM users WHERE email = $1", email))
			if err != nil {
				return nil, err
			}
			if user == nil {
				return nil, fmt.Errorf("user for email %q vanished mid-transaction", email)
			}
		}
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO oauth_accounts (provider_id, provider_user_id, user_id) VALUES ($1, $2, $3) ON CONFLICT (provider_id, provider_user_id) DO NOTHING",
		providerID, providerUserID, user.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return user, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
