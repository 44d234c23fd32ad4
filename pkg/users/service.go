package users

import (
	"context"
	"database/sql"
	"time"

	"github.com/biblioteka/biblioteka/pkg/auth"
	"github.com/biblioteka/biblioteka/pkg/errcodes"
	"github.com/biblioteka/biblioteka/pkg/loans"
	"github.com/biblioteka/biblioteka/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// Service manages the member directory.
type Service struct {
	db *bun.DB
}

// NewService creates a new users service.
func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// CreateUserOptions contains options for administratively creating a user.
type CreateUserOptions struct {
	Username string
	Password string
	Role     string
	Email    string
	Name     string
	LastName string
}

// UpdateUserOptions contains options for updating a user. Only non-nil
// fields change; a non-nil Password is re-hashed.
type UpdateUserOptions struct {
	Username *string
	Password *string
	Role     *string
	Email    *string
	Name     *string
	LastName *string
}

// Create adds a user with an explicit role. Unlike self-registration, this
// is how librarian accounts come to exist.
func (svc *Service) Create(ctx context.Context, opts CreateUserOptions) (*models.User, error) {
	if err := svc.checkUnique(ctx, opts.Username, opts.Email, 0); err != nil {
		return nil, err
	}

	hashedPassword, err := auth.HashPassword(opts.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &models.User{
		Username:     opts.Username,
		PasswordHash: hashedPassword,
		Role:         opts.Role,
		Email:        opts.Email,
		Name:         opts.Name,
		LastName:     opts.LastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = svc.db.NewInsert().Model(user).Returning("*").Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return user, nil
}

// Retrieve gets a user by ID.
func (svc *Service) Retrieve(ctx context.Context, id int) (*models.User, error) {
	user := &models.User{}
	err := svc.db.NewSelect().Model(user).Where("u.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("User")
		}
		return nil, errors.WithStack(err)
	}
	return user, nil
}

// List returns all users.
func (svc *Service) List(ctx context.Context) ([]*models.User, error) {
	users := []*models.User{}
	err := svc.db.NewSelect().Model(&users).Order("u.id ASC").Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return users, nil
}

// Update edits user fields, re-hashing the password when one is given.
func (svc *Service) Update(ctx context.Context, id int, opts UpdateUserOptions) (*models.User, error) {
	user := &models.User{}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().Model(user).Where("u.id = ?", id).Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("User")
			}
			return errors.WithStack(err)
		}

		username := user.Username
		if opts.Username != nil {
			username = *opts.Username
		}
		email := user.Email
		if opts.Email != nil {
			email = *opts.Email
		}
		if err := svc.checkUnique(ctx, username, email, user.ID); err != nil {
			return err
		}

		user.Username = username
		user.Email = email
		if opts.Role != nil {
			user.Role = *opts.Role
		}
		if opts.Name != nil {
			user.Name = *opts.Name
		}
		if opts.LastName != nil {
			user.LastName = *opts.LastName
		}
		if opts.Password != nil {
			hashedPassword, err := auth.HashPassword(*opts.Password)
			if err != nil {
				return err
			}
			user.PasswordHash = hashedPassword
		}

		user.UpdatedAt = time.Now()

		_, err = tx.NewUpdate().
			Model(user).
			Column("username", "password", "role", "email", "name", "last_name", "updated_at").
			WherePK().
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// ChangePassword sets a new password after verifying the current one.
func (svc *Service) ChangePassword(ctx context.Context, id int, currentPassword, newPassword string) error {
	user, err := svc.Retrieve(ctx, id)
	if err != nil {
		return err
	}

	if !auth.CheckPassword(currentPassword, user.PasswordHash) {
		return errcodes.Unauthorized("Current password is incorrect.")
	}

	hashedPassword, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	_, err = svc.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("password = ?", hashedPassword).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", id).
		Exec(ctx)
	return errors.WithStack(err)
}

// Delete removes a user and their loan history in one transaction. A user
// still holding copies can't be deleted.
func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*models.User)(nil)).
			Where("id = ?", id).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if !exists {
			return errcodes.NotFound("User")
		}

		outstanding, err := loans.HasOutstandingLoans(ctx, tx, id)
		if err != nil {
			return err
		}
		if outstanding {
			return errcodes.Conflict("This user cannot be deleted while they still have books on loan.")
		}

		_, err = tx.NewDelete().
			Model((*models.Loan)(nil)).
			Where("user_id = ?", id).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.NewDelete().
			Model((*models.User)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		return errors.WithStack(err)
	})
}

// checkUnique enforces case-insensitive username and email uniqueness,
// excluding the given user ID so self-updates don't collide with themselves.
func (svc *Service) checkUnique(ctx context.Context, username, email string, excludeID int) error {
	exists, err := svc.db.NewSelect().
		Model((*models.User)(nil)).
		Where("username = ? COLLATE NOCASE", username).
		Where("id != ?", excludeID).
		Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if exists {
		return errcodes.Conflict("Username already taken.")
	}

	exists, err = svc.db.NewSelect().
		Model((*models.User)(nil)).
		Where("email = ? COLLATE NOCASE", email).
		Where("id != ?", excludeID).
		Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if exists {
		return errcodes.Conflict("Email already taken.")
	}

	return nil
}
