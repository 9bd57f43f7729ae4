package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "wastepoints/internal/errors"
	"wastepoints/internal/model"
)

// UserRepository is the user record store. It owns users and their ledger
// entries. ApplyDelta never checks the resulting balance; callers that need
// non-negativity must look the user up with FindByUIDForUpdate inside
// WithTransaction first.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByUID(ctx context.Context, uid string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// FindByUIDForUpdate locks the user until the enclosing transaction ends.
	FindByUIDForUpdate(ctx context.Context, uid string) (*model.User, error)
	// ApplyDelta adds delta to the balance and appends entry in one atomic step.
	// A balance that would leave the int64 range fails with ErrInvalidAmount.
	ApplyDelta(ctx context.Context, uid string, delta int64, entry *model.LedgerEntry) (*model.User, error)
	// ListEntries returns the audit log in insertion order.
	ListEntries(ctx context.Context, uid string) ([]model.LedgerEntry, error)
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo UserRepository) error) error
	Ping(ctx context.Context) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new user. A taken email fails with ErrConflict.
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.ErrConflict
		}
		return translateError(err)
	}
	return nil
}

// FindByUID finds a user by uid.
func (r *userRepository) FindByUID(ctx context.Context, uid string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// FindByEmail finds a user by normalized email.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", model.NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// FindByUIDForUpdate finds a user by uid with a row-level lock.
func (r *userRepository) FindByUIDForUpdate(ctx context.Context, uid string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("uid = ?", uid).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// ApplyDelta increments the balance in SQL and inserts the entry in the same
// transaction. A duplicate serial or a BIGINT overflow rolls both back.
func (r *userRepository) ApplyDelta(ctx context.Context, uid string, delta int64, entry *model.LedgerEntry) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.User{}).
			Where("uid = ?", uid).
			Update("points", gorm.Expr("points + ?", delta))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		entry.UserUID = uid
		if err := tx.Create(entry).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.ErrSerialAlreadyClaimed
			}
			return err
		}

		return tx.Where("uid = ?", uid).First(&user).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// ListEntries lists a user's ledger entries oldest first.
func (r *userRepository) ListEntries(ctx context.Context, uid string) ([]model.LedgerEntry, error) {
	var entries []model.LedgerEntry
	if err := r.db.WithContext(ctx).Where("user_uid = ?", uid).Order("id ASC").Find(&entries).Error; err != nil {
		return nil, translateError(err)
	}
	return entries, nil
}

// WithTransaction executes a function within a database transaction.
func (r *userRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo UserRepository) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &userRepository{db: tx}
		return fn(ctx, txRepo)
	})
	return translateError(err)
}

// Ping checks database connectivity.
func (r *userRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return translateError(sqlDB.PingContext(ctx))
}

// errOutOfRange is MySQL's ER_DATA_OUT_OF_RANGE, raised when points + delta
// leaves the BIGINT range.
const errOutOfRange = 1690

// translateError maps driver level failures onto the store's error kinds.
// Errors that are already domain errors pass through unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotFound
	}
	var mysqlErr *mysqldriver.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == errOutOfRange {
		return fmt.Errorf("%w: balance would overflow", apperrors.ErrInvalidAmount)
	}
	if errors.Is(err, apperrors.ErrStorageUnavailable) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, mysqldriver.ErrInvalidConn) ||
		errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
	}
	return err
}
