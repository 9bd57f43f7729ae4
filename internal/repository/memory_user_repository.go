package repository

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	apperrors "wastepoints/internal/errors"
	"wastepoints/internal/model"
)

// memoryUserRepository is the volatile store used when no database is
// configured. State lives behind mu; per-uid row locks emulate
// SELECT ... FOR UPDATE for transactions.
type memoryUserRepository struct {
	mu          sync.RWMutex
	users       map[string]*model.User // by uid
	emails      map[string]string      // normalized email -> uid
	entries     map[string][]model.LedgerEntry
	serials     map[string]struct{}
	nextUserID  uint
	nextEntryID uint

	rowLocks sync.Map // uid -> chan struct{}
	now      func() time.Time
}

// NewMemoryUserRepository returns an empty in-process store.
func NewMemoryUserRepository() UserRepository {
	return newMemoryUserRepository()
}

func newMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{
		users:   make(map[string]*model.User),
		emails:  make(map[string]string),
		entries: make(map[string][]model.LedgerEntry),
		serials: make(map[string]struct{}),
		now:     time.Now,
	}
}

func (r *memoryUserRepository) Create(ctx context.Context, user *model.User) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	user.Prepare()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.emails[user.Email]; taken {
		return apperrors.ErrConflict
	}
	if _, taken := r.users[user.UID]; taken {
		return apperrors.ErrConflict
	}

	r.nextUserID++
	now := r.now()
	user.ID = r.nextUserID
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	r.users[user.UID] = &stored
	r.emails[user.Email] = user.UID
	return nil
}

func (r *memoryUserRepository) FindByUID(ctx context.Context, uid string) (*model.User, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[uid]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *memoryUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	uid, ok := r.emails[model.NormalizeEmail(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return r.FindByUID(ctx, uid)
}

// FindByUIDForUpdate outside a transaction holds no lock, matching an
// autocommit SELECT ... FOR UPDATE.
func (r *memoryUserRepository) FindByUIDForUpdate(ctx context.Context, uid string) (*model.User, error) {
	return r.FindByUID(ctx, uid)
}

func (r *memoryUserRepository) ApplyDelta(ctx context.Context, uid string, delta int64, entry *model.LedgerEntry) (*model.User, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[uid]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if delta > 0 && user.Points > math.MaxInt64-delta {
		return nil, fmt.Errorf("%w: balance would overflow", apperrors.ErrInvalidAmount)
	}
	if entry.Serial != nil {
		if _, claimed := r.serials[*entry.Serial]; claimed {
			return nil, apperrors.ErrSerialAlreadyClaimed
		}
		r.serials[*entry.Serial] = struct{}{}
	}

	now := r.now()
	r.nextEntryID++
	entry.ID = r.nextEntryID
	entry.UserUID = uid
	entry.CreatedAt = now
	r.entries[uid] = append(r.entries[uid], *entry)

	user.Points += delta
	user.UpdatedAt = now

	copied := *user
	return &copied, nil
}

func (r *memoryUserRepository) ListEntries(ctx context.Context, uid string) ([]model.LedgerEntry, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]model.LedgerEntry, len(r.entries[uid]))
	copy(entries, r.entries[uid])
	return entries, nil
}

// WithTransaction runs fn against a view whose FindByUIDForUpdate takes a row
// lock released when fn returns. Writes are not rolled back if fn fails after
// ApplyDelta, so fn must perform its mutation last.
func (r *memoryUserRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo UserRepository) error) error {
	tx := &memoryTx{memoryUserRepository: r, held: make(map[string]chan struct{})}
	defer tx.release()
	return fn(ctx, tx)
}

func (r *memoryUserRepository) Ping(ctx context.Context) error {
	return ctxErr(ctx)
}

func (r *memoryUserRepository) rowLock(uid string) chan struct{} {
	lock, _ := r.rowLocks.LoadOrStore(uid, make(chan struct{}, 1))
	return lock.(chan struct{})
}

type memoryTx struct {
	*memoryUserRepository
	held map[string]chan struct{}
}

// FindByUIDForUpdate waits for the uid's row lock, bounded by ctx.
func (tx *memoryTx) FindByUIDForUpdate(ctx context.Context, uid string) (*model.User, error) {
	if _, ok := tx.held[uid]; !ok {
		lock := tx.rowLock(uid)
		select {
		case lock <- struct{}{}:
			tx.held[uid] = lock
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: waiting for row lock: %v", apperrors.ErrStorageUnavailable, ctx.Err())
		}
	}
	return tx.FindByUID(ctx, uid)
}

// WithTransaction nests into the current transaction.
func (tx *memoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo UserRepository) error) error {
	return fn(ctx, tx)
}

func (tx *memoryTx) release() {
	for uid, lock := range tx.held {
		<-lock
		delete(tx.held, uid)
	}
}

func ctxErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
	}
	return nil
}
