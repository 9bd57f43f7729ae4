package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"wastepoints/internal/auth"
	apperrors "wastepoints/internal/errors"
	"wastepoints/internal/metrics"
	"wastepoints/internal/model"
	"wastepoints/internal/repository"
)

const (
	// DefaultStorageTimeout bounds each ledger operation's use of the store.
	DefaultStorageTimeout = 3 * time.Second
	// DefaultAwardReason is used for awards submitted without a reason.
	DefaultAwardReason = "device-serial"

	operationAward  = "award"
	operationRedeem = "redeem"
)

// AwardCommand requests points for a user.
type AwardCommand struct {
	UID    string
	Amount float64
	Reason string
	Serial string
}

// RedeemCommand spends points on a reward. RewardID, when non-zero, names a
// catalog reward; Cost is then optional but must match the catalog price.
type RedeemCommand struct {
	UID        string
	Cost       float64
	RewardName string
	RewardID   int
}

// Balance is the result of a ledger mutation.
type Balance struct {
	UID    string `json:"uid"`
	Points int64  `json:"points"`
}

// AccountSummary is the public view of a user's balance.
type AccountSummary struct {
	UID    string `json:"uid"`
	Points int64  `json:"points"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// LedgerService applies award and redeem operations to user balances.
type LedgerService interface {
	Award(ctx context.Context, principal auth.Principal, cmd AwardCommand) (*Balance, error)
	Redeem(ctx context.Context, principal auth.Principal, cmd RedeemCommand) (*Balance, error)
	FetchBalance(ctx context.Context, uid string) (*AccountSummary, error)
	History(ctx context.Context, principal auth.Principal, uid string) ([]model.LedgerEntry, error)
	Rewards() []model.Reward
}

type ledgerService struct {
	users   repository.UserRepository
	catalog *RewardCatalog
	logger  *zap.Logger
	metrics *metrics.Metrics
	timeout time.Duration
}

// LedgerOption customizes a LedgerService.
type LedgerOption func(*ledgerService)

// WithStorageTimeout sets the bound applied to store calls.
func WithStorageTimeout(d time.Duration) LedgerOption {
	return func(s *ledgerService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithCatalog replaces the default reward catalog.
func WithCatalog(c *RewardCatalog) LedgerOption {
	return func(s *ledgerService) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithMetrics records ledger outcomes on m.
func WithMetrics(m *metrics.Metrics) LedgerOption {
	return func(s *ledgerService) { s.metrics = m }
}

// NewLedgerService creates a new ledger service. A nil logger discards logs.
func NewLedgerService(users repository.UserRepository, logger *zap.Logger, opts ...LedgerOption) LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ledgerService{
		users:   users,
		catalog: DefaultRewardCatalog(),
		logger:  logger,
		timeout: DefaultStorageTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Award adds points to the caller's own balance and records the award.
func (s *ledgerService) Award(ctx context.Context, principal auth.Principal, cmd AwardCommand) (_ *Balance, err error) {
	start := time.Now()
	defer func() { s.observe(operationAward, start, err) }()

	amount, err := ParsePoints(cmd.Amount)
	if err != nil {
		return nil, err
	}
	serial := cmd.Serial
	if !ValidSerial(serial) {
		return nil, fmt.Errorf("%w: malformed serial", apperrors.ErrInvalidRequest)
	}
	if err := authorize(principal, cmd.UID); err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		reason = DefaultAwardReason
	}
	entry := model.NewAwardEntry(amount, reason, serial)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.users.ApplyDelta(ctx, cmd.UID, amount, &entry)
	if err != nil {
		return nil, storageError(err)
	}

	s.metrics.AddPoints(operationAward, amount)
	s.logger.Info("points awarded",
		zap.String("uid", user.UID),
		zap.Int64("amount", amount),
		zap.String("serial", serial),
		zap.Int64("balance", user.Points),
	)
	return &Balance{UID: user.UID, Points: user.Points}, nil
}

// Redeem spends points from the caller's own balance. The sufficiency check
// and the debit run under the user's row lock, so concurrent redemptions
// cannot jointly overdraw.
func (s *ledgerService) Redeem(ctx context.Context, principal auth.Principal, cmd RedeemCommand) (_ *Balance, err error) {
	start := time.Now()
	defer func() { s.observe(operationRedeem, start, err) }()

	cost, name, err := s.redemption(cmd)
	if err != nil {
		return nil, err
	}
	if err := authorize(principal, cmd.UID); err != nil {
		return nil, err
	}
	entry := model.NewRedeemEntry(cost, name)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var updated *model.User
	err = s.users.WithTransaction(ctx, func(ctx context.Context, repo repository.UserRepository) error {
		user, err := repo.FindByUIDForUpdate(ctx, cmd.UID)
		if err != nil {
			return err
		}
		if user.Points < cost {
			return apperrors.ErrInsufficientBalance
		}
		updated, err = repo.ApplyDelta(ctx, cmd.UID, -cost, &entry)
		return err
	})
	if err != nil {
		return nil, storageError(err)
	}

	s.metrics.AddPoints(operationRedeem, cost)
	s.logger.Info("points redeemed",
		zap.String("uid", updated.UID),
		zap.Int64("cost", cost),
		zap.String("reward", name),
		zap.Int64("balance", updated.Points),
	)
	return &Balance{UID: updated.UID, Points: updated.Points}, nil
}

// redemption resolves the cost and reward name of a redeem request.
func (s *ledgerService) redemption(cmd RedeemCommand) (int64, string, error) {
	name := strings.TrimSpace(cmd.RewardName)
	if cmd.RewardID == 0 {
		cost, err := ParsePoints(cmd.Cost)
		return cost, name, err
	}

	reward, ok := s.catalog.Find(cmd.RewardID)
	if !ok {
		return 0, "", fmt.Errorf("%w: unknown reward %d", apperrors.ErrInvalidRequest, cmd.RewardID)
	}
	if cmd.Cost != 0 {
		cost, err := ParsePoints(cmd.Cost)
		if err != nil {
			return 0, "", err
		}
		if cost != reward.Points {
			return 0, "", fmt.Errorf("%w: cost does not match reward %d", apperrors.ErrInvalidRequest, reward.ID)
		}
	}
	return reward.Points, reward.Name, nil
}

// FetchBalance returns the public balance view of uid.
func (s *ledgerService) FetchBalance(ctx context.Context, uid string) (*AccountSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.users.FindByUID(ctx, uid)
	if err != nil {
		err = storageError(err)
		s.metrics.IncBalanceLookup(outcome(err))
		return nil, err
	}
	s.metrics.IncBalanceLookup(metrics.OutcomeSuccess)
	return &AccountSummary{UID: user.UID, Points: user.Points, Name: user.Name, Email: user.Email}, nil
}

// History returns the caller's audit log in insertion order.
func (s *ledgerService) History(ctx context.Context, principal auth.Principal, uid string) ([]model.LedgerEntry, error) {
	if err := authorize(principal, uid); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.users.FindByUID(ctx, uid); err != nil {
		return nil, storageError(err)
	}
	entries, err := s.users.ListEntries(ctx, uid)
	if err != nil {
		return nil, storageError(err)
	}
	return entries, nil
}

func (s *ledgerService) Rewards() []model.Reward {
	return s.catalog.List()
}

func (s *ledgerService) observe(operation string, start time.Time, err error) {
	result := outcome(err)
	s.metrics.ObserveOperation(operation, result, time.Since(start))

	switch result {
	case metrics.OutcomeRejected:
		s.logger.Debug("ledger operation rejected", zap.String("operation", operation), zap.Error(err))
	case metrics.OutcomeError:
		s.logger.Error("ledger operation failed", zap.String("operation", operation), zap.Error(err))
	}
}

// authorize checks that the caller acts on their own account.
func authorize(principal auth.Principal, uid string) error {
	if principal.IsZero() || principal.UID() != uid {
		return apperrors.ErrForbidden
	}
	return nil
}

// storageError maps a bare context failure from the store onto
// ErrStorageUnavailable. Store errors that already carry a kind pass through.
func storageError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		if !errors.Is(err, apperrors.ErrStorageUnavailable) {
			return fmt.Errorf("%w: %v", apperrors.ErrStorageUnavailable, err)
		}
	}
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, apperrors.ErrStorageUnavailable) || !apperrors.IsExpected(err):
		return metrics.OutcomeError
	default:
		return metrics.OutcomeRejected
	}
}
