package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/shopnest/wallet-service/internal/directory"
	"github.com/shopnest/wallet-service/internal/notification"
)

// maxApplyAttempts bounds the optimistic-concurrency retry loop. A mutation
// that still loses the version check after this many attempts surfaces
// ErrConflict to the caller.
const maxApplyAttempts = 3

const statsCacheKey = "wallet:stats:v1"

// Service owns every balance and status mutation. Apply is the only code
// path that changes a wallet balance; freeze, transfer, and recharge flows
// are composed on top of it.
type Service struct {
	repo     Repository
	users    directory.Repository
	notifier notification.Notifier
	cache    *redis.Client
	statsTTL time.Duration
}

// NewService builds the wallet service. cache may be nil, in which case the
// statistics projection reads the stores directly on every call.
func NewService(repo Repository, users directory.Repository, notifier notification.Notifier, cache *redis.Client, statsTTL time.Duration) *Service {
	return &Service{repo: repo, users: users, notifier: notifier, cache: cache, statsTTL: statsTTL}
}

// GetOrCreate returns the owner's wallet, creating it lazily on first reference.
func (s *Service) GetOrCreate(ctx context.Context, ownerID, ownerKind string) (Wallet, error) {
	return s.repo.GetOrCreate(ctx, ownerID, ownerKind)
}

// Get retrieves a wallet by id.
func (s *Service) Get(ctx context.Context, id string) (Wallet, error) {
	return s.repo.Get(ctx, id)
}

// ApplyInput describes one balance mutation. Delta is signed: credit-class
// types require a positive delta, debit-class types a negative one.
type ApplyInput struct {
	WalletID      string
	Delta         int64
	Type          string
	ReferenceType string
	ReferenceID   string
	ActorID       string
	Description   string
}

// Apply performs one atomic balance mutation and appends exactly one ledger
// row. On a version conflict the whole mutation is recomputed from freshly
// read state, up to maxApplyAttempts times.
func (s *Service) Apply(ctx context.Context, in ApplyInput) (Transaction, error) {
	if err := checkDelta(in.Type, in.Delta); err != nil {
		return Transaction{}, err
	}

	var lastErr error
	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		w, err := s.repo.Get(ctx, in.WalletID)
		if err != nil {
			return Transaction{}, err
		}

		m, err := buildMutation(w, in, time.Now().UTC())
		if err != nil {
			return Transaction{}, err
		}

		if err := s.repo.Commit(ctx, m); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				lastErr = err
				continue
			}
			return Transaction{}, err
		}
		return m.Tx, nil
	}

	return Transaction{}, fmt.Errorf("%w after %d attempts: %v", ErrConflict, maxApplyAttempts, lastErr)
}

// CreditInput captures an admin-initiated credit.
type CreditInput struct {
	WalletID string
	Amount   int64
	Reason   string
	ActorID  string
}

// Credit adds money to a wallet on behalf of an admin and notifies the owner.
func (s *Service) Credit(ctx context.Context, in CreditInput) (Transaction, error) {
	tx, err := s.Apply(ctx, ApplyInput{
		WalletID:      in.WalletID,
		Delta:         in.Amount,
		Type:          TypeCredit,
		ReferenceType: RefAdminAction,
		ReferenceID:   uuid.NewString(),
		ActorID:       in.ActorID,
		Description:   in.Reason,
	})
	if err != nil {
		return Transaction{}, err
	}
	s.notify(ctx, notification.KindWalletCredit, in.WalletID, fmt.Sprintf("wallet credited with %d", in.Amount))
	return tx, nil
}

// Freeze transitions an active wallet to frozen. Completed transactions are
// untouched; only future debit-class mutations are gated.
func (s *Service) Freeze(ctx context.Context, walletID, reason, actorID string) (Wallet, error) {
	if strings.TrimSpace(reason) == "" {
		return Wallet{}, ErrReasonRequired
	}

	var lastErr error
	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		w, err := s.repo.Get(ctx, walletID)
		if err != nil {
			return Wallet{}, err
		}
		if w.Frozen() {
			return w, ErrAlreadyFrozen
		}

		m := Mutation{
			WalletID:     w.ID,
			Version:      w.Version,
			Balance:      w.Balance,
			Status:       StatusFrozen,
			FrozenReason: reason,
			Tx:           statusTransaction(w, TypeFreeze, reason, actorID),
		}
		if err := s.repo.Commit(ctx, m); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				lastErr = err
				continue
			}
			return Wallet{}, err
		}

		s.notify(ctx, notification.KindWalletFrozen, w.ID, "wallet frozen: "+reason)
		return s.repo.Get(ctx, walletID)
	}
	return Wallet{}, fmt.Errorf("%w after %d attempts: %v", ErrConflict, maxApplyAttempts, lastErr)
}

// Unfreeze transitions a frozen wallet back to active and clears the reason.
func (s *Service) Unfreeze(ctx context.Context, walletID, reason, actorID string) (Wallet, error) {
	var lastErr error
	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		w, err := s.repo.Get(ctx, walletID)
		if err != nil {
			return Wallet{}, err
		}
		if !w.Frozen() {
			return w, ErrNotFrozen
		}

		m := Mutation{
			WalletID:     w.ID,
			Version:      w.Version,
			Balance:      w.Balance,
			Status:       StatusActive,
			FrozenReason: "",
			Tx:           statusTransaction(w, TypeUnfreeze, reason, actorID),
		}
		if err := s.repo.Commit(ctx, m); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				lastErr = err
				continue
			}
			return Wallet{}, err
		}

		s.notify(ctx, notification.KindWalletUnfrozen, w.ID, "wallet unfrozen")
		return s.repo.Get(ctx, walletID)
	}
	return Wallet{}, fmt.Errorf("%w after %d attempts: %v", ErrConflict, maxApplyAttempts, lastErr)
}

// TransferInput captures a wallet-to-wallet transfer.
type TransferInput struct {
	SourceWalletID string
	DestWalletID   string
	Amount         int64
	ActorID        string
	Reason         string
}

// TransferResult holds both legs of a committed transfer.
type TransferResult struct {
	ReferenceID string
	Out         Transaction
	In          Transaction
}

// Transfer debits the source and credits the destination as one atomic unit.
// Both ledger rows share a reference id and timestamp; the repository locks
// the pair in ascending wallet-id order.
func (s *Service) Transfer(ctx context.Context, in TransferInput) (TransferResult, error) {
	if in.Amount <= 0 {
		return TransferResult{}, ErrInvalidAmount
	}
	if in.SourceWalletID == in.DestWalletID {
		return TransferResult{}, ErrSameWallet
	}

	var lastErr error
	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		src, err := s.repo.Get(ctx, in.SourceWalletID)
		if err != nil {
			return TransferResult{}, err
		}
		dst, err := s.repo.Get(ctx, in.DestWalletID)
		if err != nil {
			return TransferResult{}, err
		}

		now := time.Now().UTC()
		refID := uuid.NewString()

		outMut, err := buildMutation(src, ApplyInput{
			WalletID:      src.ID,
			Delta:         -in.Amount,
			Type:          TypeTransferOut,
			ReferenceType: RefTransfer,
			ReferenceID:   refID,
			ActorID:       in.ActorID,
			Description:   in.Reason,
		}, now)
		if err != nil {
			return TransferResult{}, err
		}
		inMut, err := buildMutation(dst, ApplyInput{
			WalletID:      dst.ID,
			Delta:         in.Amount,
			Type:          TypeTransferIn,
			ReferenceType: RefTransfer,
			ReferenceID:   refID,
			ActorID:       in.ActorID,
			Description:   in.Reason,
		}, now)
		if err != nil {
			return TransferResult{}, err
		}

		if err := s.repo.Commit(ctx, outMut, inMut); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				lastErr = err
				continue
			}
			return TransferResult{}, err
		}

		s.notify(ctx, notification.KindWalletTransfer, dst.ID, fmt.Sprintf("received %d from wallet %s", in.Amount, src.ID))
		return TransferResult{ReferenceID: refID, Out: outMut.Tx, In: inMut.Tx}, nil
	}
	return TransferResult{}, fmt.Errorf("%w after %d attempts: %v", ErrConflict, maxApplyAttempts, lastErr)
}

// History returns a wallet's ledger rows, newest first.
func (s *Service) History(ctx context.Context, walletID string, limit int) ([]Transaction, error) {
	return s.repo.Transactions(ctx, walletID, limit)
}

// Aggregate computes the dashboard projection, serving a cached copy within
// the configured staleness tolerance when Redis is available.
func (s *Service) Aggregate(ctx context.Context) (Stats, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, statsCacheKey).Bytes(); err == nil {
			var st Stats
			if json.Unmarshal(data, &st) == nil {
				return st, nil
			}
		}
	}

	st, err := s.repo.Aggregate(ctx)
	if err != nil {
		return Stats{}, err
	}

	if s.cache != nil && s.statsTTL > 0 {
		if data, err := json.Marshal(st); err == nil {
			s.cache.Set(ctx, statsCacheKey, data, s.statsTTL) // best effort
		}
	}
	return st, nil
}

// UserFilter narrows the users-with-wallets listing.
type UserFilter struct {
	Page   int
	Limit  int
	Search string
	Status string
}

// UserWallet pairs a directory user with their wallet, if one exists yet.
type UserWallet struct {
	User      directory.User
	Wallet    Wallet
	HasWallet bool
}

// listBatchSize is the directory page size used when a status filter forces
// a full walk. Matches the directory repositories' limit cap.
const listBatchSize = 100

// ListUsers returns directory users joined with their wallets. Users without
// a wallet are reported with a zero balance; listing never creates wallets.
// With a status filter the wallet join happens before paging, so total is
// the filtered count and later pages still surface matches.
func (s *Service) ListUsers(ctx context.Context, f UserFilter) ([]UserWallet, int64, error) {
	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	if f.Status == "" {
		users, total, err := s.users.List(ctx, directory.ListFilter{
			Kind:   directory.KindUser,
			Search: f.Search,
			Page:   page,
			Limit:  limit,
		})
		if err != nil {
			return nil, 0, err
		}
		out, err := s.joinWallets(ctx, users)
		if err != nil {
			return nil, 0, err
		}
		return out, total, nil
	}

	var matched []UserWallet
	for batch := 1; ; batch++ {
		users, _, err := s.users.List(ctx, directory.ListFilter{
			Kind:   directory.KindUser,
			Search: f.Search,
			Page:   batch,
			Limit:  listBatchSize,
		})
		if err != nil {
			return nil, 0, err
		}
		if len(users) == 0 {
			break
		}
		joined, err := s.joinWallets(ctx, users)
		if err != nil {
			return nil, 0, err
		}
		for _, e := range joined {
			if matchesStatus(e, f.Status) {
				matched = append(matched, e)
			}
		}
		if len(users) < listBatchSize {
			break
		}
	}

	total := int64(len(matched))
	start := (page - 1) * limit
	if start >= len(matched) {
		return []UserWallet{}, total, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *Service) joinWallets(ctx context.Context, users []directory.User) ([]UserWallet, error) {
	out := make([]UserWallet, 0, len(users))
	for _, u := range users {
		entry := UserWallet{User: u}
		w, err := s.repo.GetByOwner(ctx, u.ID, OwnerUser)
		switch {
		case err == nil:
			entry.Wallet = w
			entry.HasWallet = true
		case errors.Is(err, ErrNotFound):
			// lazily created later; report zero balance
		default:
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func matchesStatus(e UserWallet, status string) bool {
	switch status {
	case StatusFrozen:
		return e.Wallet.Frozen()
	case StatusActive:
		return !(e.HasWallet && e.Wallet.Frozen())
	default:
		return true
	}
}

func (s *Service) notify(ctx context.Context, kind, destination, body string) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Send(ctx, notification.Message{Kind: kind, Destination: destination, Body: body})
}

// checkDelta enforces sign/type agreement before any state is read.
func checkDelta(txType string, delta int64) error {
	switch txType {
	case TypeCredit, TypeTransferIn, TypeRecharge:
		if delta <= 0 {
			return ErrInvalidAmount
		}
	case TypeDebit, TypeTransferOut:
		if delta >= 0 {
			return ErrInvalidAmount
		}
	default:
		return fmt.Errorf("%w: unsupported transaction type %q", ErrInvalidAmount, txType)
	}
	return nil
}

// buildMutation computes the post-mutation state and its ledger row from a
// snapshot of the wallet. Frozen wallets reject debit-class mutations but
// accept credits.
func buildMutation(w Wallet, in ApplyInput, now time.Time) (Mutation, error) {
	if debitClass(in.Type) && w.Frozen() {
		return Mutation{}, ErrFrozen
	}

	after := w.Balance + in.Delta
	if after < 0 {
		return Mutation{}, ErrInsufficientFunds
	}

	amount := in.Delta
	if amount < 0 {
		amount = -amount
	}

	return Mutation{
		WalletID:     w.ID,
		Version:      w.Version,
		Balance:      after,
		Status:       w.Status,
		FrozenReason: w.FrozenReason,
		Tx: Transaction{
			ID:            uuid.NewString(),
			WalletID:      w.ID,
			Type:          in.Type,
			Amount:        amount,
			BalanceBefore: w.Balance,
			BalanceAfter:  after,
			ReferenceType: in.ReferenceType,
			ReferenceID:   in.ReferenceID,
			ActorID:       in.ActorID,
			Status:        TxCompleted,
			Description:   in.Description,
			CreatedAt:     now,
		},
	}, nil
}

// statusTransaction builds the amount-0 ledger row recording a freeze or
// unfreeze. Balance snapshots carry the unchanged balance.
func statusTransaction(w Wallet, txType, reason, actorID string) Transaction {
	return Transaction{
		ID:            uuid.NewString(),
		WalletID:      w.ID,
		Type:          txType,
		Amount:        0,
		BalanceBefore: w.Balance,
		BalanceAfter:  w.Balance,
		ReferenceType: RefAdminAction,
		ReferenceID:   uuid.NewString(),
		ActorID:       actorID,
		Status:        TxCompleted,
		Description:   reason,
		CreatedAt:     time.Now().UTC(),
	}
}
