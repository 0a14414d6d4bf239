// Package transaction implements the transfer processing engine: it gates a
// request on authorization, computes both wallets' new balances through the
// coin strategies and persists the ledger record plus both wallet updates as
// one atomic unit.
package transaction

import (
	"context"
	"errors"
	"fmt"
	"log"

	"coinbank/internal/models"
	"coinbank/internal/repositories"

	"github.com/google/uuid"
)

type service struct {
	wallets    repositories.WalletRepository
	ledger     repositories.TransactionRepository
	gate       AuthorizationGate
	strategies StrategySelector
	notifier   Notifier
	cache      Cache
	config     Config
	clock      clock
}

// NewService creates the transaction engine.
func NewService(
	wallets repositories.WalletRepository,
	ledger repositories.TransactionRepository,
	gate AuthorizationGate,
	strategies StrategySelector,
	notifier Notifier,
	cache Cache,
	config Config,
) Service {
	if wallets == nil {
		panic("wallet repository is required")
	}
	if ledger == nil {
		panic("transaction repository is required")
	}
	if gate == nil {
		panic("authorization gate is required")
	}
	if strategies == nil {
		panic("strategy selector is required")
	}
	if config.PageSize <= 0 {
		config.PageSize = DefaultPageSize
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = DefaultCacheTTL
	}

	return &service{
		wallets:    wallets,
		ledger:     ledger,
		gate:       gate,
		strategies: strategies,
		notifier:   notifier,
		cache:      cache,
		config:     config,
	}
}

func (s *service) CreateTransaction(ctx context.Context, req TransferRequest) (*models.Transaction, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	senderWallet, err := s.wallets.GetByUserID(req.SenderID)
	if err != nil {
		return nil, s.mapLookupErr(err, req.SenderID)
	}
	if _, err := s.wallets.GetByUserID(req.ReceiverID); err != nil {
		return nil, s.mapLookupErr(err, req.ReceiverID)
	}

	sender := senderWallet.Owner
	if sender == nil {
		return nil, fmt.Errorf("%w: wallet %d has no owner", ErrWalletNotFound, senderWallet.ID)
	}

	// Merchants are rejected before any external call is made.
	if sender.UserType == models.UserTypeMerchant {
		log.Printf("transfer denied: sender %d is a merchant", sender.ID)
		return nil, fmt.Errorf("%w: merchant accounts cannot send transfers", ErrUnauthorized)
	}

	authorized, err := s.gate.Authorize(ctx, sender.UserType, req.Amount)
	if err != nil {
		return nil, fmt.Errorf("authorization check failed: %w", err)
	}
	if !authorized {
		return nil, fmt.Errorf("%w: denied by authorization policy", ErrUnauthorized)
	}

	// Fast pre-check outside the transaction; re-derived under lock below.
	balance, err := senderWallet.Balance(req.CoinType)
	if err != nil {
		return nil, err
	}
	if req.Amount.GreaterThan(balance) {
		return nil, fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientFunds, balance, req.Amount)
	}

	record := &models.Transaction{
		Reference:  uuid.NewString(),
		Amount:     req.Amount,
		CoinType:   req.CoinType,
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Timestamp:  s.clock.Now(),
	}

	if err := s.persistTransfer(req, record); err != nil {
		return nil, err
	}

	s.invalidateListings(ctx, req.SenderID, req.ReceiverID)
	s.notify(ctx, req.SenderID, "Transfer sent successfully")
	s.notify(ctx, req.ReceiverID, "You received a new transfer")

	return record, nil
}

// persistTransfer applies both balance mutations and appends the ledger
// record inside a single database transaction. Wallet rows are locked in
// ascending user id order so concurrent transfers over the same pair cannot
// deadlock, and a concurrent debit of the same sender serializes here.
func (s *service) persistTransfer(req TransferRequest, record *models.Transaction) error {
	err := s.wallets.ExecuteInTransaction(func(tx repositories.WalletRepository) error {
		locked := make(map[uint]*models.Wallet, 2)
		for _, id := range lockOrder(req.SenderID, req.ReceiverID) {
			w, err := tx.GetByUserIDForUpdate(id)
			if err != nil {
				return err
			}
			locked[id] = w
		}

		sent, err := s.strategies.Get(models.RoleSent)
		if err != nil {
			return err
		}
		received, err := s.strategies.Get(models.RoleReceived)
		if err != nil {
			return err
		}

		// The sent strategy re-validates the balance against the locked row.
		newSender, err := sent.Pay(req.CoinType, locked[req.SenderID], req.Amount)
		if err != nil {
			return err
		}
		newReceiver, err := received.Pay(req.CoinType, locked[req.ReceiverID], req.Amount)
		if err != nil {
			return err
		}

		if err := tx.Update(newSender); err != nil {
			return err
		}
		if err := tx.Update(newReceiver); err != nil {
			return err
		}
		return tx.CreateTransaction(record)
	})
	if err != nil {
		// Business-rule failures keep their identity; anything else means
		// the atomic write did not complete.
		if errors.Is(err, ErrInsufficientFunds) ||
			errors.Is(err, ErrInvalidCoinType) ||
			errors.Is(err, repositories.ErrWalletNotFound) {
			return s.mapLookupErr(err, 0)
		}
		return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	return nil
}

func (s *service) GetUserTransactions(ctx context.Context, userID uint) ([]models.Transaction, error) {
	return s.listCached(ctx, userID, listAll, func() ([]models.Transaction, error) {
		return s.ledger.ListByUser(ctx, userID, repositories.PageConfig{Size: s.config.PageSize})
	})
}

func (s *service) GetUserSentTransactions(ctx context.Context, userID uint) ([]models.Transaction, error) {
	return s.listCached(ctx, userID, listSent, func() ([]models.Transaction, error) {
		return s.ledger.ListBySender(ctx, userID, repositories.PageConfig{Size: s.config.PageSize})
	})
}

func (s *service) GetUserReceivedTransactions(ctx context.Context, userID uint) ([]models.Transaction, error) {
	return s.listCached(ctx, userID, listReceived, func() ([]models.Transaction, error) {
		return s.ledger.ListByReceiver(ctx, userID, repositories.PageConfig{Size: s.config.PageSize})
	})
}

func (s *service) listCached(ctx context.Context, userID uint, kind string, load func() ([]models.Transaction, error)) ([]models.Transaction, error) {
	key := listingCacheKey(userID, kind)

	if s.cache != nil {
		var cached []models.Transaction
		if found, err := s.cache.Get(ctx, key, &cached); err == nil && found {
			return cached, nil
		}
	}

	txs, err := load()
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetWithTTL(ctx, key, txs, s.config.CacheTTL); err != nil {
			log.Printf("failed to cache transaction listing for user %d: %v", userID, err)
		}
	}
	return txs, nil
}

// invalidateListings drops both parties' cached pages immediately after a
// commit. Correctness-critical money displays must not show stale pages.
func (s *service) invalidateListings(ctx context.Context, senderID, receiverID uint) {
	if s.cache == nil {
		return
	}
	keys := make([]string, 0, 6)
	for _, id := range []uint{senderID, receiverID} {
		for _, kind := range []string{listAll, listSent, listReceived} {
			keys = append(keys, listingCacheKey(id, kind))
		}
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		log.Printf("failed to invalidate transaction listings: %v", err)
	}
}

func (s *service) notify(ctx context.Context, userID uint, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, message); err != nil {
		log.Printf("failed to notify user %d: %v", userID, err)
	}
}

func (s *service) validateRequest(req TransferRequest) error {
	if !req.CoinType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCoinType, req.CoinType)
	}
	if !req.Amount.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, req.Amount)
	}
	if req.SenderID == req.ReceiverID {
		return ErrSelfTransfer
	}
	return nil
}

func (s *service) mapLookupErr(err error, userID uint) error {
	if errors.Is(err, repositories.ErrWalletNotFound) {
		if userID != 0 {
			return fmt.Errorf("%w: user %d", ErrWalletNotFound, userID)
		}
		return fmt.Errorf("%w: %v", ErrWalletNotFound, err)
	}
	return err
}

func lockOrder(a, b uint) []uint {
	if a < b {
		return []uint{a, b}
	}
	return []uint{b, a}
}

func listingCacheKey(userID uint, kind string) string {
	return fmt.Sprintf("%s%d:%s", userTransactionsCachePrefix, userID, kind)
}
