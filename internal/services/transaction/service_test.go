package transaction

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"coinbank/internal/models"
	"coinbank/internal/repositories"
	"coinbank/internal/services/resilience"
	"coinbank/internal/services/strategy"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// fakeStore is an in-memory WalletRepository + TransactionRepository with
// transactional semantics: writes made inside ExecuteInTransaction become
// visible only when the callback succeeds.
type fakeStore struct {
	mu         sync.Mutex
	wallets    map[uint]*models.Wallet
	users      map[uint]*models.User
	ledger     []models.Transaction
	failLedger bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		wallets: make(map[uint]*models.Wallet),
		users:   make(map[uint]*models.User),
	}
}

func (f *fakeStore) addUser(id uint, userType models.UserType, balances map[models.CoinType]string) {
	u := &models.User{UserType: userType}
	u.ID = id
	f.users[id] = u

	w := &models.Wallet{ID: id, UserID: id}
	for coin, amount := range balances {
		if err := w.SetBalance(coin, dec(amount)); err != nil {
			panic(err)
		}
	}
	f.wallets[id] = w
}

func (f *fakeStore) balance(userID uint, coin models.CoinType) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := f.wallets[userID].Balance(coin)
	if err != nil {
		panic(err)
	}
	return b
}

func (f *fakeStore) ledgerLen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ledger)
}

func cloneWallet(w *models.Wallet) *models.Wallet {
	c := *w
	return &c
}

func (f *fakeStore) Create(wallet *models.Wallet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wallets[wallet.UserID] = cloneWallet(wallet)
	return nil
}

func (f *fakeStore) GetByUserID(userID uint) (*models.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.wallets[userID]
	if !ok {
		return nil, repositories.ErrWalletNotFound
	}
	c := cloneWallet(w)
	c.Owner = f.users[userID]
	return c, nil
}

func (f *fakeStore) GetByUserIDForUpdate(userID uint) (*models.Wallet, error) {
	return nil, errors.New("row lock outside transaction")
}

func (f *fakeStore) Update(wallet *models.Wallet) error {
	return errors.New("update outside transaction")
}

func (f *fakeStore) CreateTransaction(tx *models.Transaction) error {
	return errors.New("ledger write outside transaction")
}

// ExecuteInTransaction serializes callers the way row locks serialize
// conflicting transfers in Postgres.
func (f *fakeStore) ExecuteInTransaction(fn func(repositories.WalletRepository) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	view := &txView{parent: f, wallets: make(map[uint]*models.Wallet)}
	if err := fn(view); err != nil {
		return err
	}

	for id, w := range view.wallets {
		f.wallets[id] = w
	}
	f.ledger = append(f.ledger, view.ledger...)
	return nil
}

type txView struct {
	parent  *fakeStore
	wallets map[uint]*models.Wallet
	ledger  []models.Transaction
}

func (v *txView) Create(wallet *models.Wallet) error {
	v.wallets[wallet.UserID] = cloneWallet(wallet)
	return nil
}

func (v *txView) GetByUserID(userID uint) (*models.Wallet, error) {
	return v.GetByUserIDForUpdate(userID)
}

func (v *txView) GetByUserIDForUpdate(userID uint) (*models.Wallet, error) {
	if w, ok := v.wallets[userID]; ok {
		return cloneWallet(w), nil
	}
	w, ok := v.parent.wallets[userID]
	if !ok {
		return nil, repositories.ErrWalletNotFound
	}
	return cloneWallet(w), nil
}

func (v *txView) Update(wallet *models.Wallet) error {
	v.wallets[wallet.UserID] = cloneWallet(wallet)
	return nil
}

func (v *txView) CreateTransaction(tx *models.Transaction) error {
	if v.parent.failLedger {
		return errors.New("ledger write failed")
	}
	v.ledger = append(v.ledger, *tx)
	return nil
}

func (v *txView) ExecuteInTransaction(fn func(repositories.WalletRepository) error) error {
	return fn(v)
}

// TransactionRepository side, reading committed state.

func (f *fakeStore) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.ledger {
		if f.ledger[i].Reference == reference {
			tx := f.ledger[i]
			return &tx, nil
		}
	}
	return nil, repositories.ErrTransactionNotFound
}

func (f *fakeStore) ListByUser(ctx context.Context, userID uint, page repositories.PageConfig) ([]models.Transaction, error) {
	return f.list(page, func(tx models.Transaction) bool {
		return tx.SenderID == userID || tx.ReceiverID == userID
	})
}

func (f *fakeStore) ListBySender(ctx context.Context, userID uint, page repositories.PageConfig) ([]models.Transaction, error) {
	return f.list(page, func(tx models.Transaction) bool { return tx.SenderID == userID })
}

func (f *fakeStore) ListByReceiver(ctx context.Context, userID uint, page repositories.PageConfig) ([]models.Transaction, error) {
	return f.list(page, func(tx models.Transaction) bool { return tx.ReceiverID == userID })
}

func (f *fakeStore) list(page repositories.PageConfig, match func(models.Transaction) bool) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Transaction
	for _, tx := range f.ledger {
		if match(tx) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > page.Size {
		out = out[:page.Size]
	}
	return out, nil
}

type fakeGate struct {
	mu         sync.Mutex
	authorized bool
	err        error
	calls      int
}

func (g *fakeGate) Authorize(ctx context.Context, userType models.UserType, amount decimal.Decimal) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.authorized, g.err
}

func (g *fakeGate) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []uint
	err   error
}

func (n *fakeNotifier) Notify(ctx context.Context, userID uint, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, userID)
	return n.err
}

func (n *fakeNotifier) notified() []uint {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]uint(nil), n.calls...)
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	hits int
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.data[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(data, dest)
}

func (c *memCache) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = data
	return nil
}

func (c *memCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.data, key)
	}
	return nil
}

type engineFixture struct {
	store    *fakeStore
	gate     *fakeGate
	notifier *fakeNotifier
	cache    *memCache
	engine   Service
}

func newEngine(t *testing.T) *engineFixture {
	t.Helper()
	store := newFakeStore()
	gate := &fakeGate{authorized: true}
	notifier := &fakeNotifier{}
	cache := newMemCache()

	engine := NewService(store, store, gate, strategy.NewSelector(), notifier, cache, Config{PageSize: 5})
	return &engineFixture{
		store:    store,
		gate:     gate,
		notifier: notifier,
		cache:    cache,
		engine:   engine,
	}
}

func TestCreateTransaction_FullTransfer(t *testing.T) {
	f := newEngine(t)
	f.store.addUser(1, models.UserTypeCommon, map[models.CoinType]string{models.CoinBRL: "2000.00"})
	f.store.addUser(2, models.UserTypeCommon, map[models.CoinType]string{models.CoinBRL: "0.00"})

	tx, err := f.engine.CreateTransaction(context.Background(), TransferRequest{
		SenderID:   1,
		ReceiverID: 2,
		Amount:     dec("2000.00"),
		CoinType:   models.CoinBRL,
	})
	require.NoError(t, err)

	assert.True(t, tx.Amount.Equal(dec("2000.00")))
	assert.Equal(t, models.CoinBRL, tx.CoinType)
	assert.Equal(t, uint(1), tx.SenderID)
	assert.Equal(t, uint(2), tx.ReceiverID)
	assert.NotEmpty(t, tx.Reference)
	assert.False(t, tx.Timestamp.IsZero())

	assert.True(t, f.store.balance(1, models.CoinBRL).Equal(dec("0.00")))
	assert.True(t, f.store.balance(2, models.CoinBRL).Equal(dec("2000.00")))
	assert.Equal(t, 1, f.store.ledgerLen())

	assert.ElementsMatch(t, []uint{1, 2}, f.notifier.notified())
}

func TestCreateTransaction_Conservation(t *testing.T) {
	f := newEngine(t)
	f.store.addUser(1, models.UserTypeCommon, map[models.CoinType]string{models.CoinUSD: "350.25"})
	f.store.addUser(2, models.UserTypeCommon, map[models.CoinType]string{models.CoinUSD: "120.75"})

	sumBefore := f.store.balance(1, models.CoinUSD).Add(f.store.balance(2, models.CoinUSD))

	_, err := f.engine.CreateTransaction(context.Background(), TransferRequest{
		SenderID:   1,
		ReceiverID: 2,
		Amount:     dec("99.99"),
		CoinType:   models.CoinUSD,
	})
	require.NoError(t, err)

	sumAfter := f.store.balance(1, models.CoinUSD).Add(f.store.balance(2, models.CoinUSD))
	assert.True(t, sumBefore.Equal(sumAfter))
	assert.False(t, f.store.balance(1, models.CoinUSD).IsNegative())
}

func TestCreateTransaction_InsufficientFunds(t *testing.T) {
	f := newEngine(t)
	f.store.addUser(1, models.UserTypeCommon, map[models.CoinType]string{models.CoinBRL: "100.00"})
	f.store.addUser(2, models.UserTypeCommon, nil)

	_, err := f.engine.CreateTransaction(context.Background(), TransferRequest{
		SenderID:   1,
		ReceiverID: 2,
		Amount:     dec("150.00"),
		CoinType:   models.CoinBRL,
	})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	assert.True(t, f.store.balance(1, models.CoinBRL).Equal(dec("100.00")))
	assert.True(t, f.store.balance(2, models.CoinBRL).Equal(dec("0")))
	assert.Equal(t, 0, f.store.ledgerLen())
	assert.Empty(t, f.notifier.notified())
}

func TestCreateTransaction_MerchantBlocked(t *testing.T) {
	f := newEngine(t)
	f.store.addUser(1, models.UserTypeMerchant, map[models.CoinType]string{models.CoinBRL: "5000.00"})
	f.store.addUser(2, models.UserTypeCommon, nil)

	_, err := f.engine.CreateTransaction(context.Background(), TransferRequest{
		SenderID:   1,
		ReceiverID: 2,
		Amount:     dec("10.00"),
		CoinType:   models.CoinBRL,
	})
	require.ErrorIs(t, err, ErrUnauthorized)

	// The external authorization gate is never consulted for merchants.
	assert.Equal(t, 0, f.gate.callCount())
	assert.True(t, f.store.balance(1, models.CoinBRL).Equal(dec("5000.00")))
	assert.Equal(t, 0, f.store.ledgerLen())
}

func TestCreateTransaction_DeniedByPolicy(t *testing.T) {
	f := newEngine(t)
	f.gate.authorized = false
	f.store.addUser(1, models.UserTypeCommon, map[models.CoinType]string{models.CoinBRL: "100.00"})
	f.store.addUser(2, models.UserTypeCommon, nil)

	_, err := f.engine.CreateTransaction(context.Background(), TransferRequest{
		SenderID:   1,
		ReceiverID: 2,
		Amount:     dec("10.00"),
		CoinType:   models.CoinBRL,
	})
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, f.gate.callCount())
	assert.Equal(t, 0, f.store.ledgerLen())
}

func TestCreateTransaction_AuthorizerUnavailable(t *testing.T) {
	f := newEngine(t)
	f.gate.err = resilience.ErrServiceUnavailable
	f.store.addUser(1, models.UserTypeCommon, map[models.CoinType]string{models.CoinBRL: "100.00"})
	f.store.addUser(2, models.UserTypeCommon, nil)

	_, err := f.engine.CreateTransaction(context.Background(), TransferRequest{
		SenderID:   1,
		ReceiverID: 2,
		Amount:     dec("10.00"),
		CoinType:   models.CoinBRL,
	})
	require.ErrorIs(t, err, ErrServiceUnavailable)
	assert.True(t, f.store.balance(1, models.CoinBRL).Equal(dec("100.00")))
	assert.Equal(t, 0, f.store.ledgerLen())
}

func TestCreateTransaction_WalletNotFound(t *testing.T) {
	f := newEngine(t)
	f.store.addUser(1, models.UserTypeCommon, map[models.CoinType]string{models.CoinBRL: "100.00"})

	_, err := f.engine.CreateTransaction(context.Background(), TransferRequest{
		SenderID:   1,
		ReceiverID: 99,
		Amount:     dec("10.00"),
		CoinType:   models.CoinBRL,
	})
	require.ErrorIs(t, err, ErrWalletNotFound)

	_, err = f.engine.CreateTransaction(context.Background(), TransferRequest{
		SenderID:   99,
		ReceiverID: 1,
		Amount:     dec("10.00"),
		CoinType:   models.CoinBRL,
	})
	require.ErrorIs(t, err, ErrWalletNotFound)
}

func TestCreateTransaction_RequestValidation(t *testing.T) {
	f := newEngine(t)
	f.store.addUser(1, models.UserTypeCommon, map[models.CoinType]string{models.CoinBRL: "100.00"})
	f.store.addUser(2, models.UserTypeCommon, nil)

	tests := []struct {
		name    string
		req     TransferRequest
		wantErr error
	}{
		{
			name:    "unknown coin type",
			req:     TransferRequest{SenderID: 1, ReceiverID: 2, Amount: dec("10"), CoinType: "DOGE"},
			wantErr: ErrInvalidCoinType,
		},
		{
			name:    "zero amount",
			req:     TransferRequest{SenderID: 1, ReceiverID: 2, Amount: dec("0"), CoinType: models.CoinBRL},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			req:     TransferRequest{SenderID: 1, ReceiverID: 2, Amount: dec("-5"), CoinType: models.CoinBRL},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "self transfer",
			req:     TransferRequest{SenderID: 1, ReceiverID: 1, Amount: dec("10"), CoinType: models.CoinBRL},
			wantErr: ErrSelfTransfer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.CreateTransaction(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Equal(t, 0, f.store.ledgerLen())
}

func TestCreateTransaction_AtomicOnLedgerFailure(t *testing.T) {
	f := newEngine(t)
	f.store.addUser(1, models.UserTypeCommon, map[models.CoinType]string{models.CoinBRL: "100.00"})
	f.store.addUser(2, models.UserTypeCommon, nil)
	f.store.failLedger = true

	_, err := f.engine.CreateTransaction(context.Background(), TransferRequest{
		SenderID:   1,
		ReceiverID: 2,
		Amount:     dec("10.00"),
		CoinType:   models.CoinBRL,
	})
	require.ErrorIs(t, err, ErrPersistenceFailure)

	// No partial application: both wallets and the ledger are untouched.
	assert.True(t, f.store.balance(1, models.CoinBRL).Equal(dec("100.00")))
	assert.True(t, f.store.balance(2, models.CoinBRL).Equal(dec("0")))
	assert.Equal(t, 0, f.store.ledgerLen())
	assert.Empty(t, f.notifier.notified())
}

func TestCreateTransaction_NotifierFailureDoesNotRollBack(t *testing.T) {
	f := newEngine(t)
	f.notifier.err = errors.New("notification channel down")
	f.store.addUser(1, models.UserTypeCommon, map[models.CoinType]string{models.CoinBRL: "100.00"})
	f.store.addUser(2, models.UserTypeCommon, nil)

	tx, err := f.engine.CreateTransaction(context.Background(), TransferRequest{
		SenderID:   1,
		ReceiverID: 2,
		Amount:     dec("40.00"),
		CoinType:   models.CoinBRL,
	})
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, 1, f.store.ledgerLen())
	assert.True(t, f.store.balance(2, models.CoinBRL).Equal(dec("40.00")))
}

func TestCreateTransaction_ConcurrentDebits(t *testing.T) {
	f := newEngine(t)
	f.store.addUser(1, models.UserTypeCommon, map[models.CoinType]string{models.CoinBRL: "100.00"})
	f.store.addUser(2, models.UserTypeCommon, nil)
	f.store.addUser(3, models.UserTypeCommon, nil)

	// Two transfers that individually fit but jointly exceed the balance.
	results := make(chan error, 2)
	for _, receiver := range []uint{2, 3} {
		go func(receiver uint) {
			_, err := f.engine.CreateTransaction(context.Background(), TransferRequest{
				SenderID:   1,
				ReceiverID: receiver,
				Amount:     dec("60.00"),
				CoinType:   models.CoinBRL,
			})
			results <- err
		}(receiver)
	}

	var failures, successes int
	for i := 0; i < 2; i++ {
		if err := <-results; err != nil {
			require.ErrorIs(t, err, ErrInsufficientFunds)
			failures++
		} else {
			successes++
		}
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, failures)
	assert.True(t, f.store.balance(1, models.CoinBRL).Equal(dec("40.00")))
	assert.False(t, f.store.balance(1, models.CoinBRL).IsNegative())
	assert.Equal(t, 1, f.store.ledgerLen())
}

func TestCreateTransaction_MonotonicTimestamps(t *testing.T) {
	f := newEngine(t)
	f.store.addUser(1, models.UserTypeCommon, map[models.CoinType]string{models.CoinBRL: "100.00"})
	f.store.addUser(2, models.UserTypeCommon, nil)

	first, err := f.engine.CreateTransaction(context.Background(), TransferRequest{
		SenderID: 1, ReceiverID: 2, Amount: dec("10.00"), CoinType: models.CoinBRL,
	})
	require.NoError(t, err)
	second, err := f.engine.CreateTransaction(context.Background(), TransferRequest{
		SenderID: 1, ReceiverID: 2, Amount: dec("10.00"), CoinType: models.CoinBRL,
	})
	require.NoError(t, err)

	assert.False(t, second.Timestamp.Before(first.Timestamp))
}

func TestListings_ReadThroughAndInvalidation(t *testing.T) {
	f := newEngine(t)
	ctx := context.Background()
	f.store.addUser(1, models.UserTypeCommon, map[models.CoinType]string{models.CoinBRL: "100.00"})
	f.store.addUser(2, models.UserTypeCommon, nil)

	_, err := f.engine.CreateTransaction(ctx, TransferRequest{
		SenderID: 1, ReceiverID: 2, Amount: dec("10.00"), CoinType: models.CoinBRL,
	})
	require.NoError(t, err)

	page, err := f.engine.GetUserTransactions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)

	// Repeated reads with no intervening transfer serve the cached page.
	again, err := f.engine.GetUserTransactions(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, page[0].Reference, again[0].Reference)
	assert.Equal(t, 1, f.cache.hits)

	// A new transfer touching the user invalidates the cached page.
	_, err = f.engine.CreateTransaction(ctx, TransferRequest{
		SenderID: 1, ReceiverID: 2, Amount: dec("20.00"), CoinType: models.CoinBRL,
	})
	require.NoError(t, err)

	page, err = f.engine.GetUserTransactions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	// Ordered by timestamp descending: the newest transfer first.
	assert.True(t, page[0].Amount.Equal(dec("20.00")))

	sent, err := f.engine.GetUserSentTransactions(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, sent, 2)
	received, err := f.engine.GetUserReceivedTransactions(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, received, 2)
}
