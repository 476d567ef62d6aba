package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vendalink/ordersync/internal/domain/account"
	"github.com/vendalink/ordersync/internal/domain/order"
	"github.com/vendalink/ordersync/internal/domain/syncstatus"
	"github.com/vendalink/ordersync/internal/domain/user"
)

// MockAccountRepository is a mock implementation of account.Repository
type MockAccountRepository struct {
	mu          sync.Mutex
	Accounts    map[string]*account.Account
	UpsertError error
	GetError    error
	UpdateError error
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		Accounts: make(map[string]*account.Account),
	}
}

func acctKey(userID int64, provider, accountID string) string {
	return fmt.Sprintf("%d/%s/%s", userID, provider, accountID)
}

func (m *MockAccountRepository) Upsert(ctx context.Context, a *account.Account) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.Accounts[acctKey(a.UserID, a.Provider, a.AccountID)] = &cp
	return nil
}

func (m *MockAccountRepository) Get(ctx context.Context, userID int64, provider, accountID string) (*account.Account, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Accounts[acctKey(userID, provider, accountID)]
	if !ok {
		return nil, fmt.Errorf("account not found")
	}
	cp := *a
	return &cp, nil
}

func (m *MockAccountRepository) List(ctx context.Context, userID int64) ([]*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*account.Account
	for _, a := range m.Accounts {
		if a.UserID == userID {
			cp := *a
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *MockAccountRepository) ListAll(ctx context.Context) ([]*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*account.Account
	for _, a := range m.Accounts {
		cp := *a
		result = append(result, &cp)
	}
	return result, nil
}

func (m *MockAccountRepository) Delete(ctx context.Context, userID int64, provider, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Accounts, acctKey(userID, provider, accountID))
	return nil
}

func (m *MockAccountRepository) UpdateCredentials(ctx context.Context, userID int64, provider, accountID string, creds account.Credentials) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Accounts[acctKey(userID, provider, accountID)]
	if !ok {
		return fmt.Errorf("account not found")
	}
	a.Credentials = creds
	a.UpdatedAt = time.Now()
	return nil
}

func (m *MockAccountRepository) UpdateStatus(ctx context.Context, userID int64, provider, accountID string, status account.Status, lastError string) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Accounts[acctKey(userID, provider, accountID)]
	if !ok {
		return fmt.Errorf("account not found")
	}
	a.Status = status
	a.LastError = lastError
	if lastError != "" {
		now := time.Now()
		a.LastErrorAt = &now
	}
	if status == account.StatusReauthRequired {
		a.Credentials = account.Credentials{}
	}
	return nil
}

func (m *MockAccountRepository) AdvanceWatermark(ctx context.Context, userID int64, provider, accountID string, syncedAt time.Time) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Accounts[acctKey(userID, provider, accountID)]
	if !ok {
		return fmt.Errorf("account not found")
	}
	a.LastSyncAt = &syncedAt
	return nil
}

// MockOrderRepository is a mock implementation of order.Repository
type MockOrderRepository struct {
	mu          sync.Mutex
	Orders      map[string]*order.Order
	Categories  map[string]bool
	BatchCalls  int
	UpsertError error
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		Orders:     make(map[string]*order.Order),
		Categories: make(map[string]bool),
	}
}

func (m *MockOrderRepository) UpsertBatch(ctx context.Context, userID int64, orders []*order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BatchCalls++
	if m.UpsertError != nil {
		return m.UpsertError
	}
	for _, o := range orders {
		cp := *o
		m.Orders[fmt.Sprintf("%d/%s", userID, o.ID)] = &cp
	}
	return nil
}

func (m *MockOrderRepository) Get(ctx context.Context, userID int64, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.Orders[fmt.Sprintf("%d/%s", userID, id)]
	if !ok {
		return nil, fmt.Errorf("order not found")
	}
	cp := *o
	return &cp, nil
}

func (m *MockOrderRepository) List(ctx context.Context, userID int64, filter order.Filter, limit, offset int) ([]*order.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*order.Order
	for _, o := range m.Orders {
		if filter.Provider != "" && o.Provider != filter.Provider {
			continue
		}
		if filter.Status != "" && string(o.Status) != filter.Status {
			continue
		}
		cp := *o
		result = append(result, &cp)
	}
	return result, int64(len(result)), nil
}

func (m *MockOrderRepository) UpsertCategories(ctx context.Context, userID int64, names []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range names {
		m.Categories[n] = true
	}
	return nil
}

// MockSyncStatusRepository is a mock implementation of syncstatus.Repository
type MockSyncStatusRepository struct {
	mu       sync.Mutex
	Statuses map[string]*syncstatus.SyncStatus
	History  []syncstatus.SyncStatus
}

func NewMockSyncStatusRepository() *MockSyncStatusRepository {
	return &MockSyncStatusRepository{
		Statuses: make(map[string]*syncstatus.SyncStatus),
	}
}

func (m *MockSyncStatusRepository) Set(ctx context.Context, s *syncstatus.SyncStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.Statuses[acctKey(s.UserID, s.Provider, s.AccountID)] = &cp
	m.History = append(m.History, cp)
	return nil
}

func (m *MockSyncStatusRepository) Get(ctx context.Context, userID int64, provider, accountID string) (*syncstatus.SyncStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Statuses[acctKey(userID, provider, accountID)]
	if !ok {
		return nil, fmt.Errorf("sync status not found")
	}
	cp := *s
	return &cp, nil
}

func (m *MockSyncStatusRepository) List(ctx context.Context, userID int64) ([]*syncstatus.SyncStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*syncstatus.SyncStatus
	for _, s := range m.Statuses {
		if s.UserID == userID {
			cp := *s
			result = append(result, &cp)
		}
	}
	return result, nil
}

// MockUserRepository is a mock implementation of user.Repository
type MockUserRepository struct {
	Users       map[int64]*user.User
	EmailIndex  map[string]*user.User
	NextID      int64
	CreateError error
	GetError    error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		Users:      make(map[int64]*user.User),
		EmailIndex: make(map[string]*user.User),
		NextID:     1,
	}
}

func (m *MockUserRepository) Create(ctx context.Context, u *user.User) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	if _, ok := m.EmailIndex[u.Email]; ok {
		return fmt.Errorf("email already registered")
	}
	u.ID = m.NextID
	m.NextID++
	m.Users[u.ID] = u
	m.EmailIndex[u.Email] = u
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	u, ok := m.Users[id]
	if !ok {
		return nil, fmt.Errorf("user not found")
	}
	return u, nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	u, ok := m.EmailIndex[email]
	if !ok {
		return nil, fmt.Errorf("user not found")
	}
	return u, nil
}
