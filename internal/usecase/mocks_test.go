//go:build !integration

package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"cashpoints/internal/domain"
	"cashpoints/internal/domain/model"
	"cashpoints/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// =============================
// Transaction manager
// =============================

// MockTxManager executes the callback directly with a nil tx handle. The
// in-memory repos ignore the handle anyway.
type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// =============================
// Membership checker
// =============================

type MockMembership struct {
	Member bool
	Err    error
	Calls  int

	IsGroupMemberFunc func(ctx context.Context, tgID int64) (bool, error)
}

func (m *MockMembership) IsGroupMember(ctx context.Context, tgID int64) (bool, error) {
	m.Calls++
	if m.IsGroupMemberFunc != nil {
		return m.IsGroupMemberFunc(ctx, tgID)
	}
	return m.Member, m.Err
}

// =============================
// Repositories (in-memory with overridable behavior)
// =============================

type MockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User // by domain ID

	SaveFunc               func(ctx context.Context, tx repository.Tx, u *model.User) error
	FindByTelegramIDFunc   func(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error)
	FindByReferralCodeFunc func(ctx context.Context, tx repository.Tx, code string) (*model.User, error)
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{users: make(map[string]*model.User)}
}

func (m *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, u)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockUserRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error) {
	if m.FindByTelegramIDFunc != nil {
		return m.FindByTelegramIDFunc(ctx, tx, tgID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.TelegramID == tgID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockUserRepo) FindByReferralCode(ctx context.Context, tx repository.Tx, code string) (*model.User, error) {
	if m.FindByReferralCodeFunc != nil {
		return m.FindByReferralCodeFunc(ctx, tx, code)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ReferralCode == code {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockUserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

func (m *MockUserRepo) CountInactiveUsers(ctx context.Context, tx repository.Tx, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.users {
		if u.LastActiveAt.Before(since) {
			n++
		}
	}
	return n, nil
}

type MockReferralRepo struct {
	mu        sync.Mutex
	referrals map[string]*model.Referral // by ID

	SaveFunc func(ctx context.Context, tx repository.Tx, ref *model.Referral) error
}

var _ repository.ReferralRepository = (*MockReferralRepo)(nil)

func NewMockReferralRepo() *MockReferralRepo {
	return &MockReferralRepo{referrals: make(map[string]*model.Referral)}
}

func (m *MockReferralRepo) Save(ctx context.Context, tx repository.Tx, ref *model.Referral) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, ref)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ref
	m.referrals[ref.ID] = &cp
	return nil
}

func (m *MockReferralRepo) FindByReferred(ctx context.Context, tx repository.Tx, referredID string) (*model.Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ref := range m.referrals {
		if ref.ReferredID == referredID {
			cp := *ref
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockReferralRepo) FindPendingByReferred(ctx context.Context, tx repository.Tx, referredID string) (*model.Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ref := range m.referrals {
		if ref.ReferredID == referredID && ref.Status == model.ReferralPending {
			cp := *ref
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockReferralRepo) ListPending(ctx context.Context, tx repository.Tx, limit int) ([]*model.Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Referral
	for _, ref := range m.referrals {
		if ref.Status == model.ReferralPending {
			cp := *ref
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MockReferralRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.ReferralStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[model.ReferralStatus]int)
	for _, ref := range m.referrals {
		out[ref.Status]++
	}
	return out, nil
}

type MockReferralCodeRepo struct {
	mu    sync.Mutex
	codes map[string]*model.ReferralCode

	FindByCodeFunc func(ctx context.Context, tx repository.Tx, code string) (*model.ReferralCode, error)
}

var _ repository.ReferralCodeRepository = (*MockReferralCodeRepo)(nil)

func NewMockReferralCodeRepo() *MockReferralCodeRepo {
	return &MockReferralCodeRepo{codes: make(map[string]*model.ReferralCode)}
}

func (m *MockReferralCodeRepo) Save(ctx context.Context, tx repository.Tx, c *model.ReferralCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.codes[c.Code] = &cp
	return nil
}

func (m *MockReferralCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.ReferralCode, error) {
	if m.FindByCodeFunc != nil {
		return m.FindByCodeFunc(ctx, tx, code)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.codes[code]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

type MockEarningRepo struct {
	mu       sync.Mutex
	earnings []*model.Earning

	SaveFunc func(ctx context.Context, tx repository.Tx, e *model.Earning) error
}

var _ repository.EarningRepository = (*MockEarningRepo)(nil)

func NewMockEarningRepo() *MockEarningRepo { return &MockEarningRepo{} }

func (m *MockEarningRepo) Save(ctx context.Context, tx repository.Tx, e *model.Earning) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.earnings = append(m.earnings, &cp)
	return nil
}

func (m *MockEarningRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.Earning, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Earning
	for _, e := range m.earnings {
		if e.UserID == userID {
			cp := *e
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MockEarningRepo) TotalPaid(ctx context.Context, tx repository.Tx) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for _, e := range m.earnings {
		total += e.Amount
	}
	return total, nil
}

// All returns a snapshot of the ledger for assertions.
func (m *MockEarningRepo) All() []*model.Earning {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Earning, len(m.earnings))
	copy(out, m.earnings)
	return out
}
