package inmemory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/admin/loventia/discover/internal/domain"
	"github.com/admin/loventia/discover/internal/ports/persistence"
	ports "github.com/admin/loventia/discover/internal/ports/repository"
	"github.com/google/uuid"
)

const defaultScanLimit = 2000

// UserRepo in-memory реализация репозитория профилей
type UserRepo struct {
	store *Store
	Log   *slog.Logger
}

// NewUserRepo создаёт репозиторий поверх общего хранилища
func NewUserRepo(store *Store, log *slog.Logger) ports.IUserRepo {
	return &UserRepo{store: store, Log: log}
}

func (r *UserRepo) Create(ctx context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.create(user)
}

func (r *UserRepo) create(user *domain.User) error {
	if _, exists := r.store.users[user.ID]; exists {
		return fmt.Errorf("user %s already exists", user.ID)
	}
	user.Normalize(time.Now())
	r.store.users[user.ID] = cloneUser(user)
	r.Log.Debug("user created successfully", "user_id", user.ID)
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.getByID(id)
}

func (r *UserRepo) GetByIDForUpdateTx(ctx context.Context, tx persistence.Transaction, id uuid.UUID) (*domain.User, error) {
	if _, err := r.store.txOf(tx); err != nil {
		return nil, err
	}
	return r.getByID(id)
}

func (r *UserRepo) getByID(id uuid.UUID) (*domain.User, error) {
	u, ok := r.store.users[id]
	if !ok {
		r.Log.Warn("user not found", "user_id", id)
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return cloneUser(u), nil
}

func (r *UserRepo) GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.getByCustomer(customerID)
}

func (r *UserRepo) GetByStripeCustomerIDForUpdateTx(ctx context.Context, tx persistence.Transaction, customerID string) (*domain.User, error) {
	if _, err := r.store.txOf(tx); err != nil {
		return nil, err
	}
	return r.getByCustomer(customerID)
}

func (r *UserRepo) getByCustomer(customerID string) (*domain.User, error) {
	if customerID != "" {
		for _, u := range r.store.users {
			if u.Billing.StripeCustomerID == customerID {
				return cloneUser(u), nil
			}
		}
	}
	r.Log.Warn("user not found", "stripe_customer_id", customerID)
	return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
}

// ListCandidates повторяет SQL-выборку: те же условия и порядок до ScanLimit
func (r *UserRepo) ListCandidates(ctx context.Context, q domain.CandidateQuery) ([]*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var users []*domain.User
	for _, u := range r.store.users {
		if q.Matches(u) {
			users = append(users, cloneUser(u))
		}
	}

	sort.Slice(users, func(i, j int) bool {
		return domain.CompareBySort(q.Sort, users[i], users[j]) < 0
	})

	limit := q.ScanLimit
	if limit <= 0 {
		limit = defaultScanLimit
	}
	if len(users) > limit {
		users = users[:limit]
	}

	r.Log.Debug("candidates listed", "count", len(users))
	return users, nil
}

func (r *UserRepo) ListExpiredPremium(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var ids []uuid.UUID
	for id, u := range r.store.users {
		e := u.Entitlements
		if e.Tier == domain.TierPremium && e.Until != nil && !e.Until.After(now) {
			ids = append(ids, id)
		}
	}
	return capIDs(ids, limit), nil
}

func (r *UserRepo) ListExpiredHidden(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var ids []uuid.UUID
	for id, u := range r.store.users {
		expired := func(t *time.Time) bool { return t != nil && !t.After(now) }
		if expired(u.HiddenUntil) || expired(u.Visibility.HiddenUntil) {
			ids = append(ids, id)
		}
	}
	return capIDs(ids, limit), nil
}

func (r *UserRepo) UpdateLastActive(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	u, ok := r.store.users[id]
	if !ok {
		r.Log.Warn("user not found for update last active", "user_id", id)
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	u.LastActiveAt = &at
	return nil
}

func (r *UserRepo) BeginTx(ctx context.Context) (persistence.Transaction, error) {
	return r.store.BeginTx(ctx)
}

func (r *UserRepo) WithTransaction(ctx context.Context, fn func(context.Context, persistence.Transaction) error) error {
	return r.store.WithTransaction(ctx, fn)
}

// UpdateStateTx заменяет изменяемые блоки, как UPDATE в postgres
func (r *UserRepo) UpdateStateTx(ctx context.Context, tx persistence.Transaction, user *domain.User) error {
	t, err := r.store.txOf(tx)
	if err != nil {
		return err
	}

	current, ok := r.store.users[user.ID]
	if !ok {
		r.Log.Warn("user not found for state update in transaction", "user_id", user.ID)
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}

	previous := cloneUser(current)
	t.onRollback(func() { r.store.users[previous.ID] = previous })

	next := cloneUser(current)
	src := cloneUser(user)
	next.IsHidden = src.IsHidden
	next.HiddenUntil = src.HiddenUntil
	next.ResumeOnLogin = src.ResumeOnLogin
	next.Visibility = src.Visibility
	next.IsPremium = src.IsPremium
	next.Premium = src.Premium
	next.Entitlements = src.Entitlements
	next.Rewind = src.Rewind
	next.Billing = src.Billing
	next.Status = src.Status
	next.UpdatedAt = time.Now()
	user.UpdatedAt = next.UpdatedAt

	r.store.users[user.ID] = next
	r.Log.Debug("user state updated in transaction", "user_id", user.ID)
	return nil
}

func capIDs(ids []uuid.UUID, limit int) []uuid.UUID {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	if limit > 0 && len(ids) > limit {
		return ids[:limit]
	}
	return ids
}
