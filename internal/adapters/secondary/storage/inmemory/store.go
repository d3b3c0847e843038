package inmemory

import (
	"context"
	"errors"
	"sync"

	"github.com/admin/loventia/discover/internal/domain"
	"github.com/admin/loventia/discover/internal/ports/persistence"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var errNoSQL = errors.New("in-memory transaction does not execute SQL")

type actionKey struct {
	actor  uuid.UUID
	target uuid.UUID
	kind   domain.ActionType
}

// Store общее in-memory хранилище профилей и действий.
// Транзакция держит мьютекс целиком, поэтому записи сериализуются.
type Store struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*domain.User
	actions map[actionKey]domain.Action
}

// NewStore создаёт пустое хранилище
func NewStore() *Store {
	return &Store{
		users:   make(map[uuid.UUID]*domain.User),
		actions: make(map[actionKey]domain.Action),
	}
}

// BeginTx захватывает хранилище до Commit или Rollback
func (s *Store) BeginTx(ctx context.Context) (persistence.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &Tx{store: s}, nil
}

// WithTransaction выполняет fn в транзакции с автоматическим commit/rollback
func (s *Store) WithTransaction(ctx context.Context, fn func(context.Context, persistence.Transaction) error) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Tx in-memory транзакция с журналом отката
type Tx struct {
	store *Store
	undo  []func()
	done  bool
}

func (t *Tx) onRollback(fn func()) {
	t.undo = append(t.undo, fn)
}

func (t *Tx) Commit() error {
	if t.done {
		return errors.New("transaction already closed")
	}
	t.done = true
	t.undo = nil
	t.store.mu.Unlock()
	return nil
}

func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.done = true
	t.undo = nil
	t.store.mu.Unlock()
	return nil
}

func (t *Tx) Get(context.Context, interface{}, string, ...interface{}) error    { return errNoSQL }
func (t *Tx) Select(context.Context, interface{}, string, ...interface{}) error { return errNoSQL }
func (t *Tx) Exec(context.Context, string, ...interface{}) error                { return errNoSQL }
func (t *Tx) NamedExec(context.Context, string, interface{}) error              { return errNoSQL }
func (t *Tx) QueryRow(context.Context, string, ...interface{}) *sqlx.Row        { return nil }

func (t *Tx) Query(context.Context, string, ...interface{}) (*sqlx.Rows, error) {
	return nil, errNoSQL
}

func (t *Tx) ExecWithResult(context.Context, string, ...interface{}) (int64, error) {
	return 0, errNoSQL
}

func (t *Tx) NamedExecWithResult(context.Context, string, interface{}) (int64, error) {
	return 0, errNoSQL
}

func (t *Tx) NamedQuery(context.Context, string, interface{}) (*sqlx.Rows, error) {
	return nil, errNoSQL
}

// txOf проверяет, что транзакция открыта этим же хранилищем
func (s *Store) txOf(tx persistence.Transaction) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok || t.store != s || t.done {
		return nil, errors.New("transaction does not belong to this store")
	}
	return t, nil
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// cloneUser глубокая копия, чтобы вызывающий не мутировал хранилище
func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.Age = clonePtr(u.Age)
	c.OrientationList = append(domain.StringList(nil), u.OrientationList...)
	c.Location.Latitude = clonePtr(u.Location.Latitude)
	c.Location.Longitude = clonePtr(u.Location.Longitude)
	c.Location.GeoPoint = append([]float64(nil), u.Location.GeoPoint...)
	c.Photos = append(domain.StringList(nil), u.Photos...)
	c.ExtraImages = append(domain.StringList(nil), u.ExtraImages...)
	c.HiddenUntil = clonePtr(u.HiddenUntil)
	c.Visibility.HiddenUntil = clonePtr(u.Visibility.HiddenUntil)
	c.Entitlements.Since = clonePtr(u.Entitlements.Since)
	c.Entitlements.Until = clonePtr(u.Entitlements.Until)

	db := u.Preferences.Dealbreakers
	c.Preferences.Dealbreakers.DistanceKm = clonePtr(db.DistanceKm)
	c.Preferences.Dealbreakers.AgeMin = clonePtr(db.AgeMin)
	c.Preferences.Dealbreakers.AgeMax = clonePtr(db.AgeMax)
	c.Preferences.Dealbreakers.PetsOk = clonePtr(db.PetsOk)
	c.Preferences.Dealbreakers.Religion = append(domain.StringList(nil), db.Religion...)
	c.Preferences.Dealbreakers.Education = append(domain.StringList(nil), db.Education...)

	c.Rewind.Stack = append([]domain.RewindEntry(nil), u.Rewind.Stack...)
	c.LastActiveAt = clonePtr(u.LastActiveAt)
	return &c
}
