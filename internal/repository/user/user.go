package userRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	ports "github.com/admin/loventia/discover/internal/ports/repository"

	"log/slog"

	"github.com/admin/loventia/discover/internal/domain"
	"github.com/admin/loventia/discover/internal/ports/persistence"
	"github.com/google/uuid"
)

const defaultScanLimit = 2000

type userColumns struct {
	TableName        string
	ID               string
	Username         string
	Gender           string
	Age              string
	Orientation      string
	OrientationList  string
	Profession       string
	Status           string
	Latitude         string
	Longitude        string
	Lifestyle        string
	IsHidden         string
	HiddenUntil      string
	ResumeOnLogin    string
	Visibility       string
	IsPremium        string
	Premium          string
	Entitlements     string
	Rewind           string
	StripeCustomerID string
	SubscriptionID   string
	LastActiveAt     string
	CreatedAt        string
	UpdatedAt        string
}

type Repository struct {
	db      persistence.Database
	Log     *slog.Logger
	columns userColumns
}

// New создаёт новый репозиторий для работы с профилями
func New(db persistence.Database, log *slog.Logger) ports.IUserRepo {
	cols := userColumns{
		TableName:        "users",
		ID:               "id",
		Username:         "username",
		Gender:           "gender",
		Age:              "age",
		Orientation:      "orientation",
		OrientationList:  "orientation_list",
		Profession:       "profession",
		Status:           "status",
		Latitude:         "latitude",
		Longitude:        "longitude",
		Lifestyle:        "lifestyle",
		IsHidden:         "is_hidden",
		HiddenUntil:      "hidden_until",
		ResumeOnLogin:    "resume_on_login",
		Visibility:       "visibility",
		IsPremium:        "is_premium",
		Premium:          "premium",
		Entitlements:     "entitlements",
		Rewind:           "rewind",
		StripeCustomerID: "stripe_customer_id",
		SubscriptionID:   "subscription_id",
		LastActiveAt:     "last_active_at",
		CreatedAt:        "created_at",
		UpdatedAt:        "updated_at",
	}
	return &Repository{
		db:      db,
		Log:     log,
		columns: cols,
	}
}

// selectColumns колонки для чтения профиля; вложенные структуры маппятся через "parent.child"
func (r *Repository) selectColumns() string {
	return strings.Join([]string{
		"id", "username", "email", "gender", "age", "orientation", "orientation_list",
		"religion", "education", "profession", "political_ideology", "children", "pets",
		"goal", "looking_for", "body_type", "status",
		`country AS "location.country"`, `region AS "location.region"`, `city AS "location.city"`,
		`latitude AS "location.latitude"`, `longitude AS "location.longitude"`,
		"smoke", "drink", "drugs", "lifestyle",
		"profile_picture", "photos", "extra_images",
		"is_hidden", "hidden_until", "resume_on_login", "visibility",
		"is_premium", "premium", "entitlements", "preferences", "rewind",
		`stripe_customer_id AS "billing.stripe_customer_id"`, `subscription_id AS "billing.subscription_id"`,
		"last_active_at", "created_at", "updated_at",
	}, ", ")
}

// Create создаёт новый профиль
func (r *Repository) Create(ctx context.Context, user *domain.User) error {
	return r.create(ctx, r.db, user)
}

func (r *Repository) create(ctx context.Context, db persistence.Persistence, user *domain.User) error {
	user.Normalize(time.Now())

	query := fmt.Sprintf(`INSERT INTO %s (
		id, username, email, gender, age, orientation, orientation_list,
		religion, education, profession, political_ideology, children, pets,
		goal, looking_for, body_type, status,
		country, region, city, latitude, longitude,
		smoke, drink, drugs, lifestyle,
		profile_picture, photos, extra_images,
		is_hidden, hidden_until, resume_on_login, visibility,
		is_premium, premium, entitlements, preferences, rewind,
		stripe_customer_id, subscription_id,
		last_active_at, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
		$18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33,
		$34, $35, $36, $37, $38, $39, $40, $41, $42, $43
	)`, r.columns.TableName)

	err := db.Exec(ctx, query,
		user.ID, user.Username, user.Email, user.Gender, user.Age, user.Orientation, user.OrientationList,
		user.Religion, user.Education, user.Profession, user.PoliticalIdeology, user.Children, user.Pets,
		user.Goal, user.LookingFor, user.BodyType, user.Status,
		user.Location.Country, user.Location.Region, user.Location.City, user.Location.Latitude, user.Location.Longitude,
		user.Smoke, user.Drink, user.Drugs, user.Lifestyle,
		user.ProfilePicture, user.Photos, user.ExtraImages,
		user.IsHidden, user.HiddenUntil, user.ResumeOnLogin, user.Visibility,
		user.IsPremium, user.Premium, user.Entitlements, user.Preferences, user.Rewind,
		user.Billing.StripeCustomerID, user.Billing.SubscriptionID,
		user.LastActiveAt, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		r.Log.Error("failed to create user",
			"error", err,
			"user_id", user.ID)
		return fmt.Errorf("failed to create user: %w: %w", domain.ErrTransientStore, err)
	}
	r.Log.Debug("user created successfully", "user_id", user.ID)
	return nil
}

// GetByID получает профиль по ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		r.selectColumns(),
		r.columns.TableName,
		r.columns.ID)
	return r.getOne(ctx, r.db, query, "user_id", id)
}

// GetByIDForUpdateTx получает профиль с блокировкой строки
func (r *Repository) GetByIDForUpdateTx(ctx context.Context, tx persistence.Transaction, id uuid.UUID) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 FOR UPDATE`,
		r.selectColumns(),
		r.columns.TableName,
		r.columns.ID)
	return r.getOne(ctx, tx, query, "user_id", id)
}

// GetByStripeCustomerID получает профиль по клиенту биллинга
func (r *Repository) GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		r.selectColumns(),
		r.columns.TableName,
		r.columns.StripeCustomerID)
	return r.getOne(ctx, r.db, query, "stripe_customer_id", customerID)
}

// GetByStripeCustomerIDForUpdateTx то же с блокировкой строки
func (r *Repository) GetByStripeCustomerIDForUpdateTx(ctx context.Context, tx persistence.Transaction, customerID string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 FOR UPDATE`,
		r.selectColumns(),
		r.columns.TableName,
		r.columns.StripeCustomerID)
	return r.getOne(ctx, tx, query, "stripe_customer_id", customerID)
}

func (r *Repository) getOne(ctx context.Context, db persistence.Persistence, query, key string, value interface{}) (*domain.User, error) {
	var user domain.User
	if err := db.Get(ctx, &user, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Warn("user not found", key, value)
			return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
		}
		r.Log.Error("failed to get user",
			"error", err,
			key, value)
		return nil, fmt.Errorf("failed to get user: %w: %w", domain.ErrTransientStore, err)
	}
	r.Log.Debug("user retrieved successfully", key, value)
	return &user, nil
}

// ListCandidates базовая выборка кандидатов. Строки, которые не удалось
// прочитать, пропускаются: один битый профиль не ломает выдачу.
func (r *Repository) ListCandidates(ctx context.Context, q domain.CandidateQuery) ([]*domain.User, error) {
	where, args := r.candidateConditions(q)

	limit := q.ScanLimit
	if limit <= 0 {
		limit = defaultScanLimit
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT %s FROM %s %s ORDER BY %s LIMIT $%d`,
		r.selectColumns(),
		r.columns.TableName,
		where,
		r.candidateOrder(q.Sort),
		len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.Log.Error("failed to list candidates", "error", err)
		return nil, fmt.Errorf("failed to list candidates: %w: %w", domain.ErrTransientStore, err)
	}
	defer rows.Close()

	var (
		users   []*domain.User
		skipped int
	)
	for rows.Next() {
		var user domain.User
		if err := rows.StructScan(&user); err != nil {
			skipped++
			r.Log.Warn("skipping unreadable candidate row", "error", err)
			continue
		}
		users = append(users, &user)
	}
	if err := rows.Err(); err != nil {
		r.Log.Error("failed to iterate candidates", "error", err)
		return nil, fmt.Errorf("failed to iterate candidates: %w: %w", domain.ErrTransientStore, err)
	}

	r.Log.Debug("candidates listed", "count", len(users), "skipped", skipped)
	return users, nil
}

// candidateOrder порядок строк до LIMIT. Расстояние считается в памяти,
// для него берутся самые активные.
func (r *Repository) candidateOrder(key domain.SortKey) string {
	switch key {
	case domain.SortNewest:
		return fmt.Sprintf("%s DESC, %s", r.columns.CreatedAt, r.columns.ID)
	case domain.SortAgeAsc:
		return fmt.Sprintf("%s ASC NULLS LAST, %s", r.columns.Age, r.columns.ID)
	case domain.SortAgeDesc:
		return fmt.Sprintf("%s DESC NULLS LAST, %s", r.columns.Age, r.columns.ID)
	default:
		return fmt.Sprintf("%s DESC NULLS LAST, %s", r.columns.LastActiveAt, r.columns.ID)
	}
}

// candidateConditions собирает WHERE по базовым фильтрам
func (r *Repository) candidateConditions(q domain.CandidateQuery) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(format string, value interface{}) {
		args = append(args, value)
		conds = append(conds, strings.ReplaceAll(format, "?", fmt.Sprintf("$%d", len(args))))
	}

	if q.ExcludeID != nil {
		add(r.columns.ID+" <> ?", *q.ExcludeID)
	}

	// видимость как после снятия истёкшего скрытия: вложенный hiddenUntil
	// в приоритете над legacy-колонкой
	if !q.VisibleAt.IsZero() {
		args = append(args, q.VisibleAt)
		until := fmt.Sprintf("COALESCE((%s->>'hiddenUntil')::timestamptz, %s)", r.columns.Visibility, r.columns.HiddenUntil)
		visible := fmt.Sprintf("(%s <> '%s' AND (%s <= $%d OR (%s IS NULL AND NOT %s AND NOT COALESCE((%s->>'isHidden')::boolean, FALSE))))",
			r.columns.Status, domain.UserStatusHidden,
			until, len(args),
			until, r.columns.IsHidden, r.columns.Visibility)
		if q.SelfID != nil {
			args = append(args, *q.SelfID)
			visible = fmt.Sprintf("(%s = $%d OR %s)", r.columns.ID, len(args), visible)
		}
		conds = append(conds, visible)
	}

	equal := []struct {
		column string
		value  string
	}{
		{"gender", q.Gender},
		{"country", q.Country},
		{"region", q.Region},
		{"city", q.City},
		{"political_ideology", q.PoliticalIdeology},
		{"religion", q.Religion},
		{"education", q.Education},
		{"children", q.Children},
		{"pets", q.Pets},
		{"goal", q.Goal},
		{"looking_for", q.LookingFor},
		{"body_type", q.BodyType},
		{"status", q.Status},
	}
	for _, f := range equal {
		if f.value != "" {
			add("LOWER("+f.column+") = LOWER(TRIM(?))", f.value)
		}
	}

	// вложенный lifestyle в приоритете, legacy-колонка как запасной вариант
	for _, f := range []struct{ key, value string }{
		{"smoke", q.Smoke},
		{"drink", q.Drink},
		{"drugs", q.Drugs},
	} {
		if f.value != "" {
			add(fmt.Sprintf("LOWER(COALESCE(NULLIF(%s->>'%s', ''), %s)) = LOWER(TRIM(?))", r.columns.Lifestyle, f.key, f.key), f.value)
		}
	}

	if q.Orientation != "" {
		add(fmt.Sprintf(`(LOWER(%s) = LOWER(TRIM(?)) OR EXISTS (
			SELECT 1 FROM jsonb_array_elements_text(%s) AS o WHERE LOWER(o) = LOWER(TRIM(?))))`,
			r.columns.Orientation, r.columns.OrientationList), q.Orientation)
	}

	if q.Profession != "" {
		add(r.columns.Profession+" ILIKE '%' || TRIM(?) || '%'", q.Profession)
	}
	if q.Username != "" {
		add(r.columns.Username+" ILIKE '%' || TRIM(?) || '%'", q.Username)
	}

	if q.MinAge != nil {
		add(r.columns.Age+" >= ?", *q.MinAge)
	}
	if q.MaxAge != nil {
		add(r.columns.Age+" <= ?", *q.MaxAge)
	}

	if b := q.Box; b != nil {
		args = append(args, b.MinLat, b.MaxLat)
		conds = append(conds, fmt.Sprintf("%s BETWEEN $%d AND $%d", r.columns.Latitude, len(args)-1, len(args)))

		lng := r.columns.Longitude
		switch {
		case b.MinLng < -180:
			args = append(args, b.MinLng+360, b.MaxLng)
			conds = append(conds, fmt.Sprintf("(%s >= $%d OR %s <= $%d)", lng, len(args)-1, lng, len(args)))
		case b.MaxLng > 180:
			args = append(args, b.MinLng, b.MaxLng-360)
			conds = append(conds, fmt.Sprintf("(%s >= $%d OR %s <= $%d)", lng, len(args)-1, lng, len(args)))
		default:
			args = append(args, b.MinLng, b.MaxLng)
			conds = append(conds, fmt.Sprintf("%s BETWEEN $%d AND $%d", lng, len(args)-1, len(args)))
		}
	}

	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// ListExpiredPremium премиум с истёкшим until
func (r *Repository) ListExpiredPremium(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := fmt.Sprintf(`SELECT %s FROM %s
		WHERE %s->>'tier' = 'premium'
		AND %s->>'until' IS NOT NULL
		AND (%s->>'until')::timestamptz <= $1
		ORDER BY %s LIMIT $2`,
		r.columns.ID,
		r.columns.TableName,
		r.columns.Entitlements,
		r.columns.Entitlements,
		r.columns.Entitlements,
		r.columns.ID)
	if err := r.db.Select(ctx, &ids, query, now, limit); err != nil {
		r.Log.Error("failed to list expired premium", "error", err)
		return nil, fmt.Errorf("failed to list expired premium: %w: %w", domain.ErrTransientStore, err)
	}
	r.Log.Debug("expired premium listed", "count", len(ids))
	return ids, nil
}

// ListExpiredHidden профили с истёкшим временным скрытием
func (r *Repository) ListExpiredHidden(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := fmt.Sprintf(`SELECT %s FROM %s
		WHERE (%s IS NOT NULL AND %s <= $1)
		OR ((%s->>'hiddenUntil') IS NOT NULL AND (%s->>'hiddenUntil')::timestamptz <= $1)
		ORDER BY %s LIMIT $2`,
		r.columns.ID,
		r.columns.TableName,
		r.columns.HiddenUntil,
		r.columns.HiddenUntil,
		r.columns.Visibility,
		r.columns.Visibility,
		r.columns.ID)
	if err := r.db.Select(ctx, &ids, query, now, limit); err != nil {
		r.Log.Error("failed to list expired hidden", "error", err)
		return nil, fmt.Errorf("failed to list expired hidden: %w: %w", domain.ErrTransientStore, err)
	}
	r.Log.Debug("expired hidden listed", "count", len(ids))
	return ids, nil
}

// UpdateLastActive обновляет время последней активности
func (r *Repository) UpdateLastActive(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $1 WHERE %s = $2`,
		r.columns.TableName,
		r.columns.LastActiveAt,
		r.columns.ID)
	rowsAffected, err := r.db.ExecWithResult(ctx, query, at, id)
	if err != nil {
		r.Log.Error("failed to update last active",
			"error", err,
			"user_id", id)
		return fmt.Errorf("failed to update last active: %w: %w", domain.ErrTransientStore, err)
	}
	if rowsAffected == 0 {
		r.Log.Warn("user not found for update last active", "user_id", id)
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	r.Log.Debug("last active updated successfully", "user_id", id)
	return nil
}

// BeginTx явно начинает транзакцию
func (r *Repository) BeginTx(ctx context.Context) (persistence.Transaction, error) {
	return r.db.BeginTx(ctx)
}

// WithTransaction выполняет функцию в транзакции с автоматическим commit/rollback
func (r *Repository) WithTransaction(ctx context.Context, fn func(context.Context, persistence.Transaction) error) error {
	return r.db.WithTransaction(ctx, fn)
}

// UpdateStateTx сохраняет изменяемое состояние одним UPDATE, legacy-зеркала пишутся вместе с блоками
func (r *Repository) UpdateStateTx(ctx context.Context, tx persistence.Transaction, user *domain.User) error {
	user.UpdatedAt = time.Now()

	query := fmt.Sprintf(`UPDATE %s SET
		%s = $2, %s = $3, %s = $4, %s = $5,
		%s = $6, %s = $7, %s = $8,
		%s = $9, %s = $10, %s = $11,
		status = $12, %s = $13
		WHERE %s = $1`,
		r.columns.TableName,
		r.columns.IsHidden, r.columns.HiddenUntil, r.columns.ResumeOnLogin, r.columns.Visibility,
		r.columns.IsPremium, r.columns.Premium, r.columns.Entitlements,
		r.columns.Rewind, r.columns.StripeCustomerID, r.columns.SubscriptionID,
		r.columns.UpdatedAt,
		r.columns.ID)

	rowsAffected, err := tx.ExecWithResult(ctx, query,
		user.ID,
		user.IsHidden, user.HiddenUntil, user.ResumeOnLogin, user.Visibility,
		user.IsPremium, user.Premium, user.Entitlements,
		user.Rewind, user.Billing.StripeCustomerID, user.Billing.SubscriptionID,
		user.Status, user.UpdatedAt)
	if err != nil {
		r.Log.Error("failed to update user state in transaction",
			"error", err,
			"user_id", user.ID)
		return fmt.Errorf("failed to update user state: %w: %w", domain.ErrTransientStore, err)
	}
	if rowsAffected == 0 {
		r.Log.Warn("user not found for state update in transaction", "user_id", user.ID)
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	r.Log.Debug("user state updated in transaction", "user_id", user.ID)
	return nil
}
