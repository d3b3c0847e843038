package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserStatusHidden явный маркер скрытого профиля (старые записи)
const UserStatusHidden = "hidden"

// User профиль пользователя. Вложенные блоки хранятся как JSONB,
// плоские legacy-поля дублируют их для старых клиентов и фильтров в SQL.
type User struct {
	ID       uuid.UUID `json:"id" db:"id"`
	Username string    `json:"username" db:"username"`
	Email    string    `json:"email,omitempty" db:"email"`

	Gender            string     `json:"gender,omitempty" db:"gender"`
	Age               *int       `json:"age,omitempty" db:"age"`
	Orientation       string     `json:"orientation,omitempty" db:"orientation"`
	OrientationList   StringList `json:"orientationList,omitempty" db:"orientation_list"`
	Religion          string     `json:"religion,omitempty" db:"religion"`
	Education         string     `json:"education,omitempty" db:"education"`
	Profession        string     `json:"profession,omitempty" db:"profession"`
	PoliticalIdeology string     `json:"politicalIdeology,omitempty" db:"political_ideology"`
	Children          string     `json:"children,omitempty" db:"children"`
	Pets              string     `json:"pets,omitempty" db:"pets"`
	Goal              string     `json:"goal,omitempty" db:"goal"`
	LookingFor        string     `json:"lookingFor,omitempty" db:"looking_for"`
	BodyType          string     `json:"bodyType,omitempty" db:"body_type"`
	Status            string     `json:"status,omitempty" db:"status"`

	Location Location `json:"location"`

	// Плоские legacy-поля образа жизни, зеркало Lifestyle
	Smoke     string    `json:"smoke,omitempty" db:"smoke"`
	Drink     string    `json:"drink,omitempty" db:"drink"`
	Drugs     string    `json:"drugs,omitempty" db:"drugs"`
	Lifestyle Lifestyle `json:"lifestyle" db:"lifestyle"`

	ProfilePicture string     `json:"profilePicture,omitempty" db:"profile_picture"`
	Photos         StringList `json:"photos,omitempty" db:"photos"`
	ExtraImages    StringList `json:"extraImages,omitempty" db:"extra_images"`

	// Legacy-поля видимости, зеркало Visibility
	IsHidden      bool       `json:"isHidden" db:"is_hidden"`
	HiddenUntil   *time.Time `json:"hiddenUntil,omitempty" db:"hidden_until"`
	ResumeOnLogin bool       `json:"resumeOnLogin" db:"resume_on_login"`
	Visibility    Visibility `json:"visibility" db:"visibility"`

	// Legacy-флаги премиума, зеркало Entitlements.Tier
	IsPremium    bool         `json:"isPremium" db:"is_premium"`
	Premium      bool         `json:"premium" db:"premium"`
	Entitlements Entitlements `json:"entitlements" db:"entitlements"`

	Preferences Preferences `json:"preferences" db:"preferences"`
	Rewind      Rewind      `json:"rewind" db:"rewind"`
	Billing     Billing     `json:"billing"`

	LastActiveAt *time.Time `json:"lastActiveAt,omitempty" db:"last_active_at"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

// Location страна/регион/город и координаты
type Location struct {
	Country   string   `json:"country,omitempty" db:"country"`
	Region    string   `json:"region,omitempty" db:"region"`
	City      string   `json:"city,omitempty" db:"city"`
	Latitude  *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude *float64 `json:"longitude,omitempty" db:"longitude"`
	// GeoPoint [lng, lat], выводится из координат в Normalize
	GeoPoint []float64 `json:"geoPoint,omitempty" db:"-"`
}

// Coordinates возвращает точку, если заданы обе координаты
func (l Location) Coordinates() (GeoPoint, bool) {
	if l.Latitude == nil || l.Longitude == nil {
		return GeoPoint{}, false
	}
	return GeoPoint{Lat: *l.Latitude, Lng: *l.Longitude}, true
}

// Billing данные внешнего биллинга, ядро их только читает
type Billing struct {
	StripeCustomerID string `json:"stripeCustomerId,omitempty" db:"stripe_customer_id"`
	SubscriptionID   string `json:"subscriptionId,omitempty" db:"subscription_id"`
}

// Preferences пользовательские настройки поиска
type Preferences struct {
	Dealbreakers Dealbreakers `json:"dealbreakers"`
}

// Dealbreakers жёсткие фильтры, доступны только премиуму
type Dealbreakers struct {
	DistanceKm    *float64 `json:"distanceKm,omitempty"`
	AgeMin        *int     `json:"ageMin,omitempty"`
	AgeMax        *int     `json:"ageMax,omitempty"`
	MustHavePhoto bool     `json:"mustHavePhoto,omitempty"`
	NonSmokerOnly bool     `json:"nonSmokerOnly,omitempty"`
	NoDrugs       bool     `json:"noDrugs,omitempty"`
	// PetsOk: nil - без предпочтений, true - кандидат терпим к животным, false - без животных
	PetsOk    *bool      `json:"petsOk,omitempty"`
	Religion  StringList `json:"religion,omitempty"`
	Education StringList `json:"education,omitempty"`
}

// NewUser создаёт пользователя с дефолтами регистрации: free, пустые квоты, видимый
func NewUser(username string, now time.Time) *User {
	return &User{
		ID:           uuid.New(),
		Username:     username,
		Entitlements: Entitlements{Tier: TierFree},
		Rewind:       Rewind{Max: DefaultRewindMax},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// HasPhoto есть ли у пользователя хотя бы одно фото
func (u *User) HasPhoto() bool {
	if u.ProfilePicture != "" {
		return true
	}
	for _, list := range []StringList{u.Photos, u.ExtraImages} {
		for _, p := range list {
			if p != "" {
				return true
			}
		}
	}
	return false
}
