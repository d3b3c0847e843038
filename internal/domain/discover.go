package domain

import (
	"time"

	"github.com/google/uuid"
)

// SortKey порядок выдачи
type SortKey string

const (
	SortRecent   SortKey = "recent"
	SortNewest   SortKey = "newest"
	SortAgeAsc   SortKey = "ageAsc"
	SortAgeDesc  SortKey = "ageDesc"
	SortDistance SortKey = "distance"
)

// ParseSortKey пустая строка даёт recent
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case "":
		return SortRecent, nil
	case SortRecent, SortNewest, SortAgeAsc, SortAgeDesc, SortDistance:
		return k, nil
	default:
		return "", NewValidationError("sort", "must be one of recent, newest, ageAsc, ageDesc, distance")
	}
}

const (
	MinAllowedAge = 18
	MaxAllowedAge = 120
)

// DiscoverFilters разобранные параметры запроса выдачи.
// Указатели различают "не передано" и явное значение.
type DiscoverFilters struct {
	// Базовые фильтры, доступны всем тарифам
	Gender            string
	Orientation       string
	MinAge            *int
	MaxAge            *int
	Country           string
	Region            string
	City              string
	Smoke             string
	Drink             string
	Drugs             string
	PoliticalIdeology string
	Profession        string
	Religion          string
	Education         string
	Children          string
	Pets              string
	Goal              string
	LookingFor        string
	BodyType          string
	Status            string
	Username          string

	// Переопределения dealbreakers, учитываются только при доступной функции
	MustHavePhoto *bool
	NonSmokerOnly *bool
	NoDrugs       *bool
	PetsOk        *bool
	DistanceKm    *float64

	IncludeSelf bool
	WithMeta    bool
	Page        int
	Limit       int
	Sort        SortKey
}

// DiscoverMeta какие фильтры реально применены
type DiscoverMeta struct {
	AppliedMustHavePhoto bool     `json:"appliedMustHavePhoto"`
	AppliedNonSmokerOnly bool     `json:"appliedNonSmokerOnly"`
	AppliedNoDrugs       bool     `json:"appliedNoDrugs"`
	AppliedPetsOk        *bool    `json:"appliedPetsOk"`
	AppliedDistanceKm    *float64 `json:"appliedDistanceKm"`
	AppliedMinAge        *int     `json:"appliedMinAge"`
	AppliedMaxAge        *int     `json:"appliedMaxAge"`
	AppliedReligion      []string `json:"appliedReligion,omitempty"`
	AppliedEducation     []string `json:"appliedEducation,omitempty"`
	DealbreakersEnabled  bool     `json:"dealbreakersEnabled"`
	IncludeSelf          bool     `json:"includeSelf"`
	Page                 int      `json:"page"`
	Limit                int      `json:"limit"`
	Sort                 SortKey  `json:"sort"`
	Total                int      `json:"total"`
	Error                string   `json:"error,omitempty"`
}

// DiscoverResult конверт выдачи
type DiscoverResult struct {
	Users []PublicUser `json:"users"`
	Meta  DiscoverMeta `json:"meta"`
}

// PublicUser проекция кандидата без приватных полей
type PublicUser struct {
	ID                string           `json:"id"`
	Username          string           `json:"username"`
	Gender            string           `json:"gender,omitempty"`
	Age               *int             `json:"age,omitempty"`
	Orientation       string           `json:"orientation,omitempty"`
	OrientationList   []string         `json:"orientationList,omitempty"`
	Religion          string           `json:"religion,omitempty"`
	Education         string           `json:"education,omitempty"`
	Profession        string           `json:"profession,omitempty"`
	PoliticalIdeology string           `json:"politicalIdeology,omitempty"`
	Children          string           `json:"children,omitempty"`
	Pets              string           `json:"pets,omitempty"`
	Goal              string           `json:"goal,omitempty"`
	LookingFor        string           `json:"lookingFor,omitempty"`
	BodyType          string           `json:"bodyType,omitempty"`
	Location          Location         `json:"location"`
	Lifestyle         Lifestyle        `json:"lifestyle"`
	ProfilePicture    *string          `json:"profilePicture"`
	Photos            []Photo          `json:"photos"`
	DistanceKm        *float64         `json:"distanceKm,omitempty"`
	Premium           bool             `json:"premium"`
	Visibility        *VisibilityState `json:"visibility,omitempty"`
	LastActiveAt      *string          `json:"lastActiveAt,omitempty"`
}

// Photo ссылка на изображение
type Photo struct {
	URL string `json:"url"`
}

// CandidateQuery базовая выборка из хранилища. Пустые поля не фильтруют.
type CandidateQuery struct {
	ExcludeID *uuid.UUID

	Gender            string
	Orientation       string
	MinAge            *int
	MaxAge            *int
	Country           string
	Region            string
	City              string
	Smoke             string
	Drink             string
	Drugs             string
	PoliticalIdeology string
	Profession        string
	Religion          string
	Education         string
	Children          string
	Pets              string
	Goal              string
	LookingFor        string
	BodyType          string
	Status            string
	Username          string

	// Box предфильтр по координатам, когда активен фильтр расстояния
	Box *BoundingBox
	// VisibleAt скрытые на этот момент отсекаются в хранилище до ScanLimit;
	// нулевое значение выключает условие
	VisibleAt time.Time
	// SelfID своя карточка проходит мимо условия видимости
	SelfID *uuid.UUID
	// Sort порядок, в котором хранилище отдаёт строки до ScanLimit
	Sort SortKey
	// ScanLimit верхняя граница числа строк из хранилища
	ScanLimit int
}
