package domain

import "strings"

// Lifestyle вложенный блок образа жизни
type Lifestyle struct {
	Smoke string `json:"smoke,omitempty"`
	Drink string `json:"drink,omitempty"`
	Drugs string `json:"drugs,omitempty"`
}

var (
	nonSmokerValues = map[string]struct{}{
		"no": {}, "none": {}, "never": {}, "non-smoker": {}, "non smoker": {}, "nonsmoker": {},
		"sober": {}, "clean": {}, "nope": {}, "no_smoke": {}, "does not smoke": {},
	}
	noDrugsValues = map[string]struct{}{
		"no": {}, "none": {}, "never": {}, "sober": {}, "clean": {}, "nope": {},
		"no_drugs": {}, "drug-free": {}, "drug free": {},
	}
	petsIntolerantValues = map[string]struct{}{
		"allergic": {}, "dislikes": {}, "no_pets_please": {},
	}
	hasPetsValues = map[string]struct{}{
		"has_pets": {}, "dog": {}, "cat": {}, "dogs": {}, "cats": {}, "yes": {}, "has": {},
	}
)

func normalizeValue(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func equalFold(a, b string) bool {
	return normalizeValue(a) == normalizeValue(b)
}

func inSet(set map[string]struct{}, value string) bool {
	_, ok := set[normalizeValue(value)]
	return ok
}

// IsNonSmoker значение smoke означает некурящего
func IsNonSmoker(value string) bool {
	return inSet(nonSmokerValues, value)
}

// IsDrugFree значение drugs означает отказ от веществ
func IsDrugFree(value string) bool {
	return inSet(noDrugsValues, value)
}

// PetsIntolerant кандидат не терпит животных
func PetsIntolerant(value string) bool {
	return inSet(petsIntolerantValues, value)
}

// HasPets у кандидата есть животные
func HasPets(value string) bool {
	return inSet(hasPetsValues, value)
}

// EffectiveLifestyle вложенный блок в приоритете, пустые поля добираются из legacy
func (u *User) EffectiveLifestyle() Lifestyle {
	l := u.Lifestyle
	if l.Smoke == "" {
		l.Smoke = u.Smoke
	}
	if l.Drink == "" {
		l.Drink = u.Drink
	}
	if l.Drugs == "" {
		l.Drugs = u.Drugs
	}
	return l
}

// SetLifestyle запись образа жизни сразу в оба представления
func (u *User) SetLifestyle(l Lifestyle) {
	u.Lifestyle = l
	u.Smoke = l.Smoke
	u.Drink = l.Drink
	u.Drugs = l.Drugs
}
