package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// scanJSON общий разбор JSONB-колонки в структуру (nil и пустое значение - zero value)
func scanJSON(value interface{}, dest interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", value)
	}

	if len(bytes) == 0 {
		return nil
	}

	return json.Unmarshal(bytes, dest)
}

// StringList список строк, хранится как JSONB-массив
type StringList []string

func (l *StringList) Scan(value interface{}) error {
	*l = nil
	return scanJSON(value, l)
}

func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	return json.Marshal([]string(l))
}

// Contains регистронезависимая проверка вхождения
func (l StringList) Contains(value string) bool {
	for _, v := range l {
		if equalFold(v, value) {
			return true
		}
	}
	return false
}

func (l *Lifestyle) Scan(value interface{}) error {
	*l = Lifestyle{}
	return scanJSON(value, l)
}

func (l Lifestyle) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (v *Visibility) Scan(value interface{}) error {
	*v = Visibility{}
	return scanJSON(value, v)
}

func (v Visibility) Value() (driver.Value, error) {
	return json.Marshal(v)
}

// Scan битые права доступа не должны ронять выдачу: деградируем до free
func (e *Entitlements) Scan(value interface{}) error {
	*e = Entitlements{}
	if err := scanJSON(value, e); err != nil {
		*e = Entitlements{Tier: TierFree}
	}
	return nil
}

func (e Entitlements) Value() (driver.Value, error) {
	return json.Marshal(e)
}

func (p *Preferences) Scan(value interface{}) error {
	*p = Preferences{}
	return scanJSON(value, p)
}

func (p Preferences) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (r *Rewind) Scan(value interface{}) error {
	*r = Rewind{}
	return scanJSON(value, r)
}

func (r Rewind) Value() (driver.Value, error) {
	if r.Stack == nil {
		r.Stack = []RewindEntry{}
	}
	return json.Marshal(r)
}
