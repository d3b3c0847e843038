package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DefaultRewindMax ёмкость стека отмены по умолчанию
const DefaultRewindMax = 50

// RewindEntry запись об отменяемом действии
type RewindEntry struct {
	Type      ActionType `json:"type"`
	TargetID  uuid.UUID  `json:"targetId"`
	CreatedAt time.Time  `json:"createdAt"`
	// Extra неизвестные поля старых писателей, сохраняются как есть
	Extra map[string]json.RawMessage `json:"-"`
}

var (
	rewindTypeAliases   = []string{"type", "action"}
	rewindTargetAliases = []string{"targetId", "target", "targetUserId", "target_id"}
)

// UnmarshalJSON принимает любые известные алиасы типа и цели и приводит их к каноническим
// полям. Значение, которое не удалось разобрать, остаётся в Extra под своим ключом.
func (e *RewindEntry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*e = RewindEntry{}

	for _, key := range rewindTypeAliases {
		v, ok := raw[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			continue
		}
		delete(raw, key)
		if e.Type == "" {
			e.Type = ActionType(s)
		}
	}

	for _, key := range rewindTargetAliases {
		v, ok := raw[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			continue
		}
		id, err := uuid.Parse(s)
		if err != nil {
			continue
		}
		delete(raw, key)
		if e.TargetID == uuid.Nil {
			e.TargetID = id
		}
	}

	if v, ok := raw["createdAt"]; ok {
		var t time.Time
		if err := json.Unmarshal(v, &t); err == nil {
			delete(raw, "createdAt")
			e.CreatedAt = t
		}
	}

	if len(raw) > 0 {
		e.Extra = raw
	}
	return nil
}

// MarshalJSON пишет канонические имена плюс сохранённые лишние поля. Пустое
// каноническое поле не затирает неразобранное значение под тем же ключом.
func (e RewindEntry) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(e.Extra)+3)
	for k, v := range e.Extra {
		out[k] = v
	}
	set := func(key string, empty bool, value interface{}) {
		if _, kept := e.Extra[key]; kept && empty {
			return
		}
		out[key] = value
	}
	set("type", e.Type == "", e.Type)
	set("targetId", e.TargetID == uuid.Nil, e.TargetID)
	set("createdAt", e.CreatedAt.IsZero(), e.CreatedAt)
	return json.Marshal(out)
}

// Rewind история отменяемых действий, новейшие первыми
type Rewind struct {
	Stack []RewindEntry `json:"stack"`
	Max   int           `json:"max"`
}

// capacity действующая ёмкость
func (r *Rewind) capacity() int {
	if r.Max <= 0 {
		return DefaultRewindMax
	}
	return r.Max
}

// Push кладёт запись в голову стека и обрезает хвост
func (r *Rewind) Push(entry RewindEntry) {
	r.Stack = append([]RewindEntry{entry}, r.Stack...)
	r.Cap()
}

// Pop снимает последнюю запись; false если стек пуст
func (r *Rewind) Pop() (RewindEntry, bool) {
	if len(r.Stack) == 0 {
		return RewindEntry{}, false
	}
	entry := r.Stack[0]
	r.Stack = r.Stack[1:]
	return entry, true
}

// Cap удаляет самые старые записи сверх ёмкости
func (r *Rewind) Cap() {
	if r.Max <= 0 {
		r.Max = DefaultRewindMax
	}
	if limit := r.capacity(); len(r.Stack) > limit {
		r.Stack = r.Stack[:limit]
	}
}
