package domain

// TryConsume списывает одну единицу недельной квоты.
// limit <= 0 отказывает, не трогая счётчик. Смена недели сбрасывает used до списания.
func (q *QuotaState) TryConsume(limit int, weekKey string) error {
	if limit <= 0 {
		return &QuotaExceededError{Limit: limit, Used: q.Used, WeekKey: q.WeekKey}
	}

	if q.WeekKey != weekKey {
		q.Used = 0
		q.WeekKey = weekKey
	}

	if q.Used >= limit {
		return &QuotaExceededError{Limit: limit, Used: q.Used, WeekKey: q.WeekKey}
	}

	q.Used++
	return nil
}

// Refund возвращает единицу квоты, если она списана в той же неделе
func (q *QuotaState) Refund(weekKey string) bool {
	if q.WeekKey != weekKey || q.Used <= 0 {
		return false
	}
	q.Used--
	return true
}

// Remaining остаток квоты в неделе weekKey
func (q QuotaState) Remaining(limit int, weekKey string) int {
	used := q.Used
	if q.WeekKey != weekKey {
		used = 0
	}
	if left := limit - used; left > 0 {
		return left
	}
	return 0
}
