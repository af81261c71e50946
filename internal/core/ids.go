package core

// Identified is implemented by records numbered by the store.
type Identified interface {
	Expense | Income
}

func recordID[T Identified](r T) int64 {
	switch v := any(r).(type) {
	case Expense:
		return v.ID
	case Income:
		return v.ID
	}
	return 0
}

// NextID returns 1 for an empty collection, else the largest id plus one.
func NextID[T Identified](records []T) int64 {
	var maxID int64
	for _, r := range records {
		if id := recordID(r); id > maxID {
			maxID = id
		}
	}
	return maxID + 1
}

// IssueID returns the id for a new record. It never returns an id at or
// below issued, the highest id previously handed out for the collection.
func IssueID[T Identified](records []T, issued int64) int64 {
	id := NextID(records)
	if issued >= id {
		id = issued + 1
	}
	return id
}

// IndexOfExpense returns the position of the expense with id, or -1.
func (a Aggregate) IndexOfExpense(id int64) int {
	for i, e := range a.Expenses {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// IndexOfIncome returns the position of the income entry with id, or -1.
func (a Aggregate) IndexOfIncome(id int64) int {
	for i, in := range a.Income {
		if in.ID == id {
			return i
		}
	}
	return -1
}
