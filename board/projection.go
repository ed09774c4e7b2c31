package board

import "trellis-api/domain"

// Columns is the three-column board view derived from a flat task collection.
type Columns struct {
	Todo  []domain.Task `json:"TODO"`
	Doing []domain.Task `json:"DOING"`
	Done  []domain.Task `json:"DONE"`
}

// Project partitions tasks into board columns. It is a pure function: every
// input task lands in exactly one column and relative input order is preserved
// within each column. The store returns tasks most-recently-updated first, so
// columns come out recency-ordered.
func Project(tasks []domain.Task) Columns {
	var cols Columns
	for _, t := range tasks {
		switch t.Status {
		case domain.StatusDoing:
			cols.Doing = append(cols.Doing, t)
		case domain.StatusDone:
			cols.Done = append(cols.Done, t)
		default:
			cols.Todo = append(cols.Todo, t)
		}
	}
	return cols
}

// Column returns the tasks of a single column.
func (c Columns) Column(status domain.TaskStatus) []domain.Task {
	switch status {
	case domain.StatusDoing:
		return c.Doing
	case domain.StatusDone:
		return c.Done
	default:
		return c.Todo
	}
}

// Len returns the total number of tasks across all columns.
func (c Columns) Len() int {
	return len(c.Todo) + len(c.Doing) + len(c.Done)
}
