package domain

import "time"

// Project groups tasks under shared objectives, tags and an optional deadline.
type Project struct {
	ID          string     `json:"_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Objectives  []string   `json:"objectives"`
	Tags        []string   `json:"tags"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	CreatedBy   string     `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ProjectPatch carries a partial project update.
type ProjectPatch struct {
	Name        *string
	Description *string
	Objectives  *[]string
	Tags        *[]string
	Deadline    *time.Time
	// ClearDeadline removes the deadline; it wins over Deadline when both are set.
	ClearDeadline bool
}

// Empty reports whether the patch changes nothing.
func (p ProjectPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Objectives == nil &&
		p.Tags == nil && p.Deadline == nil && !p.ClearDeadline
}

// Apply merges the patch into pr and refreshes UpdatedAt.
func (p ProjectPatch) Apply(pr *Project) {
	if p.Name != nil {
		pr.Name = *p.Name
	}
	if p.Description != nil {
		pr.Description = *p.Description
	}
	if p.Objectives != nil {
		pr.Objectives = append([]string(nil), (*p.Objectives)...)
	}
	if p.Tags != nil {
		pr.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.ClearDeadline {
		pr.Deadline = nil
	} else if p.Deadline != nil {
		d := *p.Deadline
		pr.Deadline = &d
	}
	pr.UpdatedAt = Now()
}
