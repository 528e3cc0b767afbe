package domain

import (
	"strings"
	"time"
)

// Employee represents a member of an organization.
type Employee struct {
	ID         string
	OrgID      string
	Name       string
	Skills     []string
	JobTitle   *string
	Department *string
	IsActive   bool
	CreatedAt  time.Time
}

// HasJobTitle returns true if a non-blank job title is set.
func (e *Employee) HasJobTitle() bool {
	return e.JobTitle != nil && strings.TrimSpace(*e.JobTitle) != ""
}

// HasDepartment returns true if a non-blank department is set.
func (e *Employee) HasDepartment() bool {
	return e.Department != nil && strings.TrimSpace(*e.Department) != ""
}
