package models

import "time"

// Student is the enrolled-person record consumed as a lookup collaborator.
type Student struct {
	ID          string    `db:"id" json:"id"`
	IDNumber    string    `db:"id_number" json:"id_number"`
	FullName    string    `db:"full_name" json:"full_name"`
	YearSection string    `db:"year_section" json:"year_section,omitempty"`
	Program     string    `db:"program" json:"program,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
