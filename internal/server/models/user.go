package models

import "time"

// Role is the privilege level of an account.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCoadmin Role = "coadmin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCoadmin
}

// User is a persisted account profile. PasswordHash is the bcrypt digest and
// is never serialized.
type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	UserName     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Sanitized returns a copy of u without the password digest.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.PasswordHash = ""
	return &c
}

// ProfileUpdate carries the optional fields of a self-service profile edit.
// A nil field is left untouched.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
}

// Empty reports whether the update changes nothing.
func (p ProfileUpdate) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil
}

// UserFilter selects a page of users.
type UserFilter struct {
	Search string
	Role   Role
	Offset int
	Limit  int
}

// Pagination describes where a page sits in the full result set.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalUsers  int  `json:"totalUsers"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// NewPagination computes page metadata for total rows split by limit.
func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{
		CurrentPage: page,
		TotalPages:  pages,
		TotalUsers:  total,
		HasNextPage: page < pages,
		HasPrevPage: page > 1,
	}
}

// UserPage is one page of ListUsers output.
type UserPage struct {
	Users      []*User    `json:"users"`
	Pagination Pagination `json:"pagination"`
}

// UserStats aggregates account counts.
type UserStats struct {
	TotalUsers   int `json:"totalUsers"`
	AdminCount   int `json:"adminCount"`
	CoadminCount int `json:"coadminCount"`
	RecentUsers  int `json:"recentUsers"`
}
