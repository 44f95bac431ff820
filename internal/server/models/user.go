// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an account record. PasswordHash is a bcrypt digest and must never
// leave the service layer; handlers work with UserInfo instead.
type User struct {
	ID           string
	Name         string
	Login        string
	PasswordHash string
	Email        string
	Admin        bool
	// StorageSize is the running total of declared byte sizes across the
	// user's files. Maintained by the quota ledger, never negative.
	StorageSize int64
	CreatedAt   time.Time
}

// UserInfo is the public projection of a User returned to clients and used
// as the authorization subject.
type UserInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Login       string    `json:"login"`
	Email       string    `json:"email"`
	Admin       bool      `json:"admin"`
	StorageSize int64     `json:"files_storage_size"`
	CreatedAt   time.Time `json:"created_at"`
}

// Info returns the public projection of u.
func (u *User) Info() *UserInfo {
	return &UserInfo{
		ID:          u.ID,
		Name:        u.Name,
		Login:       u.Login,
		Email:       u.Email,
		Admin:       u.Admin,
		StorageSize: u.StorageSize,
		CreatedAt:   u.CreatedAt,
	}
}

// UserChange describes a partial account update. Nil fields are left
// untouched. Admin may only be set by administrators.
type UserChange struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Admin    *bool   `json:"admin"`
}
