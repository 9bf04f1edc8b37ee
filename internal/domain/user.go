package domain

import "time"

// User is the stored user record. ID is supplied by the caller and never reassigned.
type User struct {
	ID        int64
	Username  string
	LastName  string
	Age       int
	CreatedAt time.Time
}

// UserView is the externally visible projection of a User.
type UserView struct {
	ID        int64
	Username  string
	LastName  string
	Age       int
	CreatedAt time.Time
}

// NewUser carries the caller-supplied fields of a user being created.
type NewUser struct {
	ID       int64
	Username string
	LastName string
	Age      int
}

// UserPatch describes a partial update. Unset fields leave the record unchanged.
type UserPatch struct {
	Username Optional[string]
	LastName Optional[string]
	Age      Optional[int]
}

// Optional marks a value as explicitly supplied.
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// FromPtr converts a nullable pointer into an Optional; nil means unset.
func FromPtr[T any](p *T) Optional[T] {
	if p == nil {
		return Optional[T]{}
	}
	return Some(*p)
}

// Apply writes the set fields of the patch onto u.
func (p UserPatch) Apply(u *User) {
	if p.Username.Set {
		u.Username = p.Username.Value
	}
	if p.LastName.Set {
		u.LastName = p.LastName.Value
	}
	if p.Age.Set {
		u.Age = p.Age.Value
	}
}
