package account

import (
	"strings"
	"time"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark || t == ThemeAuto
}

type Account struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	PasswordHash    string    `json:"-"`
	Role            Role      `json:"role"`
	Phone           string    `json:"phone"`
	Address         string    `json:"address"`
	ProfilePhoto    string    `json:"profilePhoto"`
	ThemePreference Theme     `json:"themePreference"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Summary is the owner block joined onto orders shown to staff.
type Summary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (a *Account) Summary() *Summary {
	return &Summary{ID: a.ID, Name: a.Name, Email: a.Email, Phone: a.Phone}
}

// Filter narrows ListAccounts. A nil field means no constraint.
type Filter struct {
	Role *Role
}

// Principal is the authenticated caller as seen by the services.
type Principal struct {
	AccountID string
	Email     string
	Role      Role
}

func (p Principal) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// IsStaff reports whether the caller may manage every order.
func (p Principal) IsStaff() bool {
	return p.HasRole(RoleStaff, RoleAdmin)
}

// NormalizeEmail is applied on every write and lookup so matching is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
