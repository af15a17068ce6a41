package domain

import (
	"regexp"
	"strings"
	"time"
)

type User struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Cell       string    `json:"cell"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HasProfile reports whether the user finished profile completion.
func (u *User) HasProfile() bool {
	return u.Name != "" && u.Cell != ""
}

// VerificationCode is the single live one-time code for an email. The raw
// code is never stored; only its bcrypt hash.
type VerificationCode struct {
	Email     string    `json:"email"`
	CodeHash  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *VerificationCode) IsExpired(ttl time.Duration, now time.Time) bool {
	return now.Sub(c.CreatedAt) > ttl
}

// CodeTTL is how long a verification code stays valid after issuance.
const CodeTTL = 10 * time.Minute

type SendCodeRequest struct {
	Email string `json:"email"`
}

type VerifyCodeRequest struct {
	Email string `json:"email"`
	Key   string `json:"key"`
}

type UpdateProfileRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Cell  string `json:"cell"`
}

type CheckProfileRequest struct {
	Email string `json:"email"`
}

var (
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRegex = regexp.MustCompile(`^\d{3}-\d{3}-\d{4}$`)
	codeRegex  = regexp.MustCompile(`^\d{6}$`)
)

func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

func IsValidPhone(cell string) bool {
	return phoneRegex.MatchString(cell)
}

func (r *SendCodeRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *SendCodeRequest) Validate() error {
	if !IsValidEmail(r.Email) {
		return ErrInvalidEmail
	}
	return nil
}

func (r *VerifyCodeRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Key = strings.TrimSpace(r.Key)
}

func (r *VerifyCodeRequest) Validate() error {
	if !IsValidEmail(r.Email) {
		return ErrInvalidEmail
	}
	if !codeRegex.MatchString(r.Key) {
		return ErrCodeMismatch
	}
	return nil
}

func (r *UpdateProfileRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Name = strings.TrimSpace(r.Name)
	r.Cell = strings.TrimSpace(r.Cell)
}

func (r *UpdateProfileRequest) Validate() error {
	if !IsValidEmail(r.Email) {
		return ErrInvalidEmail
	}
	if !IsValidPhone(r.Cell) {
		return ErrInvalidPhone
	}
	return nil
}
