package core

import (
	"errors"
	"strings"
	"time"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

type (
	// Kind tags which logical collection an entry belongs to.
	Kind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Entry is a single income or expense record. The two kinds share the
	// same shape and live in separate tables; Paid only carries meaning for
	// expenses but is readable and settable on both.
	Entry struct {
		ID          string
		OwnerID     string
		Description string
		Amount      Money
		Category    string
		Date        Date
		Paid        bool
	}

	// User is a row of the users table, provisioned on signup.
	User struct {
		ID    string
		Name  string
		Email string
		Role  string
	}
)

const (
	RoleAdmin  = "admin"
	RoleNormal = "normal"
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
)

func (k Kind) IsValid() bool {
	return k == KindIncome || k == KindExpense
}

// NewDate creates a Date from year, month, day at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar day at UTC midnight.
func Today() Date {
	y, m, d := time.Now().UTC().Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string. Anything else yields a zero Date,
// which the aggregator treats as matching no month bucket.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String renders the date as YYYY-MM-DD, the storage format.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate checks required-field presence only. Business rules beyond
// amount parseability are deliberately not enforced here.
func (e Entry) Validate() error {
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	return e.Amount.Validate()
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
