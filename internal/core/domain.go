package core

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	Checking   AccountType = "checking"
	Savings    AccountType = "savings"
	CreditCard AccountType = "credit_card"
	Wallet     AccountType = "wallet"

	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	Pending  TransactionStatus = "pending"
	Paid     TransactionStatus = "paid"
	Received TransactionStatus = "received"

	Fixed    ExpenseType = "fixed"
	Variable ExpenseType = "variable"
)

// DateLayout is the wire and storage format of a Date.
const DateLayout = "2006-01-02"

// DefaultAccountName is the account created for every new user.
const DefaultAccountName = "Conta Principal"

type (
	ID                string
	AccountType       string
	TransactionType   string
	TransactionStatus string
	ExpenseType       string

	// Date is a calendar day in UTC.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID           ID        `json:"id"`
		Email        string    `json:"email"`
		Name         string    `json:"name"`
		PasswordHash string    `json:"-"`
		CreatedAt    time.Time `json:"created_at"`
	}

	Account struct {
		ID             ID          `json:"id"`
		OwnerID        ID          `json:"user_id"`
		Name           string      `json:"name"`
		Type           AccountType `json:"type"`
		InitialBalance Money       `json:"balance"`
		Permissions    Permissions `json:"permissions"`
		CreatedAt      time.Time   `json:"created_at"`
	}

	Category struct {
		ID        ID        `json:"id"`
		OwnerID   ID        `json:"user_id"`
		Name      string    `json:"name"`
		Icon      string    `json:"icon,omitempty"`
		CreatedAt time.Time `json:"created_at"`
	}

	// Installment tracks how many of Total payments have been made.
	Installment struct {
		Current int `json:"current_installment"`
		Total   int `json:"total_installments"`
	}

	Transaction struct {
		ID          ID                `json:"id"`
		UserID      ID                `json:"user_id"`
		AccountID   ID                `json:"account_id"`
		CategoryID  ID                `json:"category_id"`
		Description string            `json:"description"`
		Type        TransactionType   `json:"type"`
		Value       Money             `json:"value"`
		Date        Date              `json:"transaction_date"`
		Notes       string            `json:"notes,omitempty"`
		Status      TransactionStatus `json:"status"`
		ExpenseType ExpenseType       `json:"expense_type,omitempty"`
		Installment *Installment      `json:"installment_details,omitempty"`
		CreatedAt   time.Time         `json:"created_at"`
		UpdatedAt   time.Time         `json:"updated_at"`
	}
)

// NewID returns a fresh random identifier.
func NewID() ID {
	return ID(uuid.NewString())
}

// ParseID validates s as an identifier.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", ErrInvalidID
	}
	return ID(u.String()), nil
}

func (id ID) String() string { return string(id) }

// NormalizeEmail lowercases and trims an email address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (t AccountType) Validate() error {
	switch t {
	case Checking, Savings, CreditCard, Wallet:
		return nil
	}
	return ErrInvalidAccountType
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	}
	return ErrInvalidTransactionType
}

func (s TransactionStatus) Validate() error {
	switch s {
	case Pending, Paid, Received:
		return nil
	}
	return ErrInvalidStatus
}

// Validate accepts the empty expense type, which means "not set".
func (e ExpenseType) Validate() error {
	switch e {
	case "", Fixed, Variable:
		return nil
	}
	return ErrInvalidExpenseType
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp, keeping only the day.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return NewDate(t.Year(), int(t.Month()), t.Day()), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ErrInvalidDate
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (u User) Validate() error {
	email := NormalizeEmail(u.Email)
	if at := strings.IndexByte(email, '@'); at < 1 || at == len(email)-1 {
		return ErrInvalidEmail
	}
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if err := a.Type.Validate(); err != nil {
		return err
	}
	return a.Permissions.Validate()
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (i Installment) Validate() error {
	if i.Total < 1 || i.Current < 0 || i.Current > i.Total {
		return ErrInvalidInstallment
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if t.AccountID == "" || t.CategoryID == "" {
		return ErrInvalidID
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if err := t.Value.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if err := t.Status.Validate(); err != nil {
		return err
	}
	if err := t.ExpenseType.Validate(); err != nil {
		return err
	}
	if t.Installment != nil {
		return t.Installment.Validate()
	}
	return nil
}
