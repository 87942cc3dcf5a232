package core

import "strings"

// Changesets carry the optional fields of an update request. A nil field is
// left untouched. Applying an empty changeset is rejected.
type (
	UserUpdate struct {
		Email    *string `json:"email,omitempty"`
		Name     *string `json:"name,omitempty"`
		Password *string `json:"password,omitempty"`
	}

	AccountUpdate struct {
		Name *string      `json:"name,omitempty"`
		Type *AccountType `json:"type,omitempty"`
	}

	CategoryUpdate struct {
		Name *string `json:"name,omitempty"`
		Icon *string `json:"icon,omitempty"`
	}

	TransactionUpdate struct {
		Description *string            `json:"description,omitempty"`
		Type        *TransactionType   `json:"type,omitempty"`
		Value       *Money             `json:"value,omitempty"`
		Date        *Date              `json:"transaction_date,omitempty"`
		CategoryID  *ID                `json:"category_id,omitempty"`
		Notes       *string            `json:"notes,omitempty"`
		Status      *TransactionStatus `json:"status,omitempty"`
		ExpenseType *ExpenseType       `json:"expense_type,omitempty"`
		Installment *Installment       `json:"installment_details,omitempty"`
	}
)

func (u UserUpdate) IsEmpty() bool {
	return u.Email == nil && u.Name == nil && u.Password == nil
}

// Apply returns the updated user. Password changes are hashed by the caller.
func (u UserUpdate) Apply(user User) (User, error) {
	if u.IsEmpty() {
		return user, ErrEmptyChangeset
	}
	if u.Email != nil {
		user.Email = NormalizeEmail(*u.Email)
	}
	if u.Name != nil {
		user.Name = strings.TrimSpace(*u.Name)
	}
	return user, user.Validate()
}

func (u AccountUpdate) IsEmpty() bool {
	return u.Name == nil && u.Type == nil
}

func (u AccountUpdate) Apply(a Account) (Account, error) {
	if u.IsEmpty() {
		return a, ErrEmptyChangeset
	}
	if u.Name != nil {
		a.Name = strings.TrimSpace(*u.Name)
	}
	if u.Type != nil {
		a.Type = *u.Type
	}
	return a, a.Validate()
}

func (u CategoryUpdate) IsEmpty() bool {
	return u.Name == nil && u.Icon == nil
}

func (u CategoryUpdate) Apply(c Category) (Category, error) {
	if u.IsEmpty() {
		return c, ErrEmptyChangeset
	}
	if u.Name != nil {
		c.Name = strings.TrimSpace(*u.Name)
	}
	if u.Icon != nil {
		c.Icon = strings.TrimSpace(*u.Icon)
	}
	return c, c.Validate()
}

func (u TransactionUpdate) IsEmpty() bool {
	return u.Description == nil && u.Type == nil && u.Value == nil && u.Date == nil &&
		u.CategoryID == nil && u.Notes == nil && u.Status == nil && u.ExpenseType == nil &&
		u.Installment == nil
}

func (u TransactionUpdate) Apply(t Transaction) (Transaction, error) {
	if u.IsEmpty() {
		return t, ErrEmptyChangeset
	}
	if u.Description != nil {
		t.Description = strings.TrimSpace(*u.Description)
	}
	if u.Type != nil {
		t.Type = *u.Type
	}
	if u.Value != nil {
		t.Value = *u.Value
	}
	if u.Date != nil {
		t.Date = *u.Date
	}
	if u.CategoryID != nil {
		t.CategoryID = *u.CategoryID
	}
	if u.Notes != nil {
		t.Notes = strings.TrimSpace(*u.Notes)
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.ExpenseType != nil {
		t.ExpenseType = *u.ExpenseType
	}
	if u.Installment != nil {
		inst := *u.Installment
		t.Installment = &inst
	}
	return t, t.Validate()
}
