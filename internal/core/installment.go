package core

// PayInstallment records one more paid installment. When the last one is
// paid the transaction status becomes paid. Paying a transaction that has no
// installments, or one that is already complete, is a precondition failure.
func (t *Transaction) PayInstallment() error {
	if t.Installment == nil {
		return ErrNotInstallment
	}
	if t.Installment.Current >= t.Installment.Total {
		return ErrAlreadyComplete
	}
	next := *t.Installment
	next.Current++
	t.Installment = &next
	if next.Current == next.Total {
		t.Status = Paid
	}
	return nil
}

// Remaining returns the number of unpaid installments.
func (i Installment) Remaining() int {
	return i.Total - i.Current
}
