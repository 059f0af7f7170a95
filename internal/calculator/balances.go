package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/warikan/internal/models"
)

// Balance is one person's outstanding amount over a set of purchases.
type Balance struct {
	PersonID string          `json:"_id" yaml:"id" csv:"id"`
	Name     string          `json:"name" yaml:"name" csv:"name"`
	NetOwed  decimal.Decimal `json:"netOwed" yaml:"net_owed" csv:"net_owed"` // Positive = owes, negative = overpaid
}

// Transfer is a suggested payment from a debtor to a creditor.
type Transfer struct {
	From   string          `json:"from" yaml:"from" csv:"from"`
	To     string          `json:"to" yaml:"to" csv:"to"`
	Amount decimal.Decimal `json:"amount" yaml:"amount" csv:"amount"`
}

// Participants returns the distinct participants across purchases, keyed by
// person ID. The order is that of first appearance; the record kept for an ID
// is the last one seen, so display fields may come from any purchase.
func Participants(purchases []models.Purchase) []models.Participant {
	index := make(map[string]int)
	var directory []models.Participant

	for _, purchase := range purchases {
		for _, participant := range purchase.Participants {
			if i, exists := index[participant.ID]; exists {
				directory[i] = participant
				continue
			}
			index[participant.ID] = len(directory)
			directory = append(directory, participant)
		}
	}
	return directory
}

// Balances computes, for every participant of the ledger-wide directory,
// the sum of ToPay - Paid over the purchases accepted by include. A person
// absent from an included purchase contributes nothing for it. A nil include
// accepts every purchase.
func Balances(purchases []models.Purchase, include func(models.Purchase) bool) []Balance {
	directory := Participants(purchases)

	totals := make(map[string]decimal.Decimal, len(directory))
	for _, purchase := range purchases {
		if include != nil && !include(purchase) {
			continue
		}
		for _, participant := range purchase.Participants {
			totals[participant.ID] = totals[participant.ID].Add(participant.Outstanding())
		}
	}

	balances := make([]Balance, len(directory))
	for i, participant := range directory {
		balances[i] = Balance{
			PersonID: participant.ID,
			Name:     participant.Name,
			NetOwed:  totals[participant.ID],
		}
	}
	return balances
}

// BalanceMap indexes balances by person ID.
func BalanceMap(balances []Balance) map[string]Balance {
	m := make(map[string]Balance, len(balances))
	for _, b := range balances {
		m[b.PersonID] = b
	}
	return m
}

// Sum returns the total of NetOwed over balances.
func Sum(balances []Balance) decimal.Decimal {
	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(b.NetOwed)
	}
	return total
}

// SettleUp suggests transfers that clear the given balances. People who owe
// (positive NetOwed) pay people who overpaid (negative NetOwed), matched
// greedily in balance order. When the balances do not sum to zero, the
// unmatched remainder is left out.
func SettleUp(balances []Balance) []Transfer {
	type entry struct {
		name   string
		amount decimal.Decimal
	}

	var debtors, creditors []entry
	for _, b := range balances {
		switch b.NetOwed.Sign() {
		case 1:
			debtors = append(debtors, entry{b.PersonID, b.NetOwed})
		case -1:
			creditors = append(creditors, entry{b.PersonID, b.NetOwed.Neg()})
		}
	}

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := decimal.Min(debtors[i].amount, creditors[j].amount)
		if amount.IsPositive() {
			transfers = append(transfers, Transfer{
				From:   debtors[i].name,
				To:     creditors[j].name,
				Amount: amount,
			})
		}

		debtors[i].amount = debtors[i].amount.Sub(amount)
		creditors[j].amount = creditors[j].amount.Sub(amount)

		if !debtors[i].amount.IsPositive() {
			i++
		}
		if !creditors[j].amount.IsPositive() {
			j++
		}
	}
	return transfers
}
