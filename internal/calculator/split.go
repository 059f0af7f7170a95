package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/warikan/internal/models"
)

// EvenSplit shares total equally among people, to the cent. Leftover cents go
// one each to the first people in the list. The payer, if set, is recorded as
// having paid the full total and must be one of the people.
func EvenSplit(total decimal.Decimal, payerID string, people []models.Person) ([]models.Participant, error) {
	if len(people) == 0 {
		return nil, fmt.Errorf("must have at least one participant")
	}
	if total.IsNegative() {
		return nil, fmt.Errorf("total cannot be negative: %s", total)
	}

	payerFound := payerID == ""
	for _, p := range people {
		if p.ID == payerID {
			payerFound = true
		}
	}
	if !payerFound {
		return nil, fmt.Errorf("payer %q must be one of the participants", payerID)
	}

	count := decimal.NewFromInt(int64(len(people)))
	share := total.Div(count).RoundDown(2)
	remainder := total.Sub(share.Mul(count))
	cent := decimal.New(1, -2)

	participants := make([]models.Participant, len(people))
	for i, p := range people {
		toPay := share
		if remainder.IsPositive() {
			toPay = toPay.Add(cent)
			remainder = remainder.Sub(cent)
		}

		paid := decimal.Zero
		if p.ID == payerID {
			paid = total
		}

		participants[i] = models.Participant{Person: p, ToPay: toPay, Paid: paid}
	}

	if err := models.ValidateParticipants(participants); err != nil {
		return nil, err
	}
	return participants, nil
}
