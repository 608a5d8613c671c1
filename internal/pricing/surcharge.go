package pricing

import "github.com/hyeonsu-kim/villa-booking/internal/model"

// Per-guest unit prices in KRW for the excess-occupancy surcharge.
// Infants beyond the free allowance bill at the child rate.
const (
	UnitInfant  int64 = 10000
	UnitChild   int64 = 10000
	UnitStudent int64 = 20000
	UnitAdult   int64 = 30000

	// FreeInfants is the number of infants exempt from billing.
	FreeInfants = 2
)

// Allocation is one line of a surcharge breakdown: how many guests of a
// category were counted as excess and at what unit price.
type Allocation struct {
	Category  string `json:"category"`
	Count     uint32 `json:"count"`
	UnitPrice int64  `json:"unit_price"`
	Amount    int64  `json:"amount"`
}

// BillableGuests returns the number of guests that count against the
// room's base occupancy: all adults, students and children plus any
// infants beyond the free allowance.
func BillableGuests(g model.GuestCounts) uint32 {
	billable := g.Adult + g.Student + g.Child
	if g.Infant > FreeInfants {
		billable += g.Infant - FreeInfants
	}
	return billable
}

// Surcharge computes the excess-occupancy charge for a party against a
// room's base occupancy.  Guests beyond the base occupancy are billed
// cheapest-category-first in a fixed order (paid infant, child,
// student, adult), never consuming more than the category actually
// holds.  The ordering minimizes the guest's charge and must stay
// stable so a quote can be reproduced later.
func Surcharge(g model.GuestCounts, baseOccupancy uint32) (int64, []Allocation) {
	billable := BillableGuests(g)
	if billable <= baseOccupancy {
		return 0, nil
	}
	excess := billable - baseOccupancy

	paidInfants := uint32(0)
	if g.Infant > FreeInfants {
		paidInfants = g.Infant - FreeInfants
	}

	steps := []struct {
		category string
		count    uint32
		unit     int64
	}{
		{"infant", paidInfants, UnitInfant},
		{"child", g.Child, UnitChild},
		{"student", g.Student, UnitStudent},
		{"adult", g.Adult, UnitAdult},
	}

	var total int64
	var breakdown []Allocation
	for _, s := range steps {
		if excess == 0 {
			break
		}
		n := s.count
		if n > excess {
			n = excess
		}
		if n == 0 {
			continue
		}
		amount := int64(n) * s.unit
		breakdown = append(breakdown, Allocation{
			Category:  s.category,
			Count:     n,
			UnitPrice: s.unit,
			Amount:    amount,
		})
		total += amount
		excess -= n
	}
	return total, breakdown
}
