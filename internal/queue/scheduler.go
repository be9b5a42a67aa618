package queue

import (
	"cmp"
	"slices"

	"esca/queue-gateway/internal/domain"
)

// Order returns the waiting tickets in serving order. It is pure: the input
// is not modified and equal input always yields equal output.
//
// Natural order puts prioritized tickets ahead of regular ones, each group by
// registration time and then id. Manually ranked tickets keep the set of
// natural positions they would occupy but fill them in rank order, so
// unranked tickets never move because of an override.
func Order(tickets []domain.Ticket) []domain.Ticket {
	waiting := make([]domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if t.Status == domain.StatusWaiting {
			waiting = append(waiting, t.Clone())
		}
	}

	slices.SortStableFunc(waiting, compareNatural)

	var (
		slots  []int
		ranked []domain.Ticket
	)
	for i, t := range waiting {
		if t.ManualRank != nil {
			slots = append(slots, i)
			ranked = append(ranked, t)
		}
	}
	if len(ranked) == 0 {
		return waiting
	}

	slices.SortStableFunc(ranked, func(a, b domain.Ticket) int {
		return cmp.Compare(*a.ManualRank, *b.ManualRank)
	})
	for k, slot := range slots {
		waiting[slot] = ranked[k]
	}

	return waiting
}

func compareNatural(a, b domain.Ticket) int {
	ap, bp := a.PriorityClass.IsPrioritized(), b.PriorityClass.IsPrioritized()
	if ap != bp {
		if ap {
			return -1
		}
		return 1
	}
	if c := a.RegistrationTime.Compare(b.RegistrationTime); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// exchangeRanks swaps the adjacent tickets at i and j of the computed order
// and returns the ranks that make the swap stick. Every already ranked ticket
// is renumbered by its current position so existing overrides keep their
// relative order.
func exchangeRanks(order []domain.Ticket, i, j int) map[int64]int {
	if i > j {
		i, j = j, i
	}

	members := make([]int64, 0, len(order))
	for k, t := range order {
		if t.ManualRank != nil || k == i || k == j {
			members = append(members, t.ID)
		}
	}

	a, b := order[i].ID, order[j].ID
	for k := 0; k+1 < len(members); k++ {
		if members[k] == a && members[k+1] == b {
			members[k], members[k+1] = b, a
			break
		}
	}

	ranks := make(map[int64]int, len(members))
	for k, id := range members {
		ranks[id] = k + 1
	}
	return ranks
}
