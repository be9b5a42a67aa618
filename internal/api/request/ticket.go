package request

import (
	"esca/queue-gateway/internal/constant"
	"esca/queue-gateway/internal/domain"
)

// RegisterTicketRequest accepts either an explicit priority_class or the
// three registration form flags.
type RegisterTicketRequest struct {
	Name          string `json:"name" binding:"required"`
	Contact       string `json:"contact"`
	PriorityClass string `json:"priority_class"`
	SeniorCitizen bool   `json:"senior_citizen"`
	Pregnant      bool   `json:"pregnant"`
	PWD           bool   `json:"pwd"`
}

func (r RegisterTicketRequest) Priority() (domain.PriorityClass, error) {
	if r.PriorityClass != "" {
		class, ok := domain.ParsePriorityClass(r.PriorityClass)
		if !ok {
			return "", constant.ErrInvalidPriorityClass
		}
		return class, nil
	}
	return domain.ResolvePriorityClass(r.SeniorCitizen, r.Pregnant, r.PWD), nil
}

type CallNextRequest struct {
	Counter string `json:"counter" binding:"required"`
}
