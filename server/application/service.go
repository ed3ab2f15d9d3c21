package application

import (
	"slot-server/server/domain"
)

// Service concentra a regra de taxa de admissão por peer.
//
// Ele não sabe nada sobre sockets, apenas retorna uma decisão.
type Service struct {
	Store domain.LimiterStore
}

func (s Service) Decide(key domain.Key) domain.Decision {
	if s.Store == nil {
		return domain.Decision{Allowed: true}
	}

	lim := s.Store.Get(key)
	if lim == nil {
		return domain.Decision{Allowed: true}
	}
	return domain.Decision{Allowed: lim.Allow()}
}
