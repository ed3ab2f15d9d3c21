package application

import (
	"context"
	"time"

	"slot-server/server/domain"
)

// AdmissionService concentra a regra de aquisição de slots,
// sem saber nada sobre sockets.
type AdmissionService struct {
	Table        domain.SlotTable
	ClaimTimeout time.Duration
}

// Claim procura o primeiro slot livre em ordem crescente de índice.
// - Se todos estão ocupados, espera um Release (sem spin).
// - Se `ClaimTimeout <= 0`, espera indefinidamente (até ctx cancelar).
// - Se `ClaimTimeout > 0`, espera até o timeout.
// Retorna (índice, ok). Se ok=false, nenhum slot foi adquirido.
// Com ok=true o chamador passa a ser dono do slot.
func (s AdmissionService) Claim(ctx context.Context) (int, bool) {
	if s.ClaimTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.ClaimTimeout)
		defer cancel()
	}

	for {
		if ctx.Err() != nil {
			return -1, false
		}
		for i := 0; i < s.Table.Len(); i++ {
			if s.Table.TryClaim(i) {
				return i, true
			}
		}
		select {
		case <-s.Table.Freed():
		case <-ctx.Done():
			return -1, false
		}
	}
}
