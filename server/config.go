package server

import (
	"fmt"
	"runtime"
	"time"

	"slot-server/server/domain"
)

// Config é copiada para dentro do Server em Initialize e não muda depois disso.
type Config struct {
	// Address no formato host:port (":8080" escuta em todas as interfaces IPv4).
	Address string
	// Backlog de conexões pendentes no socket de escuta.
	Backlog int
	// Workers que atendem slots em paralelo.
	Workers int
	// Requests é o número de slots, ou seja, o máximo de clientes simultâneos.
	Requests int

	InitialBufferSize int
	// IdleTimeout limita quanto tempo um slot fica ocupado sem dados. 0 desliga.
	IdleTimeout time.Duration
	// ClaimTimeout limita a espera por um slot livre antes de logar saturação
	// e tentar de novo. 0 espera indefinidamente.
	ClaimTimeout time.Duration

	// RateRPS limita novas conexões por IP do peer. 0 desliga.
	RateRPS   float64
	RateBurst int
}

func DefaultConfig() Config {
	cpus := runtime.NumCPU()
	return Config{
		Address:           ":8080",
		Backlog:           500,
		Workers:           cpus,
		Requests:          cpus * 100,
		InitialBufferSize: 1024,
		IdleTimeout:       30 * time.Second,
		RateBurst:         20,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Address == "":
		return fmt.Errorf("%w: address is required", domain.ErrInvalidConfig)
	case c.Backlog <= 0:
		return fmt.Errorf("%w: backlog must be > 0", domain.ErrInvalidConfig)
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be > 0", domain.ErrInvalidConfig)
	case c.Requests <= 0:
		return fmt.Errorf("%w: requests must be > 0", domain.ErrInvalidConfig)
	case c.InitialBufferSize < 0:
		return fmt.Errorf("%w: initial buffer size must be >= 0", domain.ErrInvalidConfig)
	case c.IdleTimeout < 0 || c.ClaimTimeout < 0:
		return fmt.Errorf("%w: timeouts must be >= 0", domain.ErrInvalidConfig)
	case c.RateRPS < 0:
		return fmt.Errorf("%w: rate rps must be >= 0", domain.ErrInvalidConfig)
	case c.RateRPS > 0 && c.RateBurst <= 0:
		return fmt.Errorf("%w: rate burst must be > 0 when rate limiting is enabled", domain.ErrInvalidConfig)
	}
	return nil
}
