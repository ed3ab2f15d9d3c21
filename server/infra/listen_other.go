//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package infra

import (
	"net"

	"slot-server/server/domain"
)

// Listen usa net.Listen; o backlog fica a cargo do sistema operacional.
func Listen(address string, _ int) (net.Listener, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, domain.NewSetupError("listen "+address, err)
	}
	return ln, nil
}
