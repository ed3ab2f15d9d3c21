//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package infra

import (
	"fmt"
	"net"
	"runtime"

	"slot-server/server/domain"
)

// NewTCPSource precisa de FIONREAD/MSG_PEEK, indisponíveis nesta plataforma.
func NewTCPSource(conn net.Conn) (domain.Source, error) {
	return nil, fmt.Errorf("available-bytes probe not supported on %s", runtime.GOOS)
}
