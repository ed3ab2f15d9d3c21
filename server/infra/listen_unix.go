//go:build linux || darwin || freebsd || netbsd || openbsd

package infra

import (
	"net"
	"os"

	"slot-server/server/domain"

	"golang.org/x/sys/unix"
)

// Listen cria o socket de escuta com o backlog pedido.
//
// net.Listen não deixa escolher o backlog (usa somaxconn), por isso o socket é
// montado na mão e depois convertido com net.FileListener.
// Em qualquer falha o descritor parcial é fechado.
func Listen(address string, backlog int) (net.Listener, error) {
	addr, err := net.ResolveTCPAddr("tcp", address)
	if err != nil {
		return nil, domain.NewSetupError("resolve "+address, err)
	}
	family, sa := sockaddr(addr)

	fd, err := unix.Socket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, domain.NewSetupError("socket", os.NewSyscallError("socket", err))
	}
	owned := false
	defer func() {
		if !owned {
			_ = unix.Close(fd)
		}
	}()
	unix.CloseOnExec(fd)

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return nil, domain.NewSetupError("setsockopt", os.NewSyscallError("setsockopt", err))
	}
	if err := unix.Bind(fd, sa); err != nil {
		return nil, domain.NewSetupError("bind "+address, os.NewSyscallError("bind", err))
	}
	if err := unix.Listen(fd, backlog); err != nil {
		return nil, domain.NewSetupError("listen", os.NewSyscallError("listen", err))
	}

	// a partir daqui o *os.File é dono do fd
	owned = true
	f := os.NewFile(uintptr(fd), "slotserver-listener")
	defer f.Close()

	// FileListener duplica o descritor
	ln, err := net.FileListener(f)
	if err != nil {
		return nil, domain.NewSetupError("file listener", err)
	}
	return ln, nil
}

func sockaddr(addr *net.TCPAddr) (int, unix.Sockaddr) {
	if addr.IP == nil || addr.IP.To4() != nil {
		sa := &unix.SockaddrInet4{Port: addr.Port}
		if ip4 := addr.IP.To4(); ip4 != nil {
			copy(sa.Addr[:], ip4)
		}
		return unix.AF_INET, sa
	}
	sa := &unix.SockaddrInet6{Port: addr.Port}
	copy(sa.Addr[:], addr.IP.To16())
	if addr.Zone != "" {
		if ifi, err := net.InterfaceByName(addr.Zone); err == nil {
			sa.ZoneId = uint32(ifi.Index)
		}
	}
	return unix.AF_INET6, sa
}
