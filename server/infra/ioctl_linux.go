package infra

import "golang.org/x/sys/unix"

// fionread: bytes na fila de recepção do socket.
const fionread = unix.SIOCINQ
