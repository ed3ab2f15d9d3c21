//go:build darwin || freebsd || netbsd || openbsd

package infra

// fionread = _IOR('f', 127, int); x/sys/unix não exporta FIONREAD nessas plataformas.
const fionread = 0x4004667f
