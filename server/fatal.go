package server

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"syscall"

	"github.com/fatih/color"
)

// osExit é trocado nos testes.
var osExit = os.Exit

type locator interface {
	Location() (file string, line int, fn string)
}

// Fatal escreve o relatório de falha em stderr e encerra o processo com código 1.
// Reservado para erros de setup; erros de conexão nunca chegam aqui.
func Fatal(err error) {
	WriteFailure(os.Stderr, err, 2)
	osExit(1)
}

// WriteFailure escreve arquivo, linha, função, errno e descrição do erro.
// O local vem do próprio erro quando ele sabe onde nasceu (*domain.SetupError);
// senão, do chamador `skip` níveis acima.
func WriteFailure(w io.Writer, err error, skip int) {
	var (
		file string
		line int
		fn   string
	)
	var loc locator
	if errors.As(err, &loc) {
		file, line, fn = loc.Location()
	}
	if file == "" {
		if pc, f, l, ok := runtime.Caller(skip); ok {
			file, line = f, l
			if rf := runtime.FuncForPC(pc); rf != nil {
				fn = rf.Name()
			}
		}
	}

	errno := 0
	errstr := "<nil>"
	if err != nil {
		errstr = err.Error()
	}
	var en syscall.Errno
	if errors.As(err, &en) {
		errno = int(en)
		errstr = en.Error()
	}

	fmt.Fprintln(w, color.RedString("FAILURE!"))
	fmt.Fprintf(w, "file: %s,\nline: %d,\nfunction: %s,\nerrno: %d,\nerrstr: %s\nerror: %v\n",
		file, line, fn, errno, errstr, err)
}
