package credentials

import (
	"io"
	"os"

	"golang.org/x/term"
)

// fdTerminalReader reads a secret from a terminal file descriptor
type fdTerminalReader struct {
	fd int
}

func (r *fdTerminalReader) ReadPassword() (string, error) {
	b, err := term.ReadPassword(r.fd)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// TerminalReaderFor returns a TerminalReader when in is an interactive terminal, nil otherwise
func TerminalReaderFor(in io.Reader) TerminalReader {
	f, ok := in.(*os.File)
	if !ok {
		return nil
	}
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	return &fdTerminalReader{fd: fd}
}
