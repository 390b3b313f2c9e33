//go:build !unix

package espeak

import (
	"errors"
	"os"
)

func suspend(*os.Process) error {
	return errors.ErrUnsupported
}

func cont(*os.Process) error {
	return errors.ErrUnsupported
}
