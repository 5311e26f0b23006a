//go:build !unix

package health

import (
	"fmt"
	"os"
)

func writable(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if info.Mode().Perm()&0o200 == 0 {
		return fmt.Errorf("%s is read-only", dir)
	}
	return nil
}
