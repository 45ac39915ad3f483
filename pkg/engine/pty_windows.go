package engine

import "fmt"

func StartPTY(path string, args ...string) (*Process, error) {
	return nil, fmt.Errorf("%w: %s: pseudo-terminals are not supported on windows", ErrEngineLaunch, path)
}
