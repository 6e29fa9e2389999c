//go:build !(linux || freebsd || openbsd || netbsd || dragonfly)

package clipboard

func writeImage([]byte) error   { return ErrUnsupported }
func writeText(string) error    { return ErrUnsupported }
func readText() (string, error) { return "", ErrUnsupported }
