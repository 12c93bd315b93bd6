package risk

import (
	"errors"
	"fmt"
)

// Sentinel kinds for risk classification errors.
var (
	ErrInvalidMethod = errors.New("invalid risk method")
)

func invalidMethod(s string) error {
	return fmt.Errorf("%w: %q (want %q or %q)", ErrInvalidMethod, s, MethodQuantile, MethodFixed)
}
