package irflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/715d/irflow/internal/cha"
	"github.com/715d/irflow/internal/rta"
	"github.com/715d/irflow/internal/vta"
	"github.com/715d/irflow/pkg/callgraph"
)

// ErrUnknownAlgorithm is returned for an algorithm name NewStrategy does not
// know.
var ErrUnknownAlgorithm = errors.New("unknown algorithm")

// NewStrategy returns the call graph strategy called name: cha, rta or vta,
// in any case.
func NewStrategy(name string) (callgraph.Algorithm, error) {
	switch strings.ToLower(name) {
	case "cha":
		return cha.New(), nil
	case "rta":
		return rta.New(), nil
	case "vta":
		return vta.New(), nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownAlgorithm, name)
}
