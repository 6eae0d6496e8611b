package atlas

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/chazu/brainscene/pkg/kernel/sdfx"
)

// DefaultName is the name of the embedded atlas.
const DefaultName = "synthetic_mouse_25um"

//go:embed data/mouse_25um.yaml
var defaultDefinition []byte

// DefaultDefinition returns a fresh copy of the embedded atlas definition.
func DefaultDefinition() (*Definition, error) {
	return Parse(bytes.NewReader(defaultDefinition))
}

var loadDefault = sync.OnceValues(func() (*Atlas, error) {
	def, err := DefaultDefinition()
	if err != nil {
		return nil, err
	}
	a, _, err := Build(def, sdfx.New())
	if err != nil {
		return nil, fmt.Errorf("building default atlas: %w", err)
	}
	return a, nil
})

// Default returns the embedded synthetic mouse atlas built with the sdfx
// kernel. The atlas is built once and shared.
func Default() (*Atlas, error) {
	return loadDefault()
}
