package flownode

import "fmt"

// InvalidVariantError is returned by SetState when the supplied State's
// Kind does not match the node it's being applied to.
type InvalidVariantError struct {
	Want string
	Got  string
}

func (e *InvalidVariantError) Error() string {
	return fmt.Sprintf("flownode: invalid state variant: want %q, got %q", e.Want, e.Got)
}
