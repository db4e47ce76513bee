//go:build !lpc17xx

package chip

// Selected is the variant this build targets. Build with -tags lpc17xx for
// the LPC17xx topology.
var Selected = LPC43xx.Validate()
