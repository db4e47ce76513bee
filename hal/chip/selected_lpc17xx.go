//go:build lpc17xx

package chip

// Selected is the variant this build targets.
var Selected = LPC17xx.Validate()
