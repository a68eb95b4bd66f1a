// x/critical/critical_mcu.go
//go:build rp2040

package critical

import "runtime/interrupt"

type state = interrupt.State

func enter() state { return interrupt.Disable() }
func exit(s state) { interrupt.Restore(s) }
