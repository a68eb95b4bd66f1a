// Package critical provides the scoped critical section shared by the
// interrupt handler and the main loop.
//
// On the MCU a section masks interrupts; on the host it is a process-wide
// mutex, standing in for the interrupt mask when the timer "interrupt" is a
// goroutine. Sections must be short and must never wrap bus or modem I/O.
// Sections do not nest on the host.
package critical

// Do runs f inside a critical section. The section is released on every exit
// path, including a panic in f.
func Do(f func()) {
	s := enter()
	defer exit(s)
	f()
}

// Get runs f inside a critical section and returns its result.
func Get[T any](f func() T) T {
	s := enter()
	defer exit(s)
	return f()
}
