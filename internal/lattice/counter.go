package lattice

import "iter"

// Counter enumerates every digit tuple of a mixed-radix number, lowest-order
// digit first: digit 0 advances on every step and carries into digit 1 when
// it wraps, and so on. After the most significant digit wraps the counter is
// Done; exhaustion is tracked as counter state, never written into the digits.
//
// A Counter is finite and restartable via Reset. It is not safe for
// concurrent use.
type Counter struct {
	radices []int
	digits  []int
	started bool
	done    bool
}

// NewCounter returns a counter over the given per-digit radices. A counter
// with no digits yields exactly one (empty) tuple; a counter with any radix
// below 1 yields none.
func NewCounter(radices ...int) *Counter {
	return &Counter{
		radices: append([]int(nil), radices...),
		digits:  make([]int, len(radices)),
	}
}

// NewUniformCounter returns a counter of width digits, all of the same radix.
func NewUniformCounter(width, radix int) *Counter {
	radices := make([]int, width)
	for i := range radices {
		radices[i] = radix
	}
	return NewCounter(radices...)
}

// Next advances to the next tuple and reports whether one is available.
// The first call positions the counter on the all-zero tuple.
func (c *Counter) Next() bool {
	if c.done {
		return false
	}
	if !c.started {
		c.started = true
		for _, r := range c.radices {
			if r < 1 {
				c.done = true
				return false
			}
		}
		return true
	}
	for i := range c.digits {
		c.digits[i]++
		if c.digits[i] < c.radices[i] {
			return true
		}
		c.digits[i] = 0
	}
	c.done = true
	return false
}

// Digits returns the current tuple. The slice is reused by the next call to
// Next; copy it to retain it.
func (c *Counter) Digits() []int {
	return c.digits
}

// Done reports whether the counter has run past its last tuple.
func (c *Counter) Done() bool {
	return c.done
}

// Reset rewinds the counter to before its first tuple.
func (c *Counter) Reset() {
	for i := range c.digits {
		c.digits[i] = 0
	}
	c.started = false
	c.done = false
}

// Len returns the number of tuples the counter enumerates.
func (c *Counter) Len() int {
	total := 1
	for _, r := range c.radices {
		if r < 1 {
			return 0
		}
		total *= r
	}
	return total
}

// Tuples rewinds the counter and yields each tuple in order. The yielded
// slice is reused between iterations.
func (c *Counter) Tuples() iter.Seq[[]int] {
	return func(yield func([]int) bool) {
		c.Reset()
		for c.Next() {
			if !yield(c.digits) {
				return
			}
		}
	}
}
