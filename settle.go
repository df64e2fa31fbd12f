// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

// Settle propagates values through the combinational logic until a fixpoint
// is reached.
//
// Each pass evaluates every combinational element against the current frame
// and stages the results; the pass is then committed. Settle returns when a
// pass changes nothing, or a *CombinationalCycleError if no fixpoint is
// reached within the settle limit.
//
func (c *Circuit) Settle() error {
	for i := 0; i < c.limit; i++ {
		c.newPass()
		if c.reverse {
			for k := len(c.comb) - 1; k >= 0; k-- {
				c.eval(&c.comb[k])
			}
		} else {
			for k := range c.comb {
				c.eval(&c.comb[k])
			}
		}
		if c.fault != nil {
			return c.takeFault()
		}
		if c.commit() == 0 {
			return nil
		}
	}
	return &CombinationalCycleError{Paths: c.paths(c.last), Iterations: c.limit, Time: c.now}
}

func (c *Circuit) eval(e *element) {
	if e.fn == nil {
		c.stage(e.dst, e.expr.eval(c))
		return
	}
	c.writer = e
	e.fn(c)
	c.writer = nil
}
