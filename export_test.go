// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hdl

// SetReverse makes c evaluate its combinational elements in reverse order.
//
func SetReverse(c *Circuit, r bool) { c.reverse = r }
