// Package memzero wipes content keys and decoded private key material once
// they are no longer needed.
package memzero

import "runtime"

// Zero overwrites every slice in bs with zeros.
func Zero(bs ...[]byte) {
	for _, b := range bs {
		clear(b)
		runtime.KeepAlive(b)
	}
}
