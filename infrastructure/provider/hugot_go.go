//go:build !ORT

package provider

import "github.com/knights-analytics/hugot"

// Pure-Go inference backend; slower than ORT but needs no shared library.
func newHugotSession() (*hugot.Session, error) {
	return hugot.NewGoSession()
}
