//go:build tools

// Package tools tracks the code generators invoked by go generate (mockgen) as module dependencies, so
// regenerating mocks works on a fresh checkout.
package dm_lab

import (
	_ "go.uber.org/mock/mockgen"
)
