//go:build tools

// Package greeter pins the mockgen tool used by go:generate.
package greeter

import (
	_ "go.uber.org/mock/mockgen"
)
