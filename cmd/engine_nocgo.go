//go:build !cgo

package main

import (
	"archconv/cms"
	"archconv/logging"
)

// Without cgo there is no color engine. Conversions that need a transform
// fail per file; --no-icc and ndk-uc-i still work.
func newEngine(log logging.Logger) (cms.Engine, func()) {
	log.Warn("built without cgo: ICC transforms are unavailable")
	return nil, func() {}
}
