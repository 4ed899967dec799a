//go:build cgo

package main

import (
	"gopkg.in/gographics/imagick.v2/imagick"

	"archconv/cms"
	"archconv/cms/magick"
	"archconv/logging"
)

func newEngine(log logging.Logger) (cms.Engine, func()) {
	imagick.Initialize()
	log.Debug("color management: ImageMagick")
	return magick.New(), imagick.Terminate
}
