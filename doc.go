/*
Package vectra converts raster images into layered vector documents, where
every dominant color becomes an independently editable SVG layer.

The pipeline quantizes the color space with a median cut (optionally
refined by k-means), builds a binary mask per palette color, traces each
mask's region boundaries, simplifies the resulting polygons with
Douglas-Peucker and assembles the layers back-to-front into a document that
can be serialized in several editor-compatible dialects.

The package provides a command line interface; to check the supported
commands type:

	$ vectra --help

For embedding the engine directly:

	package main

	import (
		"fmt"
		"os"

		"github.com/vectra-dev/vectra"
	)

	func main() {
		p := &vectra.Processor{
			MaxColors:    8,
			EnableLayers: true,
		}

		if err := p.Process(os.Stdin, os.Stdout); err != nil {
			fmt.Printf("Error vectorizing image: %s", err.Error())
		}
	}
*/
package vectra
