// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package imaging generates responsive WebP renditions of featured images
// using libvips. Uploaded originals are converted into thumbnail, card,
// and hero sizes; renditions wider than the source are skipped to avoid
// upscaling.
package imaging

import (
	"fmt"
	"log/slog"

	"github.com/davidbyttow/govips/v2/vips"
)

// Rendition describes a single output size.
type Rendition struct {
	Name    string // "thumb", "card", "hero"
	Width   int    // target width in pixels
	Quality int    // WebP quality 1-100
}

// FeaturedRenditions are the sizes the blog frontend requests: thumb for
// admin listings, card for the post grid, hero for the post detail header.
var FeaturedRenditions = []Rendition{
	{Name: "thumb", Width: 320, Quality: 75},
	{Name: "card", Width: 768, Quality: 80},
	{Name: "hero", Width: 1600, Quality: 80},
}

// Image holds one generated rendition ready for upload.
type Image struct {
	Name        string
	Width       int
	Height      int
	Data        []byte // WebP-encoded bytes
	ContentType string // always "image/webp"
}

// Startup initialises the libvips library. Call once at application start.
// concurrency controls the number of libvips worker threads (0 = auto).
func Startup(concurrency int) {
	cfg := &vips.Config{
		ConcurrencyLevel: concurrency,
		MaxCacheSize:     100,
		MaxCacheMem:      50 * 1024 * 1024, // 50 MB
	}
	vips.LoggingSettings(nil, vips.LogLevelWarning)
	vips.Startup(cfg)
	slog.Info("libvips started", "version", vips.Version)
}

// Shutdown releases libvips resources. Call at application shutdown.
func Shutdown() {
	vips.Shutdown()
}

// Renditions creates WebP renditions of the source image for each
// requested size. Sizes wider than the original are capped at the
// original width, and generation stops after the first capped size.
func Renditions(original []byte, sizes []Rendition) ([]Image, error) {
	if len(sizes) == 0 {
		sizes = FeaturedRenditions
	}

	// Probe original dimensions without fully decoding.
	probe, err := vips.NewImageFromBuffer(original)
	if err != nil {
		return nil, fmt.Errorf("imaging: probe failed: %w", err)
	}
	origWidth := probe.Width()
	probe.Close()

	var results []Image

	for _, size := range sizes {
		targetWidth := size.Width
		if origWidth <= targetWidth {
			targetWidth = origWidth
		}

		img, err := vips.NewThumbnailFromBuffer(original, targetWidth, 0, vips.InterestingNone)
		if err != nil {
			return nil, fmt.Errorf("imaging: thumbnail %s (%dpx): %w", size.Name, targetWidth, err)
		}

		// Auto-rotate based on EXIF orientation, then strip metadata.
		if err := img.AutoRotate(); err != nil {
			img.Close()
			return nil, fmt.Errorf("imaging: autorotate %s: %w", size.Name, err)
		}

		params := vips.NewWebpExportParams()
		params.Quality = size.Quality
		params.Lossless = false
		params.StripMetadata = true

		buf, meta, err := img.ExportWebp(params)
		img.Close()
		if err != nil {
			return nil, fmt.Errorf("imaging: export %s: %w", size.Name, err)
		}

		results = append(results, Image{
			Name:        size.Name,
			Width:       meta.Width,
			Height:      meta.Height,
			Data:        buf,
			ContentType: "image/webp",
		})

		// The original width was reached; larger sizes would upscale.
		if origWidth <= size.Width {
			break
		}
	}

	return results, nil
}
