package main

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

// generateTestImage returns a width×height image filled with one color.
// Artwork, thumbnail and Kitty tests all start from one of these.
func generateTestImage(width, height int, fill color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fill)
		}
	}
	return img
}

// generateGradientImage blends from top to bottom, giving the color
// extractor more than one candidate
func generateGradientImage(width, height int, top, bottom color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	blend := func(a, b uint8, ratio float64) uint8 {
		return uint8(float64(a)*(1-ratio) + float64(b)*ratio)
	}
	for y := 0; y < height; y++ {
		ratio := float64(y) / float64(height)
		c := color.RGBA{blend(top.R, bottom.R, ratio), blend(top.G, bottom.G, ratio), blend(top.B, bottom.B, ratio), 255}
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// assertError fails the test when err is nil; msg names what should have failed
func assertError(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Errorf("Expected error: %s, got nil", msg)
	}
}

// assertErrorIs checks that err wraps target, e.g. mpris.ErrIntentDisabled
// from a gated relay or errQuit from the host
func assertErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Errorf("Expected error %v, got %v", target, err)
	}
}

// assertNoError stops the test on an unexpected error, so setup steps can
// be chained without checks of their own
func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

func assertEqual[T comparable](t *testing.T, got, want T, msg string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %v, want %v", msg, got, want)
	}
}

// assertHexColor checks that c is a "#rrggbb" color the UI accepts
func assertHexColor(t *testing.T, c string) {
	t.Helper()
	if len(c) != 7 || !isValidColor(c) {
		t.Errorf("Expected a #rrggbb color, got %q", c)
	}
}
