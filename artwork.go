package main

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/EdlinOrg/prominentcolor"
	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"github.com/oliamb/cutter"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
	_ "golang.org/x/image/webp"
)

const thumbnailPixels = 256

var artworkClient = &http.Client{Timeout: 10 * time.Second}

// decodeArtworkData decodes base64-encoded or raw image data into an image.Image
func decodeArtworkData(imgData []byte) (image.Image, error) {
	imageData := imgData
	if decoded, err := base64.StdEncoding.DecodeString(string(imgData)); err == nil {
		imageData = decoded
	}

	if len(imageData) == 0 {
		return nil, errors.New("empty image data")
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

type colorScore struct {
	rgb   uint32
	score float64
}

// extractDominantColor picks a vibrant, light color suitable for dark
// backgrounds, falling back to k-means when sampling finds none
func extractDominantColor(img image.Image) (string, error) {
	if img == nil {
		return "", errors.New("nil image")
	}

	// Sample every 5th pixel
	const sampleRate = 5
	bounds := img.Bounds()
	counts := make(map[uint32]int)
	for y := bounds.Min.Y; y < bounds.Max.Y; y += sampleRate {
		for x := bounds.Min.X; x < bounds.Max.X; x += sampleRate {
			r, g, b, a := img.At(x, y).RGBA()
			if a < 32768 {
				continue
			}
			counts[(r>>8)<<16|(g>>8)<<8|b>>8]++
		}
	}

	var candidates []colorScore
	for rgb, count := range counts {
		lightness, saturation := hsl(rgb)
		// Skip colors that are too dark, washed out or grey
		if lightness < 0.3 || lightness > 0.85 || saturation < 0.25 {
			continue
		}
		lightnessScore := lightness
		if lightness > 0.7 {
			lightnessScore = 0.7 - (lightness - 0.7)
		}
		candidates = append(candidates, colorScore{
			rgb:   rgb,
			score: saturation*2.5 + lightnessScore*1.5 + float64(count)/1000.0,
		})
	}

	if len(candidates) == 0 {
		colors, err := prominentcolor.Kmeans(img)
		if err != nil || len(colors) == 0 {
			return "", errors.New("no suitable colors found")
		}
		c := colors[0].Color
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B), nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].rgb < candidates[j].rgb
	})
	best := candidates[0].rgb
	return fmt.Sprintf("#%02x%02x%02x", uint8(best>>16), uint8(best>>8), uint8(best)), nil
}

// hsl returns the lightness and saturation of a packed 8-bit RGB color
func hsl(rgb uint32) (lightness, saturation float64) {
	rf := float64(uint8(rgb>>16)) / 255.0
	gf := float64(uint8(rgb>>8)) / 255.0
	bf := float64(uint8(rgb)) / 255.0

	hi := max(rf, gf, bf)
	lo := min(rf, gf, bf)
	lightness = (hi + lo) / 2.0
	if hi == lo {
		return lightness, 0
	}
	if lightness > 0.5 {
		return lightness, (hi - lo) / (2.0 - hi - lo)
	}
	return lightness, (hi - lo) / (hi + lo)
}

// Check if terminal supports Kitty graphics protocol
func supportsKittyGraphics() bool {
	term := os.Getenv("TERM")
	termProgram := os.Getenv("TERM_PROGRAM")

	if strings.Contains(term, "kitty") || strings.Contains(term, "konsole") {
		return true
	}
	return termProgram == "ghostty" || termProgram == "WezTerm"
}

// encodeArtworkForKitty renders img as Kitty graphics protocol escapes
func encodeArtworkForKitty(img image.Image) (string, error) {
	if img == nil {
		return "", errors.New("nil image")
	}

	cfg := config.Get()

	// Kitty scales to the column width; the pixel width only bounds the payload
	resized := resize.Resize(uint(cfg.Artwork.WidthPixels), 0, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := png.Encode(&buf, resized); err != nil {
		return "", fmt.Errorf("failed to encode PNG: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())

	// Payloads are sent in chunks of at most 4096 bytes
	const chunkSize = 4096
	const imageID = 42
	var result strings.Builder

	// Delete any previous placement of our image first
	fmt.Fprintf(&result, "\033_Ga=d,d=I,i=%d\033\\", imageID)

	if len(encoded) <= chunkSize {
		fmt.Fprintf(&result, "\033_Ga=T,f=100,t=d,i=%d,c=%d,C=1;%s\033\\", imageID, cfg.Artwork.WidthColumns, encoded)
		return result.String(), nil
	}

	for i := 0; i < len(encoded); i += chunkSize {
		end := min(i+chunkSize, len(encoded))
		chunk := encoded[i:end]
		switch {
		case i == 0:
			fmt.Fprintf(&result, "\033_Ga=T,f=100,t=d,i=%d,c=%d,C=1,m=1;%s\033\\", imageID, cfg.Artwork.WidthColumns, chunk)
		case end == len(encoded):
			fmt.Fprintf(&result, "\033_Gm=0;%s\033\\", chunk)
		default:
			fmt.Fprintf(&result, "\033_Gm=1;%s\033\\", chunk)
		}
	}
	return result.String(), nil
}

// processArtwork decodes artwork data once and returns both the extracted
// color and the Kitty-encoded string
func processArtwork(artworkData []byte, extractColor bool) (color string, encoded string, err error) {
	img, err := decodeArtworkData(artworkData)
	if err != nil {
		return "", "", err
	}

	if extractColor {
		if c, err := extractDominantColor(img); err == nil {
			color = c
		}
	}

	if enc, err := encodeArtworkForKitty(img); err == nil {
		encoded = enc
	}
	return color, encoded, nil
}

// fetchArtwork loads the image behind a file:// or http(s):// art URL
func fetchArtwork(fs afero.Fs, artURL string) ([]byte, error) {
	u, err := url.Parse(artURL)
	if err != nil {
		return nil, fmt.Errorf("bad artwork URL: %w", err)
	}

	switch u.Scheme {
	case "file":
		data, err := afero.ReadFile(fs, u.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read artwork file: %w", err)
		}
		return data, nil
	case "http", "https":
		resp, err := artworkClient.Get(artURL)
		if err != nil {
			return nil, fmt.Errorf("failed to download artwork: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("artwork download failed with status: %d", resp.StatusCode)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read artwork data: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("unsupported artwork URL scheme: %s", artURL)
}

// thumbnailArt scales the local image behind artURL down to a PNG in dir
// and returns the thumbnail's file:// URL. Thumbnails are named after the
// source so repeated runs reuse them.
func thumbnailArt(fs afero.Fs, dir, artURL string) (string, error) {
	u, err := url.Parse(artURL)
	if err != nil || u.Scheme != "file" {
		return "", fmt.Errorf("not a local image: %s", artURL)
	}

	name := filepath.Join(dir, hexID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(artURL)))+".png")
	thumbURL := (&url.URL{Scheme: "file", Path: filepath.ToSlash(name)}).String()
	if ok, _ := afero.Exists(fs, name); ok {
		return thumbURL, nil
	}

	data, err := afero.ReadFile(fs, u.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read artwork file: %w", err)
	}
	img, err := decodeArtworkData(data)
	if err != nil {
		return "", err
	}

	// Controllers show art in square slots
	square, err := cutter.Crop(img, cutter.Config{
		Width:   1,
		Height:  1,
		Mode:    cutter.Centered,
		Options: cutter.Ratio,
	})
	if err != nil {
		return "", fmt.Errorf("failed to crop artwork: %w", err)
	}
	thumb := square
	if square.Bounds().Dx() > thumbnailPixels {
		thumb = resize.Resize(thumbnailPixels, thumbnailPixels, square, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, thumb); err != nil {
		return "", fmt.Errorf("failed to encode PNG: %w", err)
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create thumbnail dir: %w", err)
	}
	if err := afero.WriteFile(fs, name, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write thumbnail: %w", err)
	}
	return thumbURL, nil
}

// thumbnailLibrary replaces local track art with thumbnails in dir.
// Tracks whose art cannot be thumbnailed keep the original URL.
func thumbnailLibrary(fs afero.Fs, lib *Library, dir string, logger *log.Logger) {
	if dir == "" {
		return
	}
	p := pool.New().WithMaxGoroutines(4)
	for i := range lib.Tracks {
		t := &lib.Tracks[i]
		if !strings.HasPrefix(t.artURL, "file://") {
			continue
		}
		p.Go(func() {
			thumb, err := thumbnailArt(fs, dir, t.artURL)
			if err != nil {
				logger.Printf("artwork for %s: %v", t.Title, err)
				return
			}
			t.artURL = thumb
		})
	}
	p.Wait()
}
