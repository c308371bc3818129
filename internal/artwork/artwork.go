package artwork

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/EdlinOrg/prominentcolor"
	"github.com/nfnt/resize"

	"karolbroda.com/lyricsync/internal/colors"
	"karolbroda.com/lyricsync/internal/display"
)

const (
	fetchTimeout = 5 * time.Second
	// k-means runs on a thumbnail; full size covers take seconds
	thumbnailSize = 128
)

type Palette struct {
	Primary   string
	Secondary string
	Accent    string
	Dim       string
}

func DefaultPalette() *Palette {
	return &Palette{
		Primary:   "#8BA4E8",
		Secondary: "#E8A4C8",
		Accent:    "#B8A8E8",
		Dim:       "#6272A4",
	}
}

// Theme maps the palette onto the lyric styles: the brightest color marks the
// current line, the others keep their default grey tinted toward the palette.
func (p *Palette) Theme() display.Theme {
	current := colors.Readable(p.Primary, 65)
	muted := colors.Blend(display.DefaultColor, p.Secondary, 0.25)
	return display.ThemeFromColors(current, muted)
}

// Fetch loads cover art from an http(s) or file:// url.
func Fetch(ctx context.Context, artworkURL string) (image.Image, error) {
	if artworkURL == "" {
		return nil, errors.New("empty artwork url")
	}

	if strings.HasPrefix(artworkURL, "file://") {
		f, err := os.Open(strings.TrimPrefix(artworkURL, "file://"))
		if err != nil {
			return nil, fmt.Errorf("failed to open artwork file: %w", err)
		}
		defer f.Close()

		img, _, err := image.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("failed to decode artwork image: %w", err)
		}
		return img, nil
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artworkURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch artwork: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artwork fetch returned status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode artwork: %w", err)
	}
	return img, nil
}

type candidate struct {
	hex        string
	sat        float64
	brightness float64
	score      float64
}

// ExtractPalette picks three usable colors out of img. it falls back to
// DefaultPalette when the image is missing or too uniform.
func ExtractPalette(img image.Image) *Palette {
	if img == nil {
		return DefaultPalette()
	}

	thumb := resize.Thumbnail(thumbnailSize, thumbnailSize, img, resize.Bilinear)

	items, err := prominentcolor.KmeansWithAll(5, thumb, prominentcolor.ArgumentNoCropping, thumbnailSize, nil)
	if err != nil || len(items) < 3 {
		return DefaultPalette()
	}

	candidates := make([]candidate, 0, len(items))
	for _, item := range items {
		candidates = append(candidates, score(item.Color.R, item.Color.G, item.Color.B))
	}

	// vivid, mid-bright colors first
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	primary := candidates[0]
	rest := candidates[1:]
	sort.SliceStable(rest, func(i, j int) bool {
		return rest[i].brightness > rest[j].brightness
	})

	return &Palette{
		Primary:   primary.hex,
		Secondary: rest[len(rest)-1].hex,
		Accent:    rest[0].hex,
		Dim:       DefaultPalette().Dim,
	}
}

func score(r, g, b uint32) candidate {
	rf := float64(r) / 255.0
	gf := float64(g) / 255.0
	bf := float64(b) / 255.0

	max := math.Max(math.Max(rf, gf), bf)
	min := math.Min(math.Min(rf, gf), bf)

	var sat float64
	if max > 0 {
		sat = (max - min) / max
	}

	return candidate{
		hex:        boostColor(r, g, b, max),
		sat:        sat,
		brightness: max,
		score:      sat * (1.0 - math.Abs(max-0.6)),
	}
}

// boostColor lifts very dark colors and tones down nearly white ones.
func boostColor(r, g, b uint32, brightness float64) string {
	if brightness > 0 && brightness < 0.4 {
		factor := math.Min(0.4/brightness, 2.5)
		r = uint32(math.Min(255, float64(r)*factor))
		g = uint32(math.Min(255, float64(g)*factor))
		b = uint32(math.Min(255, float64(b)*factor))
	}

	if brightness > 0.85 {
		avg := float64(r+g+b) / 3
		r = uint32(avg + (float64(r)-avg)*0.7)
		g = uint32(avg + (float64(g)-avg)*0.7)
		b = uint32(avg + (float64(b)-avg)*0.7)
	}

	return colors.RGBToHex(int(r), int(g), int(b))
}
