package colors

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Gradient interpolates between two colors in lch space, taking the short way
// around the hue circle.
func Gradient(startHex string, endHex string, steps int) []string {
	if steps < 2 {
		steps = 2
	}

	gradient := make([]string, steps)
	for i := 0; i < steps; i++ {
		gradient[i] = Blend(startHex, endHex, float64(i)/float64(steps-1))
	}
	return gradient
}

// Blend mixes two colors, t=0 is a and t=1 is b.
func Blend(a string, b string, t float64) string {
	l1, c1, h1 := rgbToLCH(HexToRGB(a))
	l2, c2, h2 := rgbToLCH(HexToRGB(b))

	hueDiff := h2 - h1
	if hueDiff > 180 {
		hueDiff -= 360
	} else if hueDiff < -180 {
		hueDiff += 360
	}

	h := math.Mod(h1+t*hueDiff+360, 360)
	return RGBToHex(lchToRGB(l1+t*(l2-l1), c1+t*(c2-c1), h))
}

// Lightness is the perceived lightness of a color, 0 to 100.
func Lightness(hex string) float64 {
	l, _, _ := rgbToLCH(HexToRGB(hex))
	return l
}

// Readable nudges hex toward white until it reaches minLightness, so a dark
// album color still stands out on a dark terminal.
func Readable(hex string, minLightness float64) string {
	for i := 0; i < 10 && Lightness(hex) < minLightness; i++ {
		hex = Blend(hex, "#FFFFFF", 0.2)
	}
	return hex
}

func RGBToHex(r int, g int, b int) string {
	return fmt.Sprintf("#%02X%02X%02X", clampInt(r, 0, 255), clampInt(g, 0, 255), clampInt(b, 0, 255))
}

// HexToRGB parses #RRGGBB. anything else reads as white.
func HexToRGB(hex string) (int, int, int) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 255, 255, 255
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 255, 255, 255
	}
	return int(v >> 16 & 0xFF), int(v >> 8 & 0xFF), int(v & 0xFF)
}

func RenderGradientText(text string, gradient []string, bold bool) string {
	if len(text) == 0 || len(gradient) == 0 {
		return text
	}

	runes := []rune(text)
	var result strings.Builder

	for i, r := range runes {
		idx := 0
		if len(runes) > 1 {
			idx = i * (len(gradient) - 1) / (len(runes) - 1)
		}

		style := lipgloss.NewStyle().Foreground(lipgloss.Color(gradient[idx])).Bold(bold)
		result.WriteString(style.Render(string(r)))
	}

	return result.String()
}

// FormatMillis renders a duration as m:ss.
func FormatMillis(millis int64) string {
	if millis < 0 {
		millis = 0
	}
	seconds := millis / 1000
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func clampInt(val int, min int, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

func rgbToLCH(r int, g int, b int) (float64, float64, float64) {
	linear := func(c int) float64 {
		v := float64(c) / 255.0
		if v > 0.04045 {
			return math.Pow((v+0.055)/1.055, 2.4)
		}
		return v / 12.92
	}
	rf, gf, bf := linear(r), linear(g), linear(b)

	// srgb -> xyz (d65), normalized by the white point
	x := (rf*0.4124564 + gf*0.3575761 + bf*0.1804375) / 0.95047
	y := rf*0.2126729 + gf*0.7151522 + bf*0.0721750
	z := (rf*0.0193339 + gf*0.1191920 + bf*0.9503041) / 1.08883

	f := func(t float64) float64 {
		if t > 0.008856 {
			return math.Cbrt(t)
		}
		return 7.787*t + 16.0/116.0
	}
	fx, fy, fz := f(x), f(y), f(z)

	l := 116.0*fy - 16.0
	labA := 500.0 * (fx - fy)
	labB := 200.0 * (fy - fz)

	h := math.Atan2(labB, labA) * 180.0 / math.Pi
	if h < 0 {
		h += 360
	}
	return l, math.Hypot(labA, labB), h
}

func lchToRGB(l float64, c float64, h float64) (int, int, int) {
	rad := h * math.Pi / 180.0
	labA := c * math.Cos(rad)
	labB := c * math.Sin(rad)

	fy := (l + 16.0) / 116.0
	fx := labA/500.0 + fy
	fz := fy - labB/200.0

	inv := func(t float64) float64 {
		if t3 := t * t * t; t3 > 0.008856 {
			return t3
		}
		return (t - 16.0/116.0) / 7.787
	}
	x := inv(fx) * 0.95047
	y := inv(fy)
	z := inv(fz) * 1.08883

	gamma := func(v float64) int {
		if v > 0.0031308 {
			v = 1.055*math.Pow(v, 1.0/2.4) - 0.055
		} else {
			v = 12.92 * v
		}
		return clampInt(int(v*255.0+0.5), 0, 255)
	}

	return gamma(x*3.2404542 - y*1.5371385 - z*0.4985314),
		gamma(-x*0.9692660 + y*1.8760108 + z*0.0415560),
		gamma(x*0.0556434 - y*0.2040259 + z*1.0572252)
}
