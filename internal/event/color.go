package event

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// ParseColor parses a color given as a name ("red", "Light Blue") or as a
// hex notation with 1 to 4 digits per channel ("#f00", "#ff0000",
// "#fff000000", "#ffff00000000").
func ParseColor(s string) (color.RGBA, error) {
	spec := strings.TrimSpace(s)
	if spec == "" {
		return color.RGBA{}, fmt.Errorf("empty color")
	}

	if strings.HasPrefix(spec, "#") {
		return parseHexColor(spec[1:])
	}

	name := strings.ToLower(strings.ReplaceAll(spec, " ", ""))
	if c, ok := colornames.Map[name]; ok {
		return c, nil
	}
	return color.RGBA{}, fmt.Errorf("unknown color %q", s)
}

func parseHexColor(hex string) (color.RGBA, error) {
	if len(hex) == 0 || len(hex)%3 != 0 || len(hex) > 12 {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", "#"+hex)
	}
	width := len(hex) / 3
	var channels [3]uint8
	for i := range channels {
		v, err := strconv.ParseUint(hex[i*width:(i+1)*width], 16, 16)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("invalid hex color %q", "#"+hex)
		}
		channels[i] = scaleChannel(v, width)
	}
	return color.RGBA{R: channels[0], G: channels[1], B: channels[2], A: 0xff}, nil
}

// scaleChannel maps a width-digit hex value onto 0..255.
func scaleChannel(v uint64, width int) uint8 {
	max := uint64(1)<<(4*width) - 1
	return uint8((v*255 + max/2) / max)
}
