package render

import (
	"fmt"
	"hash/fnv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Avatar colors share saturation and lightness so every hue stays readable
// behind white initials.
const (
	avatarSaturation = 0.4
	avatarLightness  = 0.55
)

// AvatarColor returns the badge color of userID. The same user always gets
// the same color on every client.
func AvatarColor(userID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	r, g, b := hslToRGB(float64(h.Sum32()%360), avatarSaturation, avatarLightness)
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

// avatar renders the round initial badge shown next to an author's name.
func avatar(userID, username string) *html.Node {
	initial := "?"
	if r, _ := utf8.DecodeRuneInString(username); r != utf8.RuneError {
		initial = strings.ToUpper(string(r))
	}
	return el(atom.Span, attrs("class", "avatar", "style", "background-color: "+AvatarColor(userID)), text(initial))
}

// hslToRGB converts a hue in degrees with saturation and lightness in [0, 1].
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	h /= 360
	if s == 0 {
		v := uint8(l * 255)
		return v, v, v
	}

	q := l + s - l*s
	if l < 0.5 {
		q = l * (1 + s)
	}
	p := 2*l - q

	channel := func(t float64) uint8 {
		switch {
		case t < 0:
			t++
		case t > 1:
			t--
		}
		var v float64
		switch {
		case t < 1.0/6:
			v = p + (q-p)*6*t
		case t < 1.0/2:
			v = q
		case t < 2.0/3:
			v = p + (q-p)*(2.0/3-t)*6
		default:
			v = p
		}
		return uint8(v * 255)
	}
	return channel(h + 1.0/3), channel(h), channel(h - 1.0/3)
}
