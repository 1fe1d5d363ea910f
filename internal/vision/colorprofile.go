package vision

import (
	"gonum.org/v1/gonum/floats"
)

// LabelSet is a bit set of color labels.
type LabelSet uint8

func labelBit(l ColorLabel) LabelSet {
	for i, c := range colorOrder {
		if c == l {
			return 1 << i
		}
	}
	return 0
}

func NewLabelSet(labels ...ColorLabel) LabelSet {
	var s LabelSet
	for _, l := range labels {
		s = s.With(l)
	}
	return s
}

func (s LabelSet) With(l ColorLabel) LabelSet { return s | labelBit(l) }

func (s LabelSet) Has(l ColorLabel) bool {
	bit := labelBit(l)
	return bit != 0 && s&bit != 0
}

func (s LabelSet) Empty() bool { return s == 0 }

// Labels returns the members in canonical order.
func (s LabelSet) Labels() []ColorLabel {
	out := make([]ColorLabel, 0, len(colorOrder))
	for _, c := range colorOrder {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

func (s LabelSet) Strings() []string {
	labels := s.Labels()
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = string(l)
	}
	return out
}

// Profile holds the HSV histograms of one frame.
// Hue follows the 8-bit OpenCV range [0,180); saturation and value use [0,256).
type Profile struct {
	Hue        [180]float64
	Saturation [256]float64
	Value      [256]float64
	Pixels     int
}

type labelRule struct {
	label    ColorLabel
	ranges   [][2]int
	fraction float64
	channel  func(p *Profile) []float64
}

func hueChannel(p *Profile) []float64   { return p.Hue[:] }
func valueChannel(p *Profile) []float64 { return p.Value[:] }

var labelRules = []labelRule{
	{label: ColorRed, ranges: [][2]int{{0, 10}, {170, 180}}, fraction: 0.10, channel: hueChannel},
	{label: ColorOrange, ranges: [][2]int{{10, 25}}, fraction: 0.10, channel: hueChannel},
	{label: ColorYellow, ranges: [][2]int{{25, 35}}, fraction: 0.10, channel: hueChannel},
	{label: ColorGreen, ranges: [][2]int{{35, 85}}, fraction: 0.10, channel: hueChannel},
	{label: ColorBrown, ranges: [][2]int{{50, 150}}, fraction: 0.20, channel: valueChannel},
	{label: ColorWhite, ranges: [][2]int{{200, 256}}, fraction: 0.15, channel: valueChannel},
}

// BuildProfile converts every pixel to HSV and accumulates the three histograms.
// Achromatic pixels (zero saturation) have no hue and are left out of the hue histogram.
func BuildProfile(frame Frame) (*Profile, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}

	p := &Profile{Pixels: frame.Width * frame.Height}
	for i := 0; i < len(frame.Pix); i += 3 {
		h, s, v := rgbToHSV(frame.Pix[i], frame.Pix[i+1], frame.Pix[i+2])
		if s > 0 {
			p.Hue[h]++
		}
		p.Saturation[s]++
		p.Value[v]++
	}
	return p, nil
}

func (p *Profile) mass(channel []float64, ranges [][2]int) float64 {
	var total float64
	for _, r := range ranges {
		total += floats.Sum(channel[r[0]:r[1]])
	}
	return total
}

func (p *Profile) Labels() LabelSet {
	var set LabelSet
	if p.Pixels == 0 {
		return set
	}
	pixels := float64(p.Pixels)
	for _, rule := range labelRules {
		if p.mass(rule.channel(p), rule.ranges) > rule.fraction*pixels {
			set = set.With(rule.label)
		}
	}
	return set
}

// Analyze returns the coarse color labels of a frame.
func Analyze(frame Frame) (LabelSet, error) {
	p, err := BuildProfile(frame)
	if err != nil {
		return 0, err
	}
	return p.Labels(), nil
}

// rgbToHSV follows OpenCV's 8-bit RGB2HSV: H in [0,180), S and V in [0,255].
func rgbToHSV(r, g, b uint8) (h, s, v int) {
	rf, gf, bf := float64(r), float64(g), float64(b)
	maxC := max(rf, gf, bf)
	minC := min(rf, gf, bf)
	diff := maxC - minC

	v = int(maxC)
	if maxC == 0 || diff == 0 {
		return 0, 0, v
	}
	s = int(255*diff/maxC + 0.5)

	var hue float64
	switch maxC {
	case rf:
		hue = 60 * (gf - bf) / diff
	case gf:
		hue = 120 + 60*(bf-rf)/diff
	default:
		hue = 240 + 60*(rf-gf)/diff
	}
	if hue < 0 {
		hue += 360
	}
	h = int(hue/2+0.5) % 180
	return h, s, v
}
