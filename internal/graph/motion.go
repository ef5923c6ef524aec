package graph

import (
	"fmt"
	"math/rand"

	"github.com/bobarin/reelsmith/internal/models"
)

// Anchor is a point of the frame that a zoom or pan heads toward.
type Anchor string

const (
	AnchorCenter      Anchor = "center"
	AnchorTopLeft     Anchor = "top_left"
	AnchorTopRight    Anchor = "top_right"
	AnchorBottomLeft  Anchor = "bottom_left"
	AnchorBottomRight Anchor = "bottom_right"
)

// allAnchors is the pool from which a random anchor is chosen per segment
var allAnchors = []Anchor{
	AnchorCenter,
	AnchorTopLeft,
	AnchorTopRight,
	AnchorBottomLeft,
	AnchorBottomRight,
}

// fractions returns the anchor as a share of the free pan range on each axis.
func (a Anchor) fractions() (float64, float64) {
	switch a {
	case AnchorTopLeft:
		return 0, 0
	case AnchorTopRight:
		return 1, 0
	case AnchorBottomLeft:
		return 0, 1
	case AnchorBottomRight:
		return 1, 1
	default:
		return 0.5, 0.5
	}
}

// RandomAnchor picks a random anchor.
func RandomAnchor(r *rand.Rand) Anchor {
	return allAnchors[r.Intn(len(allAnchors))]
}

// Motion is the zoom/pan effect applied to one segment.
type Motion struct {
	Family models.MotionFamily
	From   Anchor
	To     Anchor
}

// Zoom ranges per family.
const (
	zoomInEnd     = 1.15
	anchorZoomEnd = 1.2
	panZoomStart  = 1.1
	panZoomEnd    = 1.25
)

// ChooseMotion picks the effect for one segment of the given family.
func ChooseMotion(family models.MotionFamily, r *rand.Rand) Motion {
	m := Motion{Family: family, From: AnchorCenter, To: AnchorCenter}
	switch family {
	case models.MotionAnchorZoom:
		m.To = RandomAnchor(r)
	case models.MotionDirectional:
		m.From = RandomAnchor(r)
		m.To = RandomAnchor(r)
		for m.To == m.From {
			m.To = RandomAnchor(r)
		}
	}
	return m
}

// zoompan returns the filter for this motion over frames output frames. The
// input is one frame per output frame (d=1), so `on` runs 0..frames-1.
func (m Motion) zoompan(frames, width, height int) Filter {
	n := frames - 1
	if n < 1 {
		n = 1
	}
	progress := fmt.Sprintf("min(on/%d,1)", n)

	var z, x, y string
	switch m.Family {
	case models.MotionAnchorZoom:
		ax, ay := m.To.fractions()
		z = fmt.Sprintf("1+%s*%s", formatFloat(anchorZoomEnd-1), progress)
		x = fmt.Sprintf("%s*(iw-iw/zoom)", formatFloat(ax))
		y = fmt.Sprintf("%s*(ih-ih/zoom)", formatFloat(ay))

	case models.MotionDirectional:
		fx, fy := m.From.fractions()
		tx, ty := m.To.fractions()
		z = fmt.Sprintf("%s+%s*%s", formatFloat(panZoomStart), formatFloat(panZoomEnd-panZoomStart), progress)
		x = fmt.Sprintf("(%s+%s*%s)*(iw-iw/zoom)", formatFloat(fx), formatFloat(tx-fx), progress)
		y = fmt.Sprintf("(%s+%s*%s)*(ih-ih/zoom)", formatFloat(fy), formatFloat(ty-fy), progress)

	default:
		z = fmt.Sprintf("1+%s*%s", formatFloat(zoomInEnd-1), progress)
		x = "iw/2-(iw/zoom/2)"
		y = "ih/2-(ih/zoom/2)"
	}

	return F("zoompan",
		"z", Expr(z),
		"x", Expr(x),
		"y", Expr(y),
		"d", 1,
		"s", fmt.Sprintf("%dx%d", width, height),
		"fps", FPS,
	)
}
