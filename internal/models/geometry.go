package models

import (
	"fmt"
	"math"
)

// Point is a position in shared display coordinates
type Point struct {
	X float64
	Y float64
}

// Rect is an axis-aligned rectangle in shared display coordinates
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// RectFromPoints builds the rectangle spanned by two corner points.
// Argument order does not matter. A zero extent on either axis is widened
// to one unit so the result is never empty.
func RectFromPoints(a, b Point) Rect {
	r := Rect{
		X:      math.Min(a.X, b.X),
		Y:      math.Min(a.Y, b.Y),
		Width:  math.Abs(a.X - b.X),
		Height: math.Abs(a.Y - b.Y),
	}
	if r.Width == 0 {
		r.Width = 1
	}
	if r.Height == 0 {
		r.Height = 1
	}
	return r
}

// Right returns the x coordinate of the right edge
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the y coordinate of the bottom edge
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Union returns the bounding box of both rectangles
func (r Rect) Union(o Rect) Rect {
	if r.Width == 0 && r.Height == 0 {
		return o
	}
	x := math.Min(r.X, o.X)
	y := math.Min(r.Y, o.Y)
	return Rect{
		X:      x,
		Y:      y,
		Width:  math.Max(r.Right(), o.Right()) - x,
		Height: math.Max(r.Bottom(), o.Bottom()) - y,
	}
}

func (r Rect) String() string {
	return fmt.Sprintf("%gx%g+%g+%g", r.Width, r.Height, r.X, r.Y)
}

// CropData pairs the full captured area with the user's selection inside it
type CropData struct {
	FullRect      Rect
	SelectionRect Rect
}

// Fraction is a rational number, used for framerates
type Fraction struct {
	Num int
	Den int
}

// NewFraction returns num/1
func NewFraction(num int) Fraction {
	return Fraction{Num: num, Den: 1}
}

func (f Fraction) String() string {
	den := f.Den
	if den == 0 {
		den = 1
	}
	return fmt.Sprintf("%d/%d", f.Num, den)
}
