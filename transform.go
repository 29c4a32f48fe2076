package roiconv

// 2D affine transforms attached to shapes.

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrSingularTransform is returned when inverting a transform with a zero determinant.
var ErrSingularTransform = errors.New("singular affine transform")

// AffineTransform is the 2x3 matrix
//
//	| a00 a01 a02 |
//	| a10 a11 a12 |
//
// mapping (x, y) to (a00*x + a01*y + a02, a10*x + a11*y + a12). The coefficient order of
// NewAffineTransform and Coefficients follows the OMERO model: a00, a10, a01, a11, a02, a12.
//
// The zero value is the degenerate all-zero matrix, not the identity. Use Identity, or build
// from it: a transform that only sets a02 = 5 is Translation(5, 0), and one that only sets
// a00 = 2 is Scaling(2, 1).
type AffineTransform struct {
	a00, a10, a01, a11, a02, a12 float64
}

// Identity returns the identity transform (1, 0, 0, 1, 0, 0).
func Identity() AffineTransform {
	return AffineTransform{a00: 1, a11: 1}
}

// NewAffineTransform returns the transform with the given coefficients.
func NewAffineTransform(a00, a10, a01, a11, a02, a12 float64) AffineTransform {
	return AffineTransform{a00: a00, a10: a10, a01: a01, a11: a11, a02: a02, a12: a12}
}

// Translation returns a transform that moves points by (dx, dy).
func Translation(dx, dy float64) AffineTransform {
	return NewAffineTransform(1, 0, 0, 1, dx, dy)
}

// Scaling returns a transform that scales points by (sx, sy) about the origin.
func Scaling(sx, sy float64) AffineTransform {
	return NewAffineTransform(sx, 0, 0, sy, 0, 0)
}

// Rotation returns a transform that rotates points by theta radians about (cx, cy). With the
// y axis pointing down, positive angles rotate clockwise on screen.
func Rotation(theta, cx, cy float64) AffineTransform {
	sin, cos := math.Sincos(theta)
	return Translation(-cx, -cy).
		Compose(NewAffineTransform(cos, sin, -sin, cos, 0, 0)).
		Compose(Translation(cx, cy))
}

// Coefficients returns a00, a10, a01, a11, a02, a12.
func (t AffineTransform) Coefficients() [6]float64 {
	return [6]float64{t.a00, t.a10, t.a01, t.a11, t.a02, t.a12}
}

// IsIdentity reports whether t is exactly the identity.
func (t AffineTransform) IsIdentity() bool {
	return t == Identity()
}

// Apply maps the point (x, y).
func (t AffineTransform) Apply(x, y float64) (float64, float64) {
	return t.a00*x + t.a01*y + t.a02, t.a10*x + t.a11*y + t.a12
}

// Compose returns the transform that applies t first and then next.
func (t AffineTransform) Compose(next AffineTransform) AffineTransform {
	var m mat.Dense
	m.Mul(next.matrix(), t.matrix())
	return fromMatrix(&m)
}

// Invert returns the inverse of t, or ErrSingularTransform.
func (t AffineTransform) Invert() (AffineTransform, error) {
	if t.a00*t.a11-t.a01*t.a10 == 0 {
		return AffineTransform{}, ErrSingularTransform
	}

	var inv mat.Dense
	if err := inv.Inverse(t.matrix()); err != nil {
		// A Condition error still yields a usable inverse for a non-zero determinant.
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return AffineTransform{}, fmt.Errorf("inverting %v: %w", t, err)
		}
		logger().Debug("Inverting an ill-conditioned transform", "transform", t, "condition", cond)
	}
	return fromMatrix(&inv), nil
}

// String formats the coefficients in OMERO order.
func (t AffineTransform) String() string {
	return fmt.Sprintf("[%g %g %g %g %g %g]", t.a00, t.a10, t.a01, t.a11, t.a02, t.a12)
}

// matrix returns t in homogeneous 3x3 form.
func (t AffineTransform) matrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		t.a00, t.a01, t.a02,
		t.a10, t.a11, t.a12,
		0, 0, 1,
	})
}

func fromMatrix(m mat.Matrix) AffineTransform {
	return AffineTransform{
		a00: m.At(0, 0), a01: m.At(0, 1), a02: m.At(0, 2),
		a10: m.At(1, 0), a11: m.At(1, 1), a12: m.At(1, 2),
	}
}
