package green

import (
	"math"

	"github.com/notargets/gopoisson/types"
	"github.com/notargets/gopoisson/utils"
)

const (
	c1oPi    = 1.0 / math.Pi
	c1o2Pi   = 1.0 / (2.0 * math.Pi)
	c1o4Pi   = 1.0 / (4.0 * math.Pi)
	c1oSqrt2 = 1.0 / math.Sqrt2
)

// kernelFunc evaluates the free-space kernel at distance r; eps is baked in
// by the selector.
type kernelFunc func(r float64) float64

func hej2(r, eps float64) float64 {
	return c1o4Pi / r * math.Erf(r/eps*c1oSqrt2)
}

func hej4(r, eps float64) float64 {
	rho := r / eps
	return c1o4Pi / r * (c1oSqrt2/math.SqrtPi*rho*math.Exp(-0.5*rho*rho) +
		math.Erf(rho*c1oSqrt2))
}

func hej6(r, eps float64) float64 {
	rho := r / eps
	return c1o4Pi / r * (c1oSqrt2/math.SqrtPi*(1.75*rho-0.25*rho*rho*rho)*math.Exp(-0.5*rho*rho) +
		math.Erf(rho*c1oSqrt2))
}

func chat2(r float64) float64 {
	return c1o4Pi / r
}

// selectKernel returns the kernel and its value at the origin for the fully
// unbounded configuration.
func selectKernel(typeGreen types.GreenType, h [3]float64, eps float64) (g kernelFunc, g0 float64) {
	sqrtPi3 := math.Sqrt(math.Pi * math.Pi * math.Pi)
	switch typeGreen {
	case types.HEJ2:
		g = func(r float64) float64 { return hej2(r, eps) }
		g0 = math.Sqrt2 / (4.0 * eps * sqrtPi3)
	case types.HEJ4:
		g = func(r float64) float64 { return hej4(r, eps) }
		g0 = 3.0 * math.Sqrt2 / (8.0 * eps * sqrtPi3)
	case types.HEJ6:
		g = func(r float64) float64 { return hej6(r, eps) }
		g0 = 15.0 * math.Sqrt2 / (32.0 * eps * sqrtPi3)
	case types.CHAT2:
		g = chat2
		g0 = 0.5 * math.Pow(1.5*c1o2Pi*h[0]*h[1]*h[2], 2.0/3.0)
	default:
		utils.Checkf(false, "no free-space kernel for Green type %v", typeGreen)
	}
	return g, g0
}
