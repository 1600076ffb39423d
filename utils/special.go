package utils

import (
	"math"
	"sync"
)

// Special functions needed by the Green's function kernels: modified Bessel
// functions of the second kind K0 and K1, the exponential integral E1 and the
// Bessel-integral function Ji0. Polynomial approximations follow Abramowitz &
// Stegun 9.8 and 5.1, absolute error below 1e-7 on the quoted ranges.

// EulerGamma is the Euler-Mascheroni constant.
const EulerGamma = 0.5772156649015328606

func besselI0(x float64) float64 {
	t := x / 3.75
	t *= t
	return 1.0 + t*(3.5156229+t*(3.0899424+t*(1.2067492+
		t*(0.2659732+t*(0.0360768+t*0.0045813)))))
}

func besselI1(x float64) float64 {
	t := x / 3.75
	t *= t
	return x * (0.5 + t*(0.87890594+t*(0.51498869+t*(0.15084934+
		t*(0.02658733+t*(0.00301532+t*0.00032411))))))
}

// BesselK0 is the modified Bessel function of the second kind of order zero,
// for x > 0.
func BesselK0(x float64) float64 {
	if x <= 0 {
		return math.Inf(1)
	}
	if x <= 2.0 {
		t := x * x / 4.0
		return -math.Log(x/2.0)*besselI0(x) + (-EulerGamma +
			t*(0.42278420+t*(0.23069756+t*(0.03488590+
				t*(0.00262698+t*(0.00010750+t*0.00000740))))))
	}
	t := 2.0 / x
	return math.Exp(-x) / math.Sqrt(x) * (1.25331414 +
		t*(-0.07832358+t*(0.02189568+t*(-0.01062446+
			t*(0.00587872+t*(-0.00251540+t*0.00053208))))))
}

// BesselK1 is the modified Bessel function of the second kind of order one,
// for x > 0.
func BesselK1(x float64) float64 {
	if x <= 0 {
		return math.Inf(1)
	}
	if x <= 2.0 {
		t := x * x / 4.0
		return math.Log(x/2.0)*besselI1(x) + 1.0/x*(1.0+
			t*(0.15443144+t*(-0.67278579+t*(-0.18156897+
				t*(-0.01919402+t*(-0.00110404+t*(-0.00004686)))))))
	}
	t := 2.0 / x
	return math.Exp(-x) / math.Sqrt(x) * (1.25331414 +
		t*(0.23498619+t*(-0.03655620+t*(0.01504268+
			t*(-0.00780353+t*(0.00325614+t*(-0.00068245)))))))
}

// ExpIntE1 is the exponential integral E1(x) for x > 0.
func ExpIntE1(x float64) float64 {
	if x <= 0 {
		return math.Inf(1)
	}
	if x <= 1.0 {
		return -math.Log(x) - 0.57721566 +
			x*(0.99999193+x*(-0.24991055+x*(0.05519968+
				x*(-0.00976004+x*0.00107857))))
	}
	num := 0.2677737343 + x*(8.6347608925+x*(18.0590169730+x*(8.5733287401+x)))
	den := 3.9584969228 + x*(21.0996530827+x*(25.6329561486+x*(9.5733223454+x)))
	return num / den * math.Exp(-x) / x
}

const ji0Terms = 50

var (
	ji0Once   sync.Once
	ji0InvFsq [ji0Terms + 1]float64
)

// the coefficients 1/(n!)^2 of the series for Ji0c
func ji0Init() {
	f := 1.0
	ji0InvFsq[0] = 1.0
	for n := 1; n <= ji0Terms; n++ {
		f *= float64(n)
		ji0InvFsq[n] = 1.0 / (f * f)
	}
}

func ji0c(x float64) float64 {
	ji0Once.Do(ji0Init)
	q := -0.25 * x * x
	val := 0.0
	for n := ji0Terms; n > 0; n-- {
		val -= math.Pow(q, float64(n)) * ji0InvFsq[n] / float64(n) * 0.5
	}
	return val
}

// Ji0 is the Bessel-integral function of order zero,
//
//	Ji0(x) = gamma + log(x/2) - int_0^x (1-J0(u))/u du
//
// evaluated with the truncated series of Humbert (1929); valid for
// 0 < x <= ~30.
func Ji0(x float64) float64 {
	return -ji0c(x) + math.Log(x/2.0) + EulerGamma
}
