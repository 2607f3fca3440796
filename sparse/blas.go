// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

const zero = 0.0

// dscal scales a vector by a constant.
func dscal(n int, da float64, dx []float64, incx int) {
	if n <= 0 || incx <= 0 {
		return
	}
	if incx == 1 {
		m := uint(n % 5)
		if m > uint(len(dx)) {
			panic("bound check error")
		}
		for i := uint(0); i < m; i++ {
			dx[i] *= da
		}
		if n < 5 {
			return
		}
		for i := m; i < uint(n); i += 5 {
			d := dx[i : i+5 : i+5]
			d[0] *= da
			d[1] *= da
			d[2] *= da
			d[3] *= da
			d[4] *= da
		}
	} else {
		l := uint(incx * n)
		if l > uint(len(dx)) {
			panic("bound check error")
		}
		for i := uint(0); i < l; i += uint(incx) {
			dx[i] *= da
		}
	}
}

// zscal scales a complex vector by a complex constant.
func zscal(n int, za complex128, zx []complex128) {
	if n <= 0 {
		return
	}
	m := uint(n % 4)
	if m > uint(len(zx)) {
		panic("bound check error")
	}
	for i := uint(0); i < m; i++ {
		zx[i] *= za
	}
	if n < 4 {
		return
	}
	for i := m; i < uint(n); i += 4 {
		z := zx[i : i+4 : i+4]
		z[0] *= za
		z[1] *= za
		z[2] *= za
		z[3] *= za
	}
}

// dzero fills vector x with zero.
func dzero(dx []float64) {
	n := uint(len(dx))
	m := n % 5
	if m > n {
		panic("bound check error")
	}
	for i := uint(0); i < m; i++ {
		dx[i] = zero
	}
	if n < 5 {
		return
	}
	for i := m; i < n; i += 5 {
		d := dx[i : i+5 : i+5]
		d[0] = zero
		d[1] = zero
		d[2] = zero
		d[3] = zero
		d[4] = zero
	}
}

// zzero fills complex vector x with zero.
func zzero(zx []complex128) {
	n := uint(len(zx))
	m := n % 4
	if m > n {
		panic("bound check error")
	}
	for i := uint(0); i < m; i++ {
		zx[i] = zero
	}
	if n < 4 {
		return
	}
	for i := m; i < n; i += 4 {
		z := zx[i : i+4 : i+4]
		z[0] = zero
		z[1] = zero
		z[2] = zero
		z[3] = zero
	}
}
