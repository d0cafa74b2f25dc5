// Package trajectory fits observed samples to a projectile parabola and
// synthesizes analytic projectile paths.
//
// Fit solves y = A x² + B x + C by least squares over the design matrix
// [x², x, 1] using a QR factorisation. The fitted curvature gives the
// gravity-equivalent term -2A, the slope at the origin gives the initial
// horizontal velocity B, and the larger non-negative root gives the range.
//
// Synthesize produces the ideal path for a launch speed and angle, over
// either the full time of flight or the time needed to cover a known range.
package trajectory
