// Package shell runs the external binaries that capabilities drive (k3d,
// liqoctl, docker) behind a Runner interface, so that command lines can be
// asserted in tests without the binaries being installed.
package shell
