// Package network manages the docker network every cluster of a run is
// attached to, and the optional registry pull-through proxy living on it.
//
// All objects are created through the docker CLI and carry testbench labels
// so that teardown only touches what a run created.
package network
