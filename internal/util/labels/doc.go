// Package labels provides consistent labeling for the containers, networks
// and nodes a run creates.
//
// Docker labels use the testbench.io domain prefix so that teardown can
// find every object of a network with a single filter.
package labels
