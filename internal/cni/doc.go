// Package cni provides the network plugin variants a cluster can be wired
// with.
//
// Calico is installed through the tigera operator manifests plus its
// custom resources, Cilium through its helm chart. Flannel (k3d) and
// kindnet (kind) ship with their runtime, so their variants do nothing.
//
// Both installed plugins keep off liqo virtual nodes and interfaces, since
// clusters are peered after the plugin is up.
package cni
