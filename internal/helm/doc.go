// Package helm installs charts into a cluster from in-memory kubeconfig
// bytes. Charts are resolved from their repository URL at install time.
package helm
