// Package artifacts stores the connection artifacts (kubeconfigs) of the
// clusters a run created.
package artifacts

import (
	"context"
	"errors"
	"strings"
)

// Sink stores one cluster's kubeconfig and returns where it was written.
type Sink interface {
	Write(ctx context.Context, cluster string, kubeconfig []byte) (string, error)
}

// MultiSink writes to every sink in order. A failing sink does not keep
// the others from being written.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, cluster string, kubeconfig []byte) (string, error) {
	var (
		locations []string
		errs      []error
	)
	for _, s := range m {
		loc, err := s.Write(ctx, cluster, kubeconfig)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		locations = append(locations, loc)
	}
	return strings.Join(locations, ","), errors.Join(errs...)
}

// Remove drops the artifact from every sink that supports removal.
func (m MultiSink) Remove(cluster string) error {
	var errs []error
	for _, s := range m {
		if r, ok := s.(interface{ Remove(string) error }); ok {
			if err := r.Remove(cluster); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
