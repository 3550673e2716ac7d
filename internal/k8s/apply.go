package k8s

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/yaml"
	"k8s.io/utils/ptr"
)

const crdKind = "CustomResourceDefinition"

// ApplyManifests applies multi-document YAML using Server-Side Apply.
//
// The whole stream is decoded before anything is sent, so a malformed
// document leaves the cluster untouched. CustomResourceDefinitions go
// first; a kind the mapper does not know yet triggers one discovery
// refresh. Conflicts are forced, since the run owns every object it applies.
func (c *client) ApplyManifests(ctx context.Context, manifests []byte, fieldManager string) error {
	objects, err := decodeManifests(manifests)
	if err != nil {
		return err
	}

	refreshed := false
	for _, obj := range applyOrder(objects) {
		err := c.applyObject(ctx, obj, fieldManager)
		if err != nil && meta.IsNoMatchError(errors.Unwrap(err)) && !refreshed {
			refreshed = true
			if rerr := c.RefreshDiscovery(ctx); rerr != nil {
				return fmt.Errorf("failed to refresh discovery: %w", rerr)
			}
			err = c.applyObject(ctx, obj, fieldManager)
		}
		if err != nil {
			return fmt.Errorf("failed to apply %s %s/%s: %w", obj.GetKind(), obj.GetNamespace(), obj.GetName(), err)
		}
	}
	return nil
}

// decodeManifests splits a YAML or JSON stream into objects, dropping
// empty documents.
func decodeManifests(manifests []byte) ([]*unstructured.Unstructured, error) {
	decoder := yaml.NewYAMLOrJSONDecoder(bytes.NewReader(manifests), 4096)

	var objects []*unstructured.Unstructured
	for doc := 0; ; doc++ {
		obj := &unstructured.Unstructured{}
		if err := decoder.Decode(obj); err != nil {
			if errors.Is(err, io.EOF) {
				return objects, nil
			}
			return nil, fmt.Errorf("failed to decode manifest document %d: %w", doc, err)
		}
		if len(obj.Object) > 0 {
			objects = append(objects, obj)
		}
	}
}

// applyOrder moves CRDs ahead of everything else and keeps the stream
// order otherwise.
func applyOrder(objects []*unstructured.Unstructured) []*unstructured.Unstructured {
	ordered := slices.Clone(objects)
	slices.SortStableFunc(ordered, func(a, b *unstructured.Unstructured) int {
		return rank(a) - rank(b)
	})
	return ordered
}

func rank(obj *unstructured.Unstructured) int {
	if obj.GetKind() == crdKind {
		return 0
	}
	return 1
}

// applyObject server-side applies a single object. Mapping errors are
// wrapped once so the caller can detect a missing kind.
func (c *client) applyObject(ctx context.Context, obj *unstructured.Unstructured, fieldManager string) error {
	gvk := obj.GroupVersionKind()
	if gvk.Kind == "" {
		return errors.New("object has no kind set")
	}

	mapping, err := c.mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
	if err != nil {
		return fmt.Errorf("failed to get REST mapping for %v: %w", gvk, err)
	}

	data, err := obj.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal object: %w", err)
	}
	opts := metav1.PatchOptions{FieldManager: fieldManager, Force: ptr.To(true)}

	resource := c.dynamicClient.Resource(mapping.Resource)
	if mapping.Scope.Name() == meta.RESTScopeNameNamespace {
		namespace := obj.GetNamespace()
		if namespace == "" {
			namespace = metav1.NamespaceDefault
		}
		_, err = resource.Namespace(namespace).Patch(ctx, obj.GetName(), types.ApplyPatchType, data, opts)
	} else {
		_, err = resource.Patch(ctx, obj.GetName(), types.ApplyPatchType, data, opts)
	}
	if err != nil {
		return fmt.Errorf("server-side apply failed: %w", err)
	}
	return nil
}
