// Package naming provides consistent names for everything a run creates
// outside of the process: kubeconfig contexts, node containers, artifact
// files and the registry proxy container.
//
// Runtimes prefix their own objects (k3d uses "k3d-{cluster}", kind uses
// "kind-{cluster}" for contexts and "{cluster}-control-plane" for nodes);
// these helpers mirror those conventions so that other packages can find
// the objects without asking the runtime.
package naming
