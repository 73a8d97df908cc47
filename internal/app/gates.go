package app

import (
	"context"
	"fmt"
	"time"

	"lifectl/internal/config"
	"lifectl/internal/readiness"
	"lifectl/pkg/logging"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// NewKubeClientset is a package-level variable for creating a clientset from rest.Config.
// Exported to allow overriding in tests.
var NewKubeClientset = func(c *rest.Config) (kubernetes.Interface, error) {
	return kubernetes.NewForConfig(c)
}

// gates are the readiness flags of both sides on one backend.
type gates struct {
	authority readiness.Gate
	dependent readiness.Gate
}

func newGates(rc config.ReadinessConfig) (gates, error) {
	switch rc.Backend {
	case config.ReadinessBackendMemory:
		return gates{
			authority: readiness.NewFlag(readiness.AuthorityStarted),
			dependent: readiness.NewFlag(readiness.DependentStarted),
		}, nil

	case config.ReadinessBackendFile:
		return gates{
			authority: readiness.NewFileFlag(rc.Dir, readiness.AuthorityStarted),
			dependent: readiness.NewFileFlag(rc.Dir, readiness.DependentStarted),
		}, nil

	case config.ReadinessBackendConfigMap:
		client, err := kubeClient(rc)
		if err != nil {
			return gates{}, err
		}
		return gates{
			authority: readiness.NewConfigMapFlag(client, rc.Namespace, readiness.AuthorityStarted),
			dependent: readiness.NewConfigMapFlag(client, rc.Namespace, readiness.DependentStarted),
		}, nil
	}
	return gates{}, fmt.Errorf("unknown readiness backend %q", rc.Backend)
}

// kubeClient resolves the REST config the way kubectl does: an explicit
// kubeconfig wins, then the in-cluster config, then the default loading
// rules.
func kubeClient(rc config.ReadinessConfig) (kubernetes.Interface, error) {
	var restConfig *rest.Config
	var err error

	if rc.Kubeconfig == "" && rc.Context == "" {
		restConfig, err = rest.InClusterConfig()
		if err == nil {
			logging.Debug("Bootstrap", "Using in-cluster Kubernetes config")
		}
	}

	if restConfig == nil {
		loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
		if rc.Kubeconfig != "" {
			loadingRules.ExplicitPath = rc.Kubeconfig
		}
		configOverrides := &clientcmd.ConfigOverrides{CurrentContext: rc.Context}
		kubeConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, configOverrides)

		restConfig, err = kubeConfig.ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to get REST config: %w", err)
		}
	}
	restConfig.Timeout = 15 * time.Second

	clientset, err := NewKubeClientset(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes clientset: %w", err)
	}
	return clientset, nil
}

// claim clears the flags an earlier run may have left set. Only the side
// that owns a flag claims it.
func claim(ctx context.Context, owned ...readiness.Gate) error {
	for _, gate := range owned {
		claimer, ok := gate.(readiness.Claimer)
		if !ok {
			continue
		}
		if err := claimer.Claim(ctx); err != nil {
			return fmt.Errorf("failed to reset readiness flag %s: %w", gate.Name(), err)
		}
		logging.Debug("Bootstrap", "Reset readiness flag %s", gate.Name())
	}
	return nil
}
