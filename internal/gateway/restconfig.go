package gateway

import (
	"fmt"
	"strings"

	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client/config"
)

// BuildRESTConfig resolves the API server configuration. An explicit
// kubeconfig wins; otherwise controller-runtime's lookup applies
// ($KUBECONFIG, in-cluster, ~/.kube/config).
func BuildRESTConfig(kubeconfigPath, kubeContext string) (*rest.Config, error) {
	kubeconfigPath = strings.TrimSpace(kubeconfigPath)
	kubeContext = strings.TrimSpace(kubeContext)

	if kubeconfigPath == "" {
		cfg, err := config.GetConfigWithContext(kubeContext)
		if err != nil {
			return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
		}
		return cfg, nil
	}

	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		&clientcmd.ClientConfigLoadingRules{ExplicitPath: kubeconfigPath},
		&clientcmd.ConfigOverrides{CurrentContext: kubeContext},
	).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig %s: %w", kubeconfigPath, err)
	}
	return cfg, nil
}
