package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/agentic-sandbox/podsnapshot/internal/snapshot"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	EnvNamespace          = "PODSNAPSHOT_NAMESPACE"
	EnvTemplateName       = "PODSNAPSHOT_TEMPLATE_NAME"
	EnvLabels             = "PODSNAPSHOT_LABELS"
	EnvPodSnapshotTimeout = "PODSNAPSHOT_TIMEOUT"
	EnvKubeconfig         = "KUBECONFIG"
)

// Options is the user facing configuration of a snapshot session.
type Options struct {
	Namespace    string            `yaml:"namespace"`
	TemplateName string            `yaml:"templateName"`
	Labels       map[string]string `yaml:"labels"`

	// PodSnapshotTimeoutStr is the string form accepted in files and the
	// environment, e.g. "3m".
	PodSnapshotTimeoutStr string        `yaml:"podSnapshotTimeout"`
	PodSnapshotTimeout    time.Duration `yaml:"-"`

	Kubeconfig  string `yaml:"kubeconfig"`
	KubeContext string `yaml:"context"`
}

func NewOptions() *Options {
	return &Options{
		Namespace:             snapshot.DefaultNamespace,
		Labels:                map[string]string{},
		PodSnapshotTimeout:    snapshot.DefaultPodSnapshotTimeout,
		PodSnapshotTimeoutStr: snapshot.DefaultPodSnapshotTimeout.String(),
	}
}

// LoadFile overlays the YAML file at path on o. Unknown keys are rejected.
func (o *Options) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, o); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if o.Labels == nil {
		o.Labels = map[string]string{}
	}
	return o.parseTimeout()
}

// LoadEnv overlays PODSNAPSHOT_* variables on o. When envFile is not empty
// it is loaded first; variables already set in the process win.
func (o *Options) LoadEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	if v, ok := os.LookupEnv(EnvNamespace); ok && v != "" {
		o.Namespace = v
	}
	if v, ok := os.LookupEnv(EnvTemplateName); ok && v != "" {
		o.TemplateName = v
	}
	if v, ok := os.LookupEnv(EnvLabels); ok && v != "" {
		labels, err := ParseLabels(strings.Split(v, ","))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvLabels, err)
		}
		o.Labels = labels
	}
	if v, ok := os.LookupEnv(EnvPodSnapshotTimeout); ok && v != "" {
		o.PodSnapshotTimeoutStr = v
		if err := o.parseTimeout(); err != nil {
			return err
		}
	}
	if v, ok := os.LookupEnv(EnvKubeconfig); ok && o.Kubeconfig == "" {
		o.Kubeconfig = v
	}
	return nil
}

// SetTimeout is used by flags.
func (o *Options) SetTimeout(d time.Duration) {
	o.PodSnapshotTimeout = d
	o.PodSnapshotTimeoutStr = d.String()
}

func (o *Options) parseTimeout() error {
	if o.PodSnapshotTimeoutStr == "" {
		return nil
	}
	d, err := time.ParseDuration(o.PodSnapshotTimeoutStr)
	if err != nil {
		return fmt.Errorf("invalid pod snapshot timeout %q: %w", o.PodSnapshotTimeoutStr, err)
	}
	if d <= 0 {
		return fmt.Errorf("pod snapshot timeout must be positive: %s", o.PodSnapshotTimeoutStr)
	}
	o.PodSnapshotTimeout = d
	return nil
}

// Validate checks the options needed to open a session. The template name is
// only mandatory for commands that provision workloads.
func (o *Options) Validate(requireTemplate bool) error {
	if o.Namespace == "" {
		return errors.New("namespace must not be empty")
	}
	if o.PodSnapshotTimeout <= 0 {
		return fmt.Errorf("pod snapshot timeout must be positive: %s", o.PodSnapshotTimeout)
	}
	if requireTemplate && o.TemplateName == "" {
		return snapshot.ErrTemplateNameRequired
	}
	return nil
}

// ParseLabels parses key=value pairs. Empty entries are skipped.
func ParseLabels(pairs []string) (map[string]string, error) {
	labels := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid label %q: use key=value", pair)
		}
		labels[k] = v
	}
	return labels, nil
}
