package readiness

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"lifectl/pkg/logging"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/util/retry"
)

const (
	keyStarted = "started"
	keySetAt   = "setAt"

	labelManagedBy = "app.kubernetes.io/managed-by"
)

// ConfigMapFlag is a Gate persisted in a Kubernetes ConfigMap.
type ConfigMapFlag struct {
	client    kubernetes.Interface
	namespace string
	name      string
	cmName    string

	once   sync.Once
	setErr error
}

// NewConfigMapFlag creates a gate backed by a ConfigMap in namespace. The
// ConfigMap name is derived from the attribute name.
func NewConfigMapFlag(client kubernetes.Interface, namespace, name string) *ConfigMapFlag {
	return &ConfigMapFlag{
		client:    client,
		namespace: namespace,
		name:      name,
		cmName:    ConfigMapName(name),
	}
}

// ConfigMapName maps an attribute name onto a valid ConfigMap name.
func ConfigMapName(attribute string) string {
	return strings.ReplaceAll(strings.ToLower(attribute), "_", "-")
}

func (c *ConfigMapFlag) Name() string {
	return c.name
}

func (c *ConfigMapFlag) IsSet(ctx context.Context) (bool, error) {
	cm, err := c.client.CoreV1().ConfigMaps(c.namespace).Get(ctx, c.cmName, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get configmap %s/%s: %w", c.namespace, c.cmName, err)
	}
	return isStarted(cm), nil
}

// Claim writes started=false over whatever an earlier run left.
func (c *ConfigMapFlag) Claim(ctx context.Context) error {
	return c.upsert(ctx, map[string]string{keyStarted: "false"})
}

func (c *ConfigMapFlag) Set(ctx context.Context) error {
	c.once.Do(func() {
		c.setErr = c.upsert(ctx, map[string]string{
			keyStarted: "true",
			keySetAt:   time.Now().UTC().Format(time.RFC3339Nano),
		})
		if c.setErr == nil {
			logging.Debug("Readiness", "Flag %s set in configmap %s/%s", c.name, c.namespace, c.cmName)
		}
	})
	return c.setErr
}

func (c *ConfigMapFlag) upsert(ctx context.Context, data map[string]string) error {
	configMaps := c.client.CoreV1().ConfigMaps(c.namespace)

	return retry.RetryOnConflict(retry.DefaultRetry, func() error {
		cm, err := configMaps.Get(ctx, c.cmName, metav1.GetOptions{})
		if apierrors.IsNotFound(err) {
			_, err = configMaps.Create(ctx, &corev1.ConfigMap{
				ObjectMeta: metav1.ObjectMeta{
					Name:      c.cmName,
					Namespace: c.namespace,
					Labels:    map[string]string{labelManagedBy: "lifectl"},
				},
				Data: data,
			}, metav1.CreateOptions{})
			return err
		}
		if err != nil {
			return err
		}

		updated := cm.DeepCopy()
		updated.Data = data
		_, err = configMaps.Update(ctx, updated, metav1.UpdateOptions{})
		return err
	})
}

func (c *ConfigMapFlag) Wait(ctx context.Context) error {
	for {
		w, err := c.client.CoreV1().ConfigMaps(c.namespace).Watch(ctx, metav1.ListOptions{
			FieldSelector: fields.OneTermEqualSelector("metadata.name", c.cmName).String(),
		})
		if err != nil {
			return fmt.Errorf("failed to watch configmap %s/%s: %w", c.namespace, c.cmName, err)
		}

		done, err := c.waitOn(ctx, w)
		w.Stop()
		if done || err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logging.Debug("Readiness", "Watch on %s/%s closed, re-establishing", c.namespace, c.cmName)
	}
}

// waitOn checks the current value after the watch is open, then consumes
// events until the flag is observed set. It reports false when the watch
// channel closes underneath it.
func (c *ConfigMapFlag) waitOn(ctx context.Context, w watch.Interface) (bool, error) {
	if set, err := c.IsSet(ctx); err != nil || set {
		return set, err
	}

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case event, ok := <-w.ResultChan():
			if !ok {
				return false, nil
			}
			if event.Type != watch.Added && event.Type != watch.Modified {
				continue
			}
			cm, ok := event.Object.(*corev1.ConfigMap)
			if !ok || cm.Name != c.cmName {
				continue
			}
			if isStarted(cm) {
				return true, nil
			}
		}
	}
}

func isStarted(cm *corev1.ConfigMap) bool {
	return cm.Data[keyStarted] == "true"
}
