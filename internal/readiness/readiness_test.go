package readiness

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

const testTimeout = 5 * time.Second

// waitAsync runs gate.Wait on its own goroutine and returns its result channel.
func waitAsync(ctx context.Context, gate Gate) <-chan error {
	result := make(chan error, 1)
	go func() {
		result <- gate.Wait(ctx)
	}()
	return result
}

func requireReturns(t *testing.T, result <-chan error) {
	t.Helper()
	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(testTimeout):
		t.Fatal("Wait did not return after Set")
	}
}

func requireBlocked(t *testing.T, result <-chan error) {
	t.Helper()
	select {
	case err := <-result:
		t.Fatalf("Wait returned before Set: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
}

// exerciseGate runs the behavior every backend must share.
func exerciseGate(t *testing.T, gate Gate) {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	set, err := gate.IsSet(ctx)
	require.NoError(t, err)
	assert.False(t, set)

	first := waitAsync(ctx, gate)
	second := waitAsync(ctx, gate)
	requireBlocked(t, first)

	require.NoError(t, gate.Set(ctx))
	requireReturns(t, first)
	requireReturns(t, second)

	set, err = gate.IsSet(ctx)
	require.NoError(t, err)
	assert.True(t, set)

	require.NoError(t, gate.Set(ctx), "second Set is a no-op")
	require.NoError(t, gate.Wait(ctx), "Wait after Set returns immediately")
}

func TestFlag(t *testing.T) {
	f := NewFlag(AuthorityStarted)
	assert.Equal(t, AuthorityStarted, f.Name())
	assert.False(t, f.Started())

	exerciseGate(t, f)

	assert.True(t, f.Started())
	select {
	case <-f.Changed():
	default:
		t.Fatal("Changed should be closed after Set")
	}
}

func TestFlag_WaitCancelled(t *testing.T) {
	f := NewFlag(AuthorityStarted)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, f.Wait(ctx), context.Canceled)
}

func TestFileFlag(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	f := NewFileFlag(dir, AuthorityStarted)
	assert.Equal(t, filepath.Join(dir, AuthorityStarted+".ready"), f.Path())

	exerciseGate(t, f)

	// A second instance reading the same directory sees the persisted value.
	other := NewFileFlag(dir, AuthorityStarted)
	set, err := other.IsSet(context.Background())
	require.NoError(t, err)
	assert.True(t, set)
}

func TestFileFlag_ClaimClearsStaleMarker(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	stale := NewFileFlag(dir, AuthorityStarted)
	require.NoError(t, stale.Set(ctx))

	fresh := NewFileFlag(dir, AuthorityStarted)
	require.NoError(t, fresh.Claim(ctx))

	set, err := fresh.IsSet(ctx)
	require.NoError(t, err)
	assert.False(t, set)

	require.NoError(t, fresh.Set(ctx))
	set, err = fresh.IsSet(ctx)
	require.NoError(t, err)
	assert.True(t, set)
}

func TestFileFlag_CorruptMarker(t *testing.T) {
	dir := t.TempDir()
	f := NewFileFlag(dir, AuthorityStarted)
	require.NoError(t, os.WriteFile(f.Path(), []byte("{not json"), 0o644))

	_, err := f.IsSet(context.Background())
	assert.Error(t, err)
}

func TestConfigMapFlag(t *testing.T) {
	client := fake.NewSimpleClientset()
	f := NewConfigMapFlag(client, "lifectl", AuthorityStarted)

	exerciseGate(t, f)

	cm, err := client.CoreV1().ConfigMaps("lifectl").Get(context.Background(), ConfigMapName(AuthorityStarted), metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "true", cm.Data["started"])
	assert.NotEmpty(t, cm.Data["setAt"])
	assert.Equal(t, "lifectl", cm.Labels["app.kubernetes.io/managed-by"])
}

func TestConfigMapFlag_ClaimOverwritesExisting(t *testing.T) {
	existing := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: ConfigMapName(AuthorityStarted), Namespace: "lifectl"},
		Data:       map[string]string{"started": "true"},
	}
	client := fake.NewSimpleClientset(existing)
	ctx := context.Background()

	f := NewConfigMapFlag(client, "lifectl", AuthorityStarted)
	set, err := f.IsSet(ctx)
	require.NoError(t, err)
	assert.True(t, set)

	require.NoError(t, f.Claim(ctx))
	set, err = f.IsSet(ctx)
	require.NoError(t, err)
	assert.False(t, set)
}

func TestConfigMapName(t *testing.T) {
	assert.Equal(t, "lifectl.authority.started", ConfigMapName(AuthorityStarted))
	assert.Equal(t, "my-flag", ConfigMapName("My_Flag"))
}
