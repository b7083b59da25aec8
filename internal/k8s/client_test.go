package k8s

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	storagev1 "k8s.io/api/storage/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func readyNode(name, ip string) *corev1.Node {
	return &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Status: corev1.NodeStatus{
			Addresses: []corev1.NodeAddress{
				{Type: corev1.NodeInternalIP, Address: ip},
			},
			Conditions: []corev1.NodeCondition{
				{Type: corev1.NodeReady, Status: corev1.ConditionTrue},
			},
		},
	}
}

func notReadyNode(name, ip string) *corev1.Node {
	n := readyNode(name, ip)
	n.Status.Conditions[0].Status = corev1.ConditionFalse
	return n
}

func TestNodes(t *testing.T) {
	client := NewFromClientset(fake.NewClientset(
		readyNode("mac-studio", "192.168.1.10"),
		notReadyNode("mac-mini-1", "192.168.1.11"),
	))

	nodes, err := client.Nodes(context.Background())
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	byName := map[string]NodeStatus{}
	for _, n := range nodes {
		byName[n.Name] = n
	}
	assert.True(t, byName["mac-studio"].Ready)
	assert.Equal(t, "192.168.1.10", byName["mac-studio"].InternalIP)
	assert.False(t, byName["mac-mini-1"].Ready)
}

func TestIsMember(t *testing.T) {
	client := NewFromClientset(fake.NewClientset(readyNode("mac-studio", "192.168.1.10")))

	byIP, err := client.IsMember(context.Background(), "192.168.1.10")
	require.NoError(t, err)
	assert.True(t, byIP)

	byName, err := client.IsMember(context.Background(), "mac-studio")
	require.NoError(t, err)
	assert.True(t, byName)

	absent, err := client.IsMember(context.Background(), "192.168.1.99")
	require.NoError(t, err)
	assert.False(t, absent)
}

func TestFailedSystemPods(t *testing.T) {
	client := NewFromClientset(fake.NewClientset(
		&corev1.Pod{
			ObjectMeta: metav1.ObjectMeta{Name: "coredns-abc", Namespace: "kube-system"},
			Status:     corev1.PodStatus{Phase: corev1.PodRunning},
		},
		&corev1.Pod{
			ObjectMeta: metav1.ObjectMeta{Name: "metrics-server-xyz", Namespace: "kube-system"},
			Status:     corev1.PodStatus{Phase: corev1.PodFailed},
		},
	))

	failed, err := client.FailedSystemPods(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"metrics-server-xyz"}, failed)
}

func TestEnsureNamespace_Idempotent(t *testing.T) {
	client := NewFromClientset(fake.NewClientset())
	ctx := context.Background()

	require.NoError(t, client.EnsureNamespace(ctx, "observability"))
	require.NoError(t, client.EnsureNamespace(ctx, "observability"))
}

func TestStorageClassFallback(t *testing.T) {
	client := NewFromClientset(fake.NewClientset(
		&storagev1.StorageClass{
			ObjectMeta: metav1.ObjectMeta{
				Name:        "local-path",
				Annotations: map[string]string{defaultClassAnnotation: "true"},
			},
			Provisioner: "rancher.io/local-path",
		},
	))
	ctx := context.Background()

	exists, err := client.StorageClassExists(ctx, "nfs-client")
	require.NoError(t, err)
	assert.False(t, exists)

	def, err := client.DefaultStorageClass(ctx)
	require.NoError(t, err)
	assert.Equal(t, "local-path", def)
}

func TestEnsureStorageClass_Idempotent(t *testing.T) {
	client := NewFromClientset(fake.NewClientset())
	ctx := context.Background()

	require.NoError(t, client.EnsureStorageClass(ctx, "nfs-client", "nfs.csi.k8s.io"))
	require.NoError(t, client.EnsureStorageClass(ctx, "nfs-client", "nfs.csi.k8s.io"))

	exists, err := client.StorageClassExists(ctx, "nfs-client")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestEnsurePVC(t *testing.T) {
	client := NewFromClientset(fake.NewClientset())
	ctx := context.Background()

	require.NoError(t, client.EnsurePVC(ctx, "observability", "loki-data", "10Gi", "nfs-client"))
	// Second apply reconciles to no-op.
	require.NoError(t, client.EnsurePVC(ctx, "observability", "loki-data", "10Gi", "nfs-client"))

	assert.Error(t, client.EnsurePVC(ctx, "observability", "bad", "not-a-size", ""))
}

func TestWaitForNodesReady(t *testing.T) {
	client := NewFromClientset(fake.NewClientset(
		readyNode("a", "10.0.0.1"),
		readyNode("b", "10.0.0.2"),
	))

	err := client.WaitForNodesReady(context.Background(), 2, time.Second)
	assert.NoError(t, err)
}

func TestWaitForNodesReady_Timeout(t *testing.T) {
	client := NewFromClientset(fake.NewClientset(notReadyNode("a", "10.0.0.1")))

	err := client.WaitForNodesReady(context.Background(), 1, 50*time.Millisecond)
	assert.Error(t, err)
}

func TestWaitForNodeReady(t *testing.T) {
	client := NewFromClientset(fake.NewClientset(readyNode("mac-mini-1", "192.168.1.11")))

	assert.NoError(t, client.WaitForNodeReady(context.Background(), "192.168.1.11", time.Second))
	assert.Error(t, client.WaitForNodeReady(context.Background(), "192.168.1.99", 50*time.Millisecond))
}

func TestWaitForDeploymentAvailable(t *testing.T) {
	replicas := int32(2)
	client := NewFromClientset(fake.NewClientset(&appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "grafana", Namespace: "observability"},
		Spec:       appsv1.DeploymentSpec{Replicas: &replicas},
		Status:     appsv1.DeploymentStatus{AvailableReplicas: 2},
	}))

	err := client.WaitForDeploymentAvailable(context.Background(), "observability", "grafana", time.Second)
	assert.NoError(t, err)
}
