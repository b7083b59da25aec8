// Package k8s wraps the Kubernetes API operations the orchestrator and the
// observability deployer need: node readiness, system pod health, namespace
// and storage reconciliation, and deployment availability waits.
package k8s

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	storagev1 "k8s.io/api/storage/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
)

// defaultClassAnnotation marks the cluster's default storage class.
const defaultClassAnnotation = "storageclass.kubernetes.io/is-default-class"

// Client wraps a Kubernetes clientset.
type Client struct {
	clientset kubernetes.Interface
}

// NewClient creates a client from a kubeconfig file.
func NewClient(kubeconfigPath string) (*Client, error) {
	cfg, err := clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to build kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	return &Client{clientset: clientset}, nil
}

// NewFromClientset wraps an existing clientset (used by tests with fakes).
func NewFromClientset(clientset kubernetes.Interface) *Client {
	return &Client{clientset: clientset}
}

// NodeStatus summarizes one cluster node.
type NodeStatus struct {
	Name       string
	InternalIP string
	Ready      bool
}

// Nodes lists cluster members with their readiness and internal IP.
func (c *Client) Nodes(ctx context.Context) ([]NodeStatus, error) {
	list, err := c.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	statuses := make([]NodeStatus, 0, len(list.Items))
	for _, node := range list.Items {
		status := NodeStatus{Name: node.Name}
		for _, addr := range node.Status.Addresses {
			if addr.Type == corev1.NodeInternalIP {
				status.InternalIP = addr.Address
			}
		}
		for _, cond := range node.Status.Conditions {
			if cond.Type == corev1.NodeReady && cond.Status == corev1.ConditionTrue {
				status.Ready = true
			}
		}
		statuses = append(statuses, status)
	}

	return statuses, nil
}

// IsMember reports whether a node with the given internal IP or name is
// registered in the cluster.
func (c *Client) IsMember(ctx context.Context, addressOrName string) (bool, error) {
	nodes, err := c.Nodes(ctx)
	if err != nil {
		return false, err
	}
	for _, n := range nodes {
		if n.InternalIP == addressOrName || n.Name == addressOrName {
			return true, nil
		}
	}
	return false, nil
}

// FailedSystemPods returns the names of kube-system pods in a Failed phase.
func (c *Client) FailedSystemPods(ctx context.Context) ([]string, error) {
	pods, err := c.clientset.CoreV1().Pods("kube-system").List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list kube-system pods: %w", err)
	}

	var failed []string
	for _, pod := range pods.Items {
		if pod.Status.Phase == corev1.PodFailed {
			failed = append(failed, pod.Name)
		}
	}
	return failed, nil
}

// EnsureNamespace creates a namespace if it does not already exist.
func (c *Client) EnsureNamespace(ctx context.Context, name string) error {
	_, err := c.clientset.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
	if err == nil {
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to get namespace %s: %w", name, err)
	}

	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name}}
	if _, err := c.clientset.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{}); err != nil {
		if apierrors.IsAlreadyExists(err) {
			return nil
		}
		return fmt.Errorf("failed to create namespace %s: %w", name, err)
	}
	return nil
}

// StorageClassExists reports whether the named storage class is present.
func (c *Client) StorageClassExists(ctx context.Context, name string) (bool, error) {
	_, err := c.clientset.StorageV1().StorageClasses().Get(ctx, name, metav1.GetOptions{})
	if err == nil {
		return true, nil
	}
	if apierrors.IsNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to get storage class %s: %w", name, err)
}

// DefaultStorageClass returns the cluster's default storage class name,
// or empty if none is marked default.
func (c *Client) DefaultStorageClass(ctx context.Context) (string, error) {
	classes, err := c.clientset.StorageV1().StorageClasses().List(ctx, metav1.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to list storage classes: %w", err)
	}
	for _, sc := range classes.Items {
		if sc.Annotations[defaultClassAnnotation] == "true" {
			return sc.Name, nil
		}
	}
	return "", nil
}

// EnsureStorageClass creates an NFS-backed storage class if absent.
func (c *Client) EnsureStorageClass(ctx context.Context, name, provisioner string) error {
	exists, err := c.StorageClassExists(ctx, name)
	if err != nil || exists {
		return err
	}

	reclaim := corev1.PersistentVolumeReclaimRetain
	sc := &storagev1.StorageClass{
		ObjectMeta:    metav1.ObjectMeta{Name: name},
		Provisioner:   provisioner,
		ReclaimPolicy: &reclaim,
	}
	if _, err := c.clientset.StorageV1().StorageClasses().Create(ctx, sc, metav1.CreateOptions{}); err != nil {
		if apierrors.IsAlreadyExists(err) {
			return nil
		}
		return fmt.Errorf("failed to create storage class %s: %w", name, err)
	}
	return nil
}

// EnsurePVC creates a PersistentVolumeClaim if absent. An empty storageClass
// leaves the class unset so the cluster default applies.
func (c *Client) EnsurePVC(ctx context.Context, namespace, name, size, storageClass string) error {
	_, err := c.clientset.CoreV1().PersistentVolumeClaims(namespace).Get(ctx, name, metav1.GetOptions{})
	if err == nil {
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to get pvc %s/%s: %w", namespace, name, err)
	}

	quantity, err := resource.ParseQuantity(size)
	if err != nil {
		return fmt.Errorf("invalid pvc size %q: %w", size, err)
	}

	pvc := &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{corev1.ResourceStorage: quantity},
			},
		},
	}
	if storageClass != "" {
		pvc.Spec.StorageClassName = &storageClass
	}

	if _, err := c.clientset.CoreV1().PersistentVolumeClaims(namespace).Create(ctx, pvc, metav1.CreateOptions{}); err != nil {
		if apierrors.IsAlreadyExists(err) {
			return nil
		}
		return fmt.Errorf("failed to create pvc %s/%s: %w", namespace, name, err)
	}
	return nil
}
