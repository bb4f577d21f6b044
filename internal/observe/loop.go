// SPDX-FileCopyrightText: Rancher DevOps Operator contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package observe implements ObserveLoop (spec §4.6): a background process
// that inventories clusters named by any Project CR with the Observe
// policy, watches or polls their namespaces for the platform's
// project-assignment annotation, and feeds discoveries back into CR specs
// through the conflict-retrying StatusWriter.
package observe

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/tools/record"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"

	rancherdevopsv1 "github.com/Jasonrve/rancher-devops-operator/api/v1"
	"github.com/Jasonrve/rancher-devops-operator/internal/config"
	"github.com/Jasonrve/rancher-devops-operator/internal/events"
	"github.com/Jasonrve/rancher-devops-operator/internal/metrics"
	"github.com/Jasonrve/rancher-devops-operator/internal/platform"
	"github.com/Jasonrve/rancher-devops-operator/internal/statuswriter"
)

// ProjectAnnotation is the platform annotation a downstream namespace
// carries when it has been assigned to a project.
const ProjectAnnotation = "field.cattle.io/projectId"

const watchReconnectBackoff = 5 * time.Second

// watchHandle is what the loop keeps per watched cluster so it can tear the
// watch down when the cluster drops out of the observed set.
type watchHandle struct {
	cancel context.CancelFunc
}

// Loop is the ObserveLoop.
type Loop struct {
	Client   ctrlclient.Client
	Platform platform.Client
	Status   *statuswriter.Writer
	Recorder record.EventRecorder
	Log      logr.Logger

	Method               config.ObserveMethod
	ClusterCheckInterval time.Duration
	PollingInterval      time.Duration

	mu      sync.Mutex
	watched map[string]watchHandle
	eg      *errgroup.Group
	egCtx   context.Context
}

// Run blocks until ctx is cancelled, refreshing the watched cluster set
// every ClusterCheckInterval.
func (l *Loop) Run(ctx context.Context) error {
	if l.Method == config.ObserveMethodNone {
		l.Log.Info("Observe method is none; loop idling")
		<-ctx.Done()
		return nil
	}
	if l.watched == nil {
		l.watched = map[string]watchHandle{}
	}
	l.eg, l.egCtx = errgroup.WithContext(ctx)

	interval := l.ClusterCheckInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			l.teardownAll()
			return l.eg.Wait()
		case <-ticker.C:
			l.refresh(ctx)
		}
	}
}

// refresh implements steps 1-4 of spec §4.6: list observe-eligible CRs,
// compute the desired cluster set, and reconcile it against the currently
// watched set.
func (l *Loop) refresh(ctx context.Context) {
	var list rancherdevopsv1.ProjectList
	if err := l.Client.List(ctx, &list); err != nil {
		l.Log.Error(err, "Failed to list Project CRs for observe refresh")
		return
	}

	desired := map[string]bool{}
	for _, cr := range list.Items {
		if !hasObservePolicy(cr.Spec.ManagementPolicies) {
			continue
		}
		desired[cr.Spec.ClusterName] = true
	}

	l.mu.Lock()
	var toStart, toStop []string
	for c := range desired {
		if _, ok := l.watched[c]; !ok {
			toStart = append(toStart, c)
		}
	}
	for c := range l.watched {
		if !desired[c] {
			toStop = append(toStop, c)
		}
	}
	l.mu.Unlock()

	for _, c := range toStop {
		l.stopWatching(c)
	}
	for _, c := range toStart {
		l.startWatching(c)
	}

	l.mu.Lock()
	metrics.WatchedClustersGauge.Set(float64(len(l.watched)))
	l.mu.Unlock()
}

func (l *Loop) startWatching(clusterName string) {
	ctx, cancel := context.WithCancel(l.egCtx)

	l.mu.Lock()
	l.watched[clusterName] = watchHandle{cancel: cancel}
	l.mu.Unlock()

	clientset, err := l.clientsetFor(ctx, clusterName)
	if err != nil {
		l.Log.Error(err, "Failed to build downstream client; will retry on next refresh", "cluster", clusterName)
		l.stopWatching(clusterName)
		return
	}

	// One errgroup entry per watched cluster; watchCluster/pollCluster always
	// return nil (stream and poll errors are logged and retried inside
	// them), so one cluster's trouble never cancels its siblings' contexts
	// via the shared group context.
	l.eg.Go(func() error {
		switch l.Method {
		case config.ObserveMethodPoll:
			return l.pollCluster(ctx, clusterName, clientset)
		default:
			return l.watchCluster(ctx, clusterName, clientset)
		}
	})
}

func (l *Loop) stopWatching(clusterName string) {
	l.mu.Lock()
	h, ok := l.watched[clusterName]
	delete(l.watched, clusterName)
	l.mu.Unlock()
	if ok {
		h.cancel()
	}
}

func (l *Loop) teardownAll() {
	l.mu.Lock()
	handles := l.watched
	l.watched = map[string]watchHandle{}
	l.mu.Unlock()
	for _, h := range handles {
		h.cancel()
	}
}

func (l *Loop) clientsetFor(ctx context.Context, clusterName string) (*kubernetes.Clientset, error) {
	clusterID, err := l.Platform.GetClusterIDByName(ctx, clusterName)
	if err != nil {
		return nil, fmt.Errorf("resolving cluster %q: %w", clusterName, err)
	}
	if clusterID == "" {
		return nil, fmt.Errorf("cluster %q not found", clusterName)
	}
	kubeconfig, err := l.Platform.GetClusterKubeconfig(ctx, clusterID)
	if err != nil {
		return nil, fmt.Errorf("obtaining kubeconfig for cluster %q: %w", clusterName, err)
	}
	if kubeconfig == "" {
		return nil, fmt.Errorf("platform returned no kubeconfig for cluster %q", clusterName)
	}
	restCfg, err := clientcmd.RESTConfigFromKubeConfig([]byte(kubeconfig))
	if err != nil {
		return nil, fmt.Errorf("parsing kubeconfig for cluster %q: %w", clusterName, err)
	}
	return kubernetes.NewForConfig(restCfg)
}

// watchCluster runs the watch-mode loop for one cluster: stream namespace
// events and reconnect with a fixed backoff on stream termination.
func (l *Loop) watchCluster(ctx context.Context, clusterName string, clientset *kubernetes.Clientset) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := l.runOneWatch(ctx, clusterName, clientset); err != nil {
			l.Log.Error(err, "Namespace watch stream ended; reconnecting", "cluster", clusterName)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(watchReconnectBackoff):
		}
	}
}

func (l *Loop) runOneWatch(ctx context.Context, clusterName string, clientset *kubernetes.Clientset) error {
	w, err := clientset.CoreV1().Namespaces().Watch(ctx, metav1.ListOptions{})
	if err != nil {
		return fmt.Errorf("opening namespace watch: %w", err)
	}
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.ResultChan():
			if !ok {
				return nil
			}
			if ev.Type != watch.Added && ev.Type != watch.Modified {
				continue
			}
			ns, ok := ev.Object.(*corev1.Namespace)
			if !ok {
				continue
			}
			l.processNamespace(ctx, clusterName, ns)
		}
	}
}

// pollCluster runs the poll-mode loop for one cluster.
func (l *Loop) pollCluster(ctx context.Context, clusterName string, clientset *kubernetes.Clientset) error {
	interval := l.PollingInterval
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.pollOnce(ctx, clusterName, clientset)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.pollOnce(ctx, clusterName, clientset)
		}
	}
}

func (l *Loop) pollOnce(ctx context.Context, clusterName string, clientset *kubernetes.Clientset) {
	list, err := clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		l.Log.Error(err, "Polling namespaces failed", "cluster", clusterName)
		return
	}
	for i := range list.Items {
		l.processNamespace(ctx, clusterName, &list.Items[i])
	}
}

func (l *Loop) processNamespace(ctx context.Context, clusterName string, ns *corev1.Namespace) {
	projectID, ok := ns.Annotations[ProjectAnnotation]
	if !ok || projectID == "" {
		return
	}

	var list rancherdevopsv1.ProjectList
	if err := l.Client.List(ctx, &list); err != nil {
		l.Log.Error(err, "Failed to list Project CRs while processing discovered namespace")
		return
	}

	l.processNamespaceForProjects(ctx, clusterName, ns.Name, projectID, list.Items)
}

// processNamespaceForProjects implements ProcessNamespaceForProjects (spec
// §4.6): find the first eligible CR this namespace belongs to and has not
// yet recorded, and append it via conflict-retry.
func (l *Loop) processNamespaceForProjects(ctx context.Context, clusterName, nsName, projectID string, crs []rancherdevopsv1.Project) {
	for i := range crs {
		cr := &crs[i]
		if cr.Spec.ClusterName != clusterName || cr.Status.ProjectID != projectID {
			continue
		}
		if containsFold(cr.Spec.Namespaces, nsName) {
			continue
		}

		cr.Spec.Namespaces = append(cr.Spec.Namespaces, nsName)
		if err := l.Status.UpdateSpec(ctx, cr); err != nil {
			l.Log.Error(err, "Failed to write discovered namespace into spec", "namespace", nsName, "project", cr.Name)
			return
		}
		metrics.NamespacesDiscoveredTotal.Inc()
		if l.Recorder != nil {
			l.Recorder.Eventf(cr, corev1.EventTypeNormal, events.NamespaceDiscovered, "Discovered namespace %q assigned to this project on the platform", nsName)
		}
		return
	}
}

func hasObservePolicy(policies []rancherdevopsv1.ManagementPolicy) bool {
	for _, p := range policies {
		if p == rancherdevopsv1.ManagementPolicyObserve {
			return true
		}
	}
	return false
}

func containsFold(set []string, v string) bool {
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
