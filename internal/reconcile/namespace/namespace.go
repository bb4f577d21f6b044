// SPDX-FileCopyrightText: Rancher DevOps Operator contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package namespace implements NamespaceReconciler (spec §4.3): driving a
// single namespace to its desired state against the platform, the
// disappearance sweep, and manual-removal tombstoning.
package namespace

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-multierror"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/tools/record"

	rancherdevopsv1 "github.com/Jasonrve/rancher-devops-operator/api/v1"
	"github.com/Jasonrve/rancher-devops-operator/internal/events"
	"github.com/Jasonrve/rancher-devops-operator/internal/guard"
	"github.com/Jasonrve/rancher-devops-operator/internal/metrics"
	"github.com/Jasonrve/rancher-devops-operator/internal/platform"
	"github.com/Jasonrve/rancher-devops-operator/internal/policy"
)

// Params bundles the per-reconcile context the namespace reconciler needs,
// beyond the CR itself.
type Params struct {
	ClusterID         string
	ProjectID         string
	Decision          policy.Decision
	CleanupNamespaces bool
}

// Reconciler drives namespaces belonging to one Project CR to their desired
// state.
type Reconciler struct {
	Platform platform.Client
	Guard    *guard.Guard
	Recorder record.EventRecorder
	Log      logr.Logger
}

// Conflict is returned by Step when a namespace is claimed by another CR.
// The caller must abort the rest of the reconcile immediately (spec §4.3).
type Conflict struct {
	Namespace string
}

func (c *Conflict) Error() string {
	return fmt.Sprintf("namespace %q is claimed by another Project CR", c.Namespace)
}

// Step drives a single spec namespace to its desired state. It mutates
// cr.Status in place (createdNamespaces, phase, errorMessage) and emits
// events. A returned *Conflict means the caller must stop processing this
// CR for the rest of this reconcile; any other non-nil error is an
// isolated per-namespace failure that the caller should log, count, and
// continue past.
func (r *Reconciler) Step(ctx context.Context, cr *rancherdevopsv1.Project, rawName string, p Params, tombstones map[string]bool) error {
	n := strings.ToLower(rawName)

	if tombstones[n] {
		return nil
	}

	ns, err := r.Platform.GetNamespace(ctx, p.ClusterID, n)
	if err != nil {
		return r.isolatedFailure(cr, n, fmt.Errorf("fetching namespace %q: %w", n, err))
	}

	switch {
	case ns == nil:
		if !p.Decision.AllowNsCreate {
			r.Log.Info("Namespace absent and namespace creation is not permitted; skipping", "namespace", n)
			return nil
		}
		created, err := r.Platform.CreateNamespace(ctx, p.ProjectID, n)
		if err != nil {
			return r.isolatedFailure(cr, n, fmt.Errorf("creating namespace %q: %w", n, err))
		}
		cr.Status.CreatedNamespaces = appendUnique(cr.Status.CreatedNamespaces, created.Name)
		r.Recorder.Eventf(cr, corev1.EventTypeNormal, events.NamespaceCreated, "Created namespace %q", n)
		return nil

	case ns.ProjectID == p.ProjectID:
		return nil

	case ns.ProjectID == "":
		if !p.Decision.AllowNsUpdate {
			r.Log.Info("Namespace unassigned and namespace update is not permitted; skipping", "namespace", n)
			return nil
		}
		if err := r.Platform.UpdateNamespaceProject(ctx, p.ClusterID, n, p.ProjectID); err != nil {
			return r.isolatedFailure(cr, n, fmt.Errorf("assigning namespace %q: %w", n, err))
		}
		r.Recorder.Eventf(cr, corev1.EventTypeNormal, events.NamespaceAssigned, "Assigned namespace %q to project", n)
		return nil

	default:
		if r.Guard.IsClaimedByAnother(ctx, n, cr.Name) {
			cr.Status.Phase = rancherdevopsv1.ProjectPhaseError
			cr.Status.ErrorMessage = fmt.Sprintf("Namespace '%s' is already claimed by another Project CR and cannot be moved.", n)
			r.Recorder.Eventf(cr, corev1.EventTypeWarning, events.NamespaceConflict, cr.Status.ErrorMessage)
			metrics.ReconciliationErrorsTotal.WithLabelValues("namespace_conflict").Inc()
			return &Conflict{Namespace: n}
		}
		if !p.Decision.AllowNsUpdate {
			r.Log.Info("Namespace assigned elsewhere and namespace update is not permitted; skipping", "namespace", n)
			return nil
		}
		if err := r.Platform.UpdateNamespaceProject(ctx, p.ClusterID, n, p.ProjectID); err != nil {
			return r.isolatedFailure(cr, n, fmt.Errorf("moving namespace %q: %w", n, err))
		}
		r.Recorder.Eventf(cr, corev1.EventTypeNormal, events.NamespaceMoved, "Moved namespace %q into project", n)
		return nil
	}
}

func (r *Reconciler) isolatedFailure(cr *rancherdevopsv1.Project, n string, err error) error {
	cr.Status.Phase = rancherdevopsv1.ProjectPhaseError
	cr.Status.ErrorMessage = err.Error()
	r.Recorder.Eventf(cr, corev1.EventTypeWarning, events.NamespaceProcessingFailed, "Namespace %q: %v", n, err)
	metrics.ReconciliationErrorsTotal.WithLabelValues("namespace_processing_failed").Inc()
	return err
}

// RecordManualRemovals implements the manual-removal detection pass
// (spec §4.3): for every spec namespace no longer present on the platform
// and not already tombstoned, it appends a tombstone entry and emits
// NamespaceManuallyRemoved.
func (r *Reconciler) RecordManualRemovals(ctx context.Context, cr *rancherdevopsv1.Project, p Params, tombstones map[string]bool) error {
	current, err := r.Platform.GetProjectNamespaces(ctx, p.ProjectID)
	if err != nil {
		return fmt.Errorf("listing project namespaces for manual-removal detection: %w", err)
	}
	currentSet := map[string]bool{}
	for _, ns := range current {
		currentSet[strings.ToLower(ns.Name)] = true
	}

	for _, raw := range cr.Spec.Namespaces {
		n := strings.ToLower(raw)
		if currentSet[n] || tombstones[n] {
			continue
		}
		cr.Status.ManuallyRemovedNamespaces = appendUnique(cr.Status.ManuallyRemovedNamespaces, n)
		tombstones[n] = true
		r.Recorder.Eventf(cr, corev1.EventTypeNormal, events.NamespaceManuallyRemoved, "Namespace %q was removed from the project out-of-band and will not be recreated", n)
	}
	return nil
}

// Sweep implements the disappearance sweep (spec §4.3): for every
// platform-observed namespace assigned to the project but absent from
// spec.namespaces, either delete it (if armed) or detach it, subject to
// the managed-by precondition.
func (r *Reconciler) Sweep(ctx context.Context, cr *rancherdevopsv1.Project, p Params) error {
	current, err := r.Platform.GetProjectNamespaces(ctx, p.ProjectID)
	if err != nil {
		return fmt.Errorf("listing project namespaces for sweep: %w", err)
	}

	desired := map[string]bool{}
	for _, raw := range cr.Spec.Namespaces {
		desired[strings.ToLower(raw)] = true
	}

	var errs *multierror.Error
	for _, ns := range current {
		name := strings.ToLower(ns.Name)
		if desired[name] {
			continue
		}

		switch {
		case p.Decision.AllowNsDelete && p.CleanupNamespaces:
			if !ns.IsManagedByUs() {
				r.Log.Info("Skipping delete of namespace not managed by this operator", "namespace", name)
				continue
			}
			ok, err := r.Platform.DeleteNamespace(ctx, p.ClusterID, name)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("deleting namespace %q: %w", name, err))
				metrics.ReconciliationErrorsTotal.WithLabelValues("namespace_removal_failed").Inc()
				r.Recorder.Eventf(cr, corev1.EventTypeWarning, events.NamespaceRemovalFailed, "Failed to delete namespace %q: %v", name, err)
				continue
			}
			if ok {
				r.Recorder.Eventf(cr, corev1.EventTypeNormal, events.NamespaceDeleted, "Deleted namespace %q that left the spec", name)
			}

		case p.Decision.AllowNsUpdate:
			if !ns.IsManagedByUs() {
				r.Log.Info("Skipping detach of namespace not managed by this operator", "namespace", name)
				continue
			}
			ok, err := r.Platform.RemoveNamespaceFromProject(ctx, p.ClusterID, name)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("detaching namespace %q: %w", name, err))
				metrics.ReconciliationErrorsTotal.WithLabelValues("namespace_removal_failed").Inc()
				r.Recorder.Eventf(cr, corev1.EventTypeWarning, events.NamespaceRemovalFailed, "Failed to detach namespace %q: %v", name, err)
				continue
			}
			if ok {
				r.Recorder.Eventf(cr, corev1.EventTypeNormal, events.NamespaceRemoved, "Detached namespace %q that left the spec", name)
			}
		}
	}

	return errs.ErrorOrNil()
}

func appendUnique(set []string, v string) []string {
	v = strings.ToLower(v)
	for _, existing := range set {
		if existing == v {
			return set
		}
	}
	return append(set, v)
}
