// SPDX-FileCopyrightText: Rancher DevOps Operator contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package project implements ProjectReconciler (spec §4.5): the
// controller-runtime Reconciler that orchestrates the policy evaluator,
// ownership guard, namespace reconciler, and member reconciler for a
// single Project CR, and owns status updates with conflict-retry.
package project

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	rancherdevopsv1 "github.com/Jasonrve/rancher-devops-operator/api/v1"
	"github.com/Jasonrve/rancher-devops-operator/internal/events"
	"github.com/Jasonrve/rancher-devops-operator/internal/metrics"
	namespacereconciler "github.com/Jasonrve/rancher-devops-operator/internal/reconcile/namespace"
	memberreconciler "github.com/Jasonrve/rancher-devops-operator/internal/reconcile/member"
	"github.com/Jasonrve/rancher-devops-operator/internal/platform"
	"github.com/Jasonrve/rancher-devops-operator/internal/policy"
	"github.com/Jasonrve/rancher-devops-operator/internal/statuswriter"
)

// FinalizerName is attached to every Project CR this operator manages, so
// that Delete logic runs before the CR is actually removed from the API
// server.
const FinalizerName = "rancher.devops.io/project-operator"

// Reconciler reconciles a Project object.
type Reconciler struct {
	Client   client.Client
	Platform platform.Client
	Recorder record.EventRecorder

	// CleanupNamespaces arms Delete-policy namespace deletion (spec §6.4).
	CleanupNamespaces bool

	Namespaces *namespacereconciler.Reconciler
	Members    *memberreconciler.Reconciler
	Status     *statuswriter.Writer
}

// SetupWithManager wires the Reconciler into a controller-runtime manager.
func (r *Reconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&rancherdevopsv1.Project{}).
		Complete(r)
}

// Reconcile implements the per-CR reconciliation algorithm (spec §4.5).
func (r *Reconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	log := logf.FromContext(ctx)
	start := time.Now()
	defer func() {
		metrics.ReconcileDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	cr := &rancherdevopsv1.Project{}
	if err := r.Client.Get(ctx, req.NamespacedName, cr); err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, fmt.Errorf("fetching Project: %w", err)
	}

	if cr.DeletionTimestamp != nil {
		return r.delete(ctx, log, cr)
	}

	if !controllerutil.ContainsFinalizer(cr, FinalizerName) {
		controllerutil.AddFinalizer(cr, FinalizerName)
		if err := r.Client.Update(ctx, cr); err != nil {
			return ctrl.Result{}, fmt.Errorf("adding finalizer: %w", err)
		}
	}

	return r.reconcile(ctx, log, cr)
}

// reconcile runs the main reconciliation body. A recovered panic is folded
// into the same terminal-error handling as any other uncaught failure
// (spec §4.5 "On any uncaught exception").
func (r *Reconciler) reconcile(ctx context.Context, log logr.Logger, cr *rancherdevopsv1.Project) (result ctrl.Result, resultErr error) {
	correlationID := uuid.NewString()[:8]
	log = log.WithValues("correlationID", correlationID)

	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("panic during reconcile: %v", rec)
			r.failTerminally(ctx, log, cr, err)
			resultErr = err
		}
	}()

	decision := policy.Evaluate(cr.Spec)
	r.Recorder.Eventf(cr, corev1.EventTypeNormal, events.ReconcileStarted, "Starting reconcile (correlation=%s)", correlationID)

	if cr.Status.Phase == "" {
		cr.Status.Phase = rancherdevopsv1.ProjectPhasePending
	}

	clusterID, err := r.Platform.GetClusterIDByName(ctx, cr.Spec.ClusterName)
	if err != nil {
		return r.fail(ctx, log, cr, fmt.Errorf("resolving cluster %q: %w", cr.Spec.ClusterName, err), "cluster_not_found", events.ClusterNotFound)
	}
	if clusterID == "" {
		return r.fail(ctx, log, cr, fmt.Errorf("cluster %q not found", cr.Spec.ClusterName), "cluster_not_found", events.ClusterNotFound)
	}
	cr.Status.ClusterID = clusterID
	r.Recorder.Eventf(cr, corev1.EventTypeNormal, events.ClusterResolved, "Resolved cluster %q to id %q", cr.Spec.ClusterName, clusterID)

	projectName := cr.Spec.DisplayName
	if projectName == "" {
		projectName = cr.Name
	}

	existing, err := r.Platform.GetProjectByName(ctx, clusterID, projectName)
	if err != nil {
		return r.fail(ctx, log, cr, fmt.Errorf("looking up project %q: %w", projectName, err), "project_creation_failed", events.ProjectCreationFailed)
	}

	firstBind := cr.Status.ProjectID == ""

	if existing == nil {
		if !decision.AllowCreate {
			cr.Status.Phase = rancherdevopsv1.ProjectPhasePending
			if err := r.Status.UpdateStatus(ctx, cr); err != nil {
				return ctrl.Result{}, err
			}
			return ctrl.Result{}, nil
		}

		r.Recorder.Eventf(cr, corev1.EventTypeNormal, events.CreatingProject, "Creating platform project %q", projectName)
		created, err := r.Platform.CreateProject(ctx, clusterID, projectName, cr.Spec.Description, map[string]string{platform.ManagedByKey: platform.ManagedByValue})
		if err != nil {
			return r.fail(ctx, log, cr, fmt.Errorf("creating project %q: %w", projectName, err), "project_creation_failed", events.ProjectCreationFailed)
		}
		cr.Status.ProjectID = created.ID
		r.Recorder.Eventf(cr, corev1.EventTypeNormal, events.ProjectCreated, "Created platform project %q (%s)", projectName, created.ID)
	} else {
		cr.Status.ProjectID = existing.ID
		if firstBind {
			r.Recorder.Eventf(cr, corev1.EventTypeNormal, events.ProjectTakenOver, "Took over existing platform project %q (%s)", projectName, existing.ID)
		}

		if decision.AllowObserve {
			if err := r.observeImport(ctx, cr, clusterID, existing.ID); err != nil {
				log.Error(err, "Observe import failed; continuing reconcile")
			}
		}
	}

	params := namespacereconciler.Params{
		ClusterID:         clusterID,
		ProjectID:         cr.Status.ProjectID,
		Decision:          decision,
		CleanupNamespaces: r.CleanupNamespaces,
	}

	tombstones := map[string]bool{}
	for _, n := range cr.Status.ManuallyRemovedNamespaces {
		tombstones[strings.ToLower(n)] = true
	}

	// createdNamespaces is an audit trail of this pass only; rewritten from
	// scratch before the per-namespace loop (spec §4.3).
	cr.Status.CreatedNamespaces = nil

	for _, n := range cr.Spec.Namespaces {
		if err := r.Namespaces.Step(ctx, cr, n, params, tombstones); err != nil {
			if _, isConflict := err.(*namespacereconciler.Conflict); isConflict {
				return ctrl.Result{}, r.Status.UpdateStatus(ctx, cr)
			}
			log.Error(err, "Namespace processing failed; continuing with remaining namespaces", "namespace", n)
		}
	}

	if err := r.Namespaces.Sweep(ctx, cr, params); err != nil {
		log.Error(err, "Namespace sweep encountered errors")
	}
	if err := r.Namespaces.RecordManualRemovals(ctx, cr, params, tombstones); err != nil {
		log.Error(err, "Manual-removal detection failed")
	}

	for _, m := range cr.Spec.Members {
		if err := r.Members.Step(ctx, cr, m, cr.Status.ProjectID, decision); err != nil {
			log.Error(err, "Member processing failed; continuing with remaining members")
		}
	}

	if cr.Status.ProjectID != "" && decision.AllowCreate {
		cr.Status.Phase = rancherdevopsv1.ProjectPhaseActive
	}

	now := metav1.Now()
	cr.Status.LastReconcileTime = &now
	if cr.Status.CreatedTimestamp == nil && cr.Status.ProjectID != "" {
		cr.Status.CreatedTimestamp = &now
	}
	cr.Status.LastUpdatedTimestamp = &now
	cr.Status.ErrorMessage = ""

	if err := r.Status.UpdateStatus(ctx, cr); err != nil {
		return ctrl.Result{}, err
	}
	r.Recorder.Eventf(cr, corev1.EventTypeNormal, events.ReconcileCompleted, "Reconcile completed (correlation=%s)", correlationID)
	return ctrl.Result{}, nil
}

// observeImport performs the one-shot observe import (spec §4.5, §4.6
// "Observe import is one-shot per empty field"): on a take-over, when the
// relevant spec field is empty, it is populated from what the platform
// already has. It also tags every discovered namespace with the
// managed-by marker if untagged, regardless of whether an import happened.
func (r *Reconciler) observeImport(ctx context.Context, cr *rancherdevopsv1.Project, clusterID, projectID string) error {
	nsList, err := r.Platform.GetProjectNamespaces(ctx, projectID)
	if err != nil {
		return fmt.Errorf("listing namespaces for observe import: %w", err)
	}

	imported := false
	if len(cr.Spec.Namespaces) == 0 {
		for _, ns := range nsList {
			cr.Spec.Namespaces = append(cr.Spec.Namespaces, strings.ToLower(ns.Name))
		}
		imported = len(nsList) > 0
	}

	if len(cr.Spec.Members) == 0 {
		members, err := r.Platform.GetProjectMembers(ctx, projectID)
		if err != nil {
			return fmt.Errorf("listing members for observe import: %w", err)
		}
		for _, m := range members {
			id := m.UserPrincipalID
			if id == "" {
				id = m.GroupPrincipalID
			}
			if id == "" {
				continue
			}
			cr.Spec.Members = append(cr.Spec.Members, rancherdevopsv1.ProjectMember{
				PrincipalID: id,
				Role:        rancherdevopsv1.MemberRole(m.RoleTemplateID),
			})
			imported = true
		}
	}

	if imported {
		if err := r.Status.UpdateSpec(ctx, cr); err != nil {
			return fmt.Errorf("writing observed spec: %w", err)
		}
		r.Recorder.Event(cr, corev1.EventTypeNormal, events.ProjectObserved, "Imported discovered namespaces/members from platform project")
	}

	for _, ns := range nsList {
		if ns.IsManagedByUs() {
			continue
		}
		_ = r.Platform.UpdateNamespaceProject(ctx, clusterID, ns.Name, ns.ProjectID)
	}

	return nil
}

// fail records a named, anticipated failure: only the caller's own
// event/metric label is emitted, never the generic ReconcileFailed/
// reconciliation_failed pair (those are reserved for failTerminally's
// uncaught-exception path).
func (r *Reconciler) fail(ctx context.Context, log logr.Logger, cr *rancherdevopsv1.Project, err error, errorType, eventReason string) (ctrl.Result, error) {
	r.writeErrorStatus(ctx, log, cr, err)
	r.Recorder.Eventf(cr, corev1.EventTypeWarning, eventReason, err.Error())
	metrics.ReconciliationErrorsTotal.WithLabelValues(errorType).Inc()
	return ctrl.Result{}, err
}

// failTerminally handles the catch-all uncaught-exception path (spec "On
// any uncaught exception"): unlike fail, it always emits ReconcileFailed
// and increments reconciliation_failed, since nothing more specific caught
// this error first.
func (r *Reconciler) failTerminally(ctx context.Context, log logr.Logger, cr *rancherdevopsv1.Project, err error) {
	r.writeErrorStatus(ctx, log, cr, err)
	r.Recorder.Eventf(cr, corev1.EventTypeWarning, events.ReconcileFailed, "Reconcile failed: %v", err)
	metrics.ReconciliationErrorsTotal.WithLabelValues("reconciliation_failed").Inc()
}

func (r *Reconciler) writeErrorStatus(ctx context.Context, log logr.Logger, cr *rancherdevopsv1.Project, err error) {
	cr.Status.Phase = rancherdevopsv1.ProjectPhaseError
	cr.Status.ErrorMessage = err.Error()
	now := metav1.Now()
	cr.Status.LastReconcileTime = &now

	if writeErr := r.Status.UpdateStatus(ctx, cr); writeErr != nil {
		log.Error(writeErr, "Best-effort status write after reconcile failure also failed")
	}
}

// delete implements the CR-deletion path (spec §4.5 "On Delete(cr)").
func (r *Reconciler) delete(ctx context.Context, log logr.Logger, cr *rancherdevopsv1.Project) (ctrl.Result, error) {
	if !controllerutil.ContainsFinalizer(cr, FinalizerName) {
		return ctrl.Result{}, nil
	}

	decision := policy.Evaluate(cr.Spec)
	r.Recorder.Event(cr, corev1.EventTypeNormal, events.DeletionStarted, "Deleting Project")

	if !decision.AllowDelete {
		log.Info("Delete policy not permitted; leaving platform project in place", "project", cr.Status.ProjectID)
		return r.removeFinalizer(ctx, cr)
	}
	if cr.Status.ProjectID == "" {
		log.Info("No platform project bound to this CR; nothing to delete")
		return r.removeFinalizer(ctx, cr)
	}

	clusterID := cr.Status.ClusterID
	for _, n := range cr.Status.CreatedNamespaces {
		switch {
		case decision.AllowNsDelete && r.CleanupNamespaces:
			if ok, err := r.Platform.DeleteNamespace(ctx, clusterID, n); err != nil {
				r.Recorder.Eventf(cr, corev1.EventTypeWarning, events.DeletionFailed, "Failed to delete namespace %q: %v", n, err)
			} else if ok {
				r.Recorder.Eventf(cr, corev1.EventTypeNormal, events.NamespaceDeleted, "Deleted namespace %q", n)
			}
		case decision.AllowNsUpdate:
			if ok, err := r.Platform.RemoveNamespaceFromProject(ctx, clusterID, n); err != nil {
				r.Recorder.Eventf(cr, corev1.EventTypeWarning, events.DeletionFailed, "Failed to detach namespace %q: %v", n, err)
			} else if ok {
				r.Recorder.Eventf(cr, corev1.EventTypeNormal, events.NamespaceRemoved, "Detached namespace %q", n)
			}
		}
	}

	// Project deletion is ownership-gated at the platform layer: if the
	// managed-by precheck there fails, the project is preserved even
	// though we attempted the call (spec §9 "Open question: create-vs-take-over").
	if ok, err := r.Platform.DeleteProject(ctx, cr.Status.ProjectID); err != nil {
		r.Recorder.Eventf(cr, corev1.EventTypeWarning, events.DeletionFailed, "Failed to delete project %q: %v", cr.Status.ProjectID, err)
		metrics.ReconciliationErrorsTotal.WithLabelValues("deletion_failed").Inc()
	} else if ok {
		r.Recorder.Eventf(cr, corev1.EventTypeNormal, events.ProjectDeleted, "Deleted platform project %q", cr.Status.ProjectID)
	}

	return r.removeFinalizer(ctx, cr)
}

func (r *Reconciler) removeFinalizer(ctx context.Context, cr *rancherdevopsv1.Project) (ctrl.Result, error) {
	controllerutil.RemoveFinalizer(cr, FinalizerName)
	if err := r.Client.Update(ctx, cr); err != nil {
		return ctrl.Result{}, fmt.Errorf("removing finalizer: %w", err)
	}
	return ctrl.Result{}, nil
}
