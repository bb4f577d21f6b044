// SPDX-FileCopyrightText: Rancher DevOps Operator contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package member implements MemberReconciler (spec §4.4): driving desired
// member bindings and resolving principal-name to principal-id.
package member

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/tools/record"

	rancherdevopsv1 "github.com/Jasonrve/rancher-devops-operator/api/v1"
	"github.com/Jasonrve/rancher-devops-operator/internal/events"
	"github.com/Jasonrve/rancher-devops-operator/internal/metrics"
	"github.com/Jasonrve/rancher-devops-operator/internal/platform"
	"github.com/Jasonrve/rancher-devops-operator/internal/policy"
)

// Reconciler drives member bindings belonging to one Project CR.
//
// Removal of stale members (ones that disappear from spec.members) is not
// performed in this revision: a future revision should sweep analogous to
// namespace.Reconciler.Sweep. See spec §9 "Member removal is absent".
type Reconciler struct {
	Platform platform.Client
	Recorder record.EventRecorder
	Log      logr.Logger
}

// Step resolves and applies one desired member binding, mutating
// cr.Status.ConfiguredMembers on success. It never aborts the CR's
// reconcile: a failed member is logged, counted, and the loop continues to
// the next member (spec §7).
func (r *Reconciler) Step(ctx context.Context, cr *rancherdevopsv1.Project, m rancherdevopsv1.ProjectMember, projectID string, decision policy.Decision) error {
	principalID := m.PrincipalID
	if principalID == "" && m.PrincipalName != "" {
		resolved, err := r.Platform.GetPrincipalIDByName(ctx, m.PrincipalName)
		if err != nil {
			return r.fail(cr, m, fmt.Errorf("resolving principal %q: %w", m.PrincipalName, err))
		}
		if resolved == "" {
			return r.fail(cr, m, fmt.Errorf("principal %q could not be resolved to an id", m.PrincipalName))
		}
		principalID = resolved
	}
	if principalID == "" {
		return r.fail(cr, m, fmt.Errorf("member has neither principalId nor a resolvable principalName"))
	}

	existing, err := r.Platform.GetProjectMembers(ctx, projectID)
	if err != nil {
		return r.fail(cr, m, fmt.Errorf("listing project members: %w", err))
	}

	found := false
	for _, e := range existing {
		if e.RoleTemplateID != string(m.Role) {
			continue
		}
		if e.UserPrincipalID == principalID || e.GroupPrincipalID == principalID {
			found = true
			break
		}
	}

	if !found {
		if !decision.AllowCreate {
			r.Log.Info("Member binding missing and create is not permitted; skipping", "principalId", principalID, "role", m.Role)
			return nil
		}
		if _, err := r.Platform.CreateProjectMember(ctx, projectID, principalID, string(m.Role)); err != nil {
			return r.fail(cr, m, fmt.Errorf("creating member binding for %q: %w", principalID, err))
		}
		r.Recorder.Eventf(cr, corev1.EventTypeNormal, events.MemberAdded, "Added member %q with role %q", principalID, m.Role)
	}

	key := fmt.Sprintf("%s:%s", principalID, m.Role)
	cr.Status.ConfiguredMembers = appendUnique(cr.Status.ConfiguredMembers, key)
	return nil
}

func (r *Reconciler) fail(cr *rancherdevopsv1.Project, m rancherdevopsv1.ProjectMember, err error) error {
	cr.Status.Phase = rancherdevopsv1.ProjectPhaseError
	cr.Status.ErrorMessage = err.Error()
	subject := m.PrincipalID
	if subject == "" {
		subject = m.PrincipalName
	}
	r.Recorder.Eventf(cr, corev1.EventTypeWarning, events.MemberAddFailed, "Member %q: %v", subject, err)
	metrics.ReconciliationErrorsTotal.WithLabelValues("member_add_failed").Inc()
	return err
}

func appendUnique(set []string, v string) []string {
	for _, existing := range set {
		if existing == v {
			return set
		}
	}
	return append(set, v)
}
