// SPDX-FileCopyrightText: Rancher DevOps Operator contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package guard implements the cross-CR namespace-ownership guard and the
// managed-by precondition checked before every destructive platform call.
package guard

import (
	"context"
	"strings"

	"github.com/go-logr/logr"
	"sigs.k8s.io/controller-runtime/pkg/client"

	rancherdevopsv1 "github.com/Jasonrve/rancher-devops-operator/api/v1"
	"github.com/Jasonrve/rancher-devops-operator/internal/platform"
)

// Guard checks whether a namespace is claimed by a different Project CR and
// whether a platform object is managed by this operator.
type Guard struct {
	Client client.Client
	Log    logr.Logger
}

// IsClaimedByAnother lists all Project CRs and returns true if any CR other
// than currentCRName lists nsName (case-insensitively) in its
// spec.namespaces. Errors are treated as "not claimed" but are logged as
// warnings: the guard fails open for reads because the operator's own CR
// list is the source of truth, and blocking reconciliation on a transient
// list error would stall convergence more than a rare false negative would
// hurt.
func (g *Guard) IsClaimedByAnother(ctx context.Context, nsName, currentCRName string) bool {
	var list rancherdevopsv1.ProjectList
	if err := g.Client.List(ctx, &list); err != nil {
		g.Log.Error(err, "Failed to list Project CRs while checking namespace ownership; failing open", "namespace", nsName)
		return false
	}

	target := strings.ToLower(nsName)
	for i := range list.Items {
		cr := &list.Items[i]
		if cr.Name == currentCRName {
			continue
		}
		for _, n := range cr.Spec.Namespaces {
			if strings.ToLower(n) == target {
				return true
			}
		}
	}
	return false
}

// IsManagedByUsProject reports whether a platform project is managed by
// this operator.
func IsManagedByUsProject(p *platform.Project) bool {
	return p.IsManagedByUs()
}

// IsManagedByUsNamespace reports whether a platform namespace is managed
// by this operator.
func IsManagedByUsNamespace(n *platform.Namespace) bool {
	return n.IsManagedByUs()
}
