// SPDX-FileCopyrightText: Rancher DevOps Operator contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package platform defines the typed client interface this operator
// consumes for the external multi-tenant cluster-management platform. The
// platform's own wire protocol, authentication, and transport are out of
// scope for this repository (spec §1, §6.2) — this package only describes
// the contract and ships a thin default HTTP-backed implementation plus an
// in-memory fake used by tests.
package platform

import "context"

// ManagedByKey and ManagedByValue form the managed-by marker the operator
// writes, as label and/or annotation, onto every project and namespace it
// creates, and the precondition every destructive call must check before
// acting.
const (
	ManagedByKey   = "app.kubernetes.io/managed-by"
	ManagedByValue = "rancher-devops-operator"
)

// Project is a platform-side project.
type Project struct {
	ID          string
	ClusterID   string
	Name        string
	Description string
	Annotations map[string]string
}

// IsManagedByUs reports whether the project carries this operator's
// managed-by annotation.
func (p *Project) IsManagedByUs() bool {
	if p == nil {
		return false
	}
	return p.Annotations[ManagedByKey] == ManagedByValue
}

// Namespace is a platform-side namespace.
type Namespace struct {
	Name        string
	ClusterID   string
	ProjectID   string
	Annotations map[string]string
	Labels      map[string]string
}

// IsManagedByUs reports whether the namespace carries this operator's
// managed-by label (namespaces are matched on label, not annotation, per
// spec §4.2).
func (n *Namespace) IsManagedByUs() bool {
	if n == nil {
		return false
	}
	return n.Labels[ManagedByKey] == ManagedByValue
}

// Member is a platform-side project role binding.
type Member struct {
	ID               string
	ProjectID        string
	RoleTemplateID   string
	UserPrincipalID  string
	GroupPrincipalID string
}

// Client is the capability set this operator consumes from the platform.
// Semantics are black-box; only the documented guarantees matter (spec
// §6.2).
type Client interface {
	// GetClusterIDByName returns the empty string if the cluster is not
	// found. No side effects.
	GetClusterIDByName(ctx context.Context, name string) (string, error)

	// GetProjectByName does a case-sensitive name match within a cluster.
	// Returns nil, nil if not found.
	GetProjectByName(ctx context.Context, clusterID, name string) (*Project, error)
	// CreateProject creates a project with the given managed-by annotation
	// merged into annotations.
	CreateProject(ctx context.Context, clusterID, name, description string, annotations map[string]string) (*Project, error)
	// DeleteProject must precheck the managed-by annotation and refuse (return
	// false, nil) on mismatch.
	DeleteProject(ctx context.Context, projectID string) (bool, error)

	// GetNamespace returns nil, nil if the namespace does not exist in the
	// cluster.
	GetNamespace(ctx context.Context, clusterID, name string) (*Namespace, error)
	// CreateNamespace creates a namespace assigned to projectID. The caller
	// lowercases name; the implementation sets the managed-by label and
	// annotation.
	CreateNamespace(ctx context.Context, projectID, name string) (*Namespace, error)
	// UpdateNamespaceProject reassigns an existing namespace to a new
	// project, preserving its labels, and sets managed-by if missing.
	UpdateNamespaceProject(ctx context.Context, clusterID, name, newProjectID string) error
	// RemoveNamespaceFromProject clears the namespace's projectId. Refuses
	// (returns false, nil) if the namespace is not managed by us.
	RemoveNamespaceFromProject(ctx context.Context, clusterID, name string) (bool, error)
	// DeleteNamespace refuses (returns false, nil) if the namespace is not
	// managed by us.
	DeleteNamespace(ctx context.Context, clusterID, name string) (bool, error)
	// GetProjectNamespaces lists namespaces currently assigned to a project.
	GetProjectNamespaces(ctx context.Context, projectID string) ([]Namespace, error)

	// GetProjectMembers lists existing role bindings on a project.
	GetProjectMembers(ctx context.Context, projectID string) ([]Member, error)
	// CreateProjectMember creates a role binding.
	CreateProjectMember(ctx context.Context, projectID, principalID string, role string) (*Member, error)
	// GetPrincipalIDByName does a case-insensitive name match. Returns the
	// empty string if not found.
	GetPrincipalIDByName(ctx context.Context, name string) (string, error)

	// GetClusterKubeconfig returns a downstream-cluster access config for
	// the ObserveLoop. Returns the empty string if unavailable.
	GetClusterKubeconfig(ctx context.Context, clusterID string) (string, error)
}
