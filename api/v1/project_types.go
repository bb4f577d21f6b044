// SPDX-FileCopyrightText: Rancher DevOps Operator contributors
//
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ManagementPolicy is one entry of the closed vocabulary governing what the
// operator is allowed to do to the platform project itself.
// +kubebuilder:validation:Enum=Create;Delete;Observe
type ManagementPolicy string

const (
	// ManagementPolicyCreate authorizes creating the platform project, its
	// members, and (together with NamespaceManagementPolicyCreate) new
	// namespaces.
	ManagementPolicyCreate ManagementPolicy = "Create"
	// ManagementPolicyDelete authorizes deleting the platform project when
	// this CR is deleted.
	ManagementPolicyDelete ManagementPolicy = "Delete"
	// ManagementPolicyObserve authorizes the ObserveLoop to import
	// discovered namespaces/members into this CR's spec.
	ManagementPolicyObserve ManagementPolicy = "Observe"
)

// NamespaceManagementPolicy is one entry of the closed vocabulary governing
// what the operator is allowed to do to namespaces.
// +kubebuilder:validation:Enum=Create;Update;Delete
type NamespaceManagementPolicy string

const (
	// NamespaceManagementPolicyCreate authorizes creating namespaces absent
	// from the platform.
	NamespaceManagementPolicyCreate NamespaceManagementPolicy = "Create"
	// NamespaceManagementPolicyUpdate authorizes reassigning an existing
	// namespace into or out of the project.
	NamespaceManagementPolicyUpdate NamespaceManagementPolicy = "Update"
	// NamespaceManagementPolicyDelete authorizes deleting namespaces that
	// fall out of spec, subject to CleanupNamespaces being armed.
	NamespaceManagementPolicyDelete NamespaceManagementPolicy = "Delete"
)

// MemberRole is a platform role template id, e.g. "project-owner",
// "project-member", "project-viewer". The vocabulary is owned by the
// platform, not by this CRD, so it is left as a free-form string.
type MemberRole string

// ProjectMember is a desired member binding. At least one of PrincipalID or
// PrincipalName must be set; PrincipalName is resolved to a PrincipalID
// during reconciliation.
type ProjectMember struct {
	// principalID is the platform principal id, e.g. "user-abc123" or
	// "group-xyz987". Takes precedence over principalName when both are set.
	// +optional
	PrincipalID string `json:"principalId,omitempty"`

	// principalName is a human-readable principal name resolved to a
	// principalId via the platform's principal search on every reconcile;
	// the resolved id is not written back to the spec.
	// +optional
	PrincipalName string `json:"principalName,omitempty"`

	// role is the platform role template id to bind the principal to.
	Role MemberRole `json:"role"`
}

// ProjectSpec defines the desired state of a Project.
type ProjectSpec struct {
	// clusterName is the name (not id) of a downstream cluster registered
	// in the platform.
	// +kubebuilder:validation:MinLength=1
	ClusterName string `json:"clusterName"`

	// displayName is the human-readable project name on the platform. Falls
	// back to metadata.name when empty.
	// +optional
	DisplayName string `json:"displayName,omitempty"`

	// description is an optional human-readable description passed through
	// to the platform project.
	// +optional
	Description string `json:"description,omitempty"`

	// namespaces is the desired set of namespace names for this project,
	// compared case-insensitively and stored lowercase on the wire.
	// +optional
	Namespaces []string `json:"namespaces,omitempty"`

	// members is the desired set of project role bindings.
	// +optional
	Members []ProjectMember `json:"members,omitempty"`

	// resourceQuota is passed through to the platform opaquely; this
	// operator never reconciles its contents back from the platform.
	// +optional
	ResourceQuota *ResourceQuota `json:"resourceQuota,omitempty"`

	// managementPolicies gates mutations to the platform project itself.
	// An empty list defaults to {Create}.
	// +optional
	ManagementPolicies []ManagementPolicy `json:"managementPolicies,omitempty"`

	// namespaceManagementPolicies gates mutations to namespaces. An empty
	// list defaults to {Create, Update}.
	// +optional
	NamespaceManagementPolicies []NamespaceManagementPolicy `json:"namespaceManagementPolicies,omitempty"`
}

// ResourceQuota is an opaque pass-through of platform resource quota
// settings; this operator never interprets or reconciles its fields.
type ResourceQuota struct {
	// Limit is the raw quota limit document as understood by the platform.
	// +optional
	Limit map[string]string `json:"limit,omitempty"`
}

// ProjectPhase is the coarse lifecycle phase of a Project CR.
type ProjectPhase string

const (
	// ProjectPhasePending indicates the CR is not Active: either no platform
	// project is bound yet, or one is bound but the Create management policy
	// is not set.
	ProjectPhasePending ProjectPhase = "Pending"
	// ProjectPhaseActive indicates the last reconcile completed
	// successfully and a platform project is bound.
	ProjectPhaseActive ProjectPhase = "Active"
	// ProjectPhaseError indicates the last reconcile failed.
	ProjectPhaseError ProjectPhase = "Error"
)

// ProjectStatus defines the observed state of a Project.
type ProjectStatus struct {
	// projectId is the platform project id, of the form "<clusterId>:<projectId>".
	// +optional
	ProjectID string `json:"projectId,omitempty"`

	// clusterId is the resolved platform cluster id for spec.clusterName.
	// +optional
	ClusterID string `json:"clusterId,omitempty"`

	// phase is the coarse lifecycle phase.
	// +optional
	Phase ProjectPhase `json:"phase,omitempty"`

	// createdNamespaces is the set of namespace names this operator itself
	// created during the most recent reconcile pass. It is cleared at the
	// start of every pass, so names created in earlier passes are not kept.
	// It is used on CR deletion to decide what to clean up, and is not the
	// authoritative desired set.
	// +optional
	CreatedNamespaces []string `json:"createdNamespaces,omitempty"`

	// manuallyRemovedNamespaces is the tombstone set: names that were in
	// spec.namespaces but disappeared from the platform out-of-band. Entries
	// here are never recreated until removed from spec.namespaces. This set
	// only grows within a CR's lifetime.
	// +optional
	ManuallyRemovedNamespaces []string `json:"manuallyRemovedNamespaces,omitempty"`

	// configuredMembers is the set of "principalId:role" strings that member
	// passes have found or created. Entries accumulate across reconciles and
	// are never removed.
	// +optional
	ConfiguredMembers []string `json:"configuredMembers,omitempty"`

	// +optional
	LastReconcileTime *metav1.Time `json:"lastReconcileTime,omitempty"`
	// +optional
	CreatedTimestamp *metav1.Time `json:"createdTimestamp,omitempty"`
	// +optional
	LastUpdatedTimestamp *metav1.Time `json:"lastUpdatedTimestamp,omitempty"`

	// errorMessage holds the failure summary of the last failed reconcile,
	// or is empty after a successful one.
	// +optional
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:resource:scope=Cluster,shortName=proj
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="Cluster",type=string,JSONPath=`.spec.clusterName`
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// Project is the Schema for the projects API. It reconciles against a
// multi-tenant cluster-management platform that owns the real projects,
// namespace-to-project bindings, and project-scoped role bindings.
type Project struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   ProjectSpec   `json:"spec,omitempty"`
	Status ProjectStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// ProjectList contains a list of Project.
type ProjectList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Project `json:"items"`
}

func init() {
	SchemeBuilder.Register(&Project{}, &ProjectList{})
}
