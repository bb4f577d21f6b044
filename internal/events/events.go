// SPDX-FileCopyrightText: Rancher DevOps Operator contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package events names the Kubernetes event reasons emitted on Project CRs
// (spec §6.5), kept centralized the way gardener centralizes its
// EventXxx constants in pkg/apis/core/v1beta1/events.go.
package events

const (
	// Normal event reasons.
	ReconcileStarted         = "ReconcileStarted"
	ClusterResolved          = "ClusterResolved"
	CreatingProject          = "CreatingProject"
	ProjectCreated           = "ProjectCreated"
	ProjectTakenOver         = "ProjectTakenOver"
	ProjectObserved          = "ProjectObserved"
	NamespaceCreated         = "NamespaceCreated"
	NamespaceAssigned        = "NamespaceAssigned"
	NamespaceMoved           = "NamespaceMoved"
	NamespaceRemoved         = "NamespaceRemoved"
	NamespaceDeleted         = "NamespaceDeleted"
	NamespaceDiscovered      = "NamespaceDiscovered"
	NamespaceManuallyRemoved = "NamespaceManuallyRemoved"
	MemberAdded              = "MemberAdded"
	ReconcileCompleted       = "ReconcileCompleted"
	DeletionStarted          = "DeletionStarted"
	ProjectDeleted           = "ProjectDeleted"

	// Warning event reasons.
	ClusterNotFound           = "ClusterNotFound"
	ProjectCreationFailed     = "ProjectCreationFailed"
	NamespaceConflict         = "NamespaceConflict"
	NamespaceProcessingFailed = "NamespaceProcessingFailed"
	NamespaceRemovalFailed    = "NamespaceRemovalFailed"
	MemberAddFailed           = "MemberAddFailed"
	ReconcileFailed           = "ReconcileFailed"
	DeletionFailed            = "DeletionFailed"
)
