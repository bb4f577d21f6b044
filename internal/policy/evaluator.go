// SPDX-FileCopyrightText: Rancher DevOps Operator contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package policy interprets a Project's two policy lists into a compact
// decision vector consumed by the rest of the reconciliation engine.
package policy

import (
	"strings"

	rancherdevopsv1 "github.com/Jasonrve/rancher-devops-operator/api/v1"
)

// Decision is the evaluated permission vector for one reconcile pass. It is
// represented as plain booleans rather than string sets: the vocabulary is
// small and closed, so a decision vector is cheaper to pass around and
// impossible to typo against.
type Decision struct {
	AllowCreate  bool
	AllowDelete  bool
	AllowObserve bool

	AllowNsCreate bool
	AllowNsUpdate bool
	AllowNsDelete bool
}

// Evaluate derives a Decision from spec.managementPolicies and
// spec.namespaceManagementPolicies. An empty managementPolicies list
// defaults to {Create}; an empty namespaceManagementPolicies list defaults
// to {Create, Update}. Matching is case-insensitive.
func Evaluate(spec rancherdevopsv1.ProjectSpec) Decision {
	var d Decision

	mgmt := spec.ManagementPolicies
	if len(mgmt) == 0 {
		d.AllowCreate = true
	} else {
		for _, p := range mgmt {
			switch strings.ToLower(string(p)) {
			case "create":
				d.AllowCreate = true
			case "delete":
				d.AllowDelete = true
			case "observe":
				d.AllowObserve = true
			}
		}
	}

	ns := spec.NamespaceManagementPolicies
	if len(ns) == 0 {
		d.AllowNsCreate = true
		d.AllowNsUpdate = true
	} else {
		for _, p := range ns {
			switch strings.ToLower(string(p)) {
			case "create":
				d.AllowNsCreate = true
			case "update":
				d.AllowNsUpdate = true
			case "delete":
				d.AllowNsDelete = true
			}
		}
	}

	return d
}
