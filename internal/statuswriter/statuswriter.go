// SPDX-FileCopyrightText: Rancher DevOps Operator contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package statuswriter wraps the two CR write primitives with conflict-retry
// (spec §4.7): up to 3 attempts, refetch-and-merge on version conflict.
package statuswriter

import (
	"context"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	rancherdevopsv1 "github.com/Jasonrve/rancher-devops-operator/api/v1"
)

const maxAttempts = 3

// Writer applies spec and status updates to Project CRs with bounded
// conflict-retry.
type Writer struct {
	Client client.Client
}

// UpdateSpec applies cr.Spec to the cluster, refetching and retrying up to
// maxAttempts times on a version conflict. Between attempts it sleeps
// 100*attempt ms, refetches the CR by name, and carries the in-memory spec
// back onto the refetched object before retrying.
func (w *Writer) UpdateSpec(ctx context.Context, cr *rancherdevopsv1.Project) error {
	desired := cr.Spec.DeepCopy()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(time.Duration(100*(attempt-1)) * time.Millisecond)

			fresh := &rancherdevopsv1.Project{}
			if err := w.Client.Get(ctx, types.NamespacedName{Name: cr.Name, Namespace: cr.Namespace}, fresh); err != nil {
				lastErr = err
				continue
			}
			fresh.Spec = *desired
			cr = fresh
		}

		err := w.Client.Update(ctx, cr)
		if err == nil {
			return nil
		}
		if !apierrors.IsConflict(err) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

// UpdateStatus applies cr.Status to the cluster's status subresource, with
// the same refetch-and-merge conflict-retry discipline as UpdateSpec.
func (w *Writer) UpdateStatus(ctx context.Context, cr *rancherdevopsv1.Project) error {
	desired := cr.Status.DeepCopy()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(time.Duration(100*(attempt-1)) * time.Millisecond)

			fresh := &rancherdevopsv1.Project{}
			if err := w.Client.Get(ctx, types.NamespacedName{Name: cr.Name, Namespace: cr.Namespace}, fresh); err != nil {
				lastErr = err
				continue
			}
			fresh.Status = *desired
			cr = fresh
		}

		err := w.Client.Status().Update(ctx, cr)
		if err == nil {
			return nil
		}
		if !apierrors.IsConflict(err) {
			return err
		}
		lastErr = err
	}
	return lastErr
}
