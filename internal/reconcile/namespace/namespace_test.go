// SPDX-FileCopyrightText: Rancher DevOps Operator contributors
//
// SPDX-License-Identifier: Apache-2.0

package namespace_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/go-logr/logr"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/client-go/tools/record"
	fakeclient "sigs.k8s.io/controller-runtime/pkg/client/fake"

	rancherdevopsv1 "github.com/Jasonrve/rancher-devops-operator/api/v1"
	"github.com/Jasonrve/rancher-devops-operator/internal/guard"
	namespacereconciler "github.com/Jasonrve/rancher-devops-operator/internal/reconcile/namespace"
	"github.com/Jasonrve/rancher-devops-operator/internal/platform"
	"github.com/Jasonrve/rancher-devops-operator/internal/policy"
)

var _ = Describe("Reconciler", func() {
	var (
		fake   *platform.Fake
		scheme *runtime.Scheme
		cr     *rancherdevopsv1.Project
		r      *namespacereconciler.Reconciler
		params namespacereconciler.Params
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		fake = platform.NewFake()
		scheme = runtime.NewScheme()
		utilruntime.Must(rancherdevopsv1.AddToScheme(scheme))
		cr = &rancherdevopsv1.Project{ObjectMeta: metav1.ObjectMeta{Name: "mine"}}
		guardClient := fakeclient.NewClientBuilder().WithScheme(scheme).Build()
		r = &namespacereconciler.Reconciler{
			Platform: fake,
			Guard:    &guard.Guard{Client: guardClient, Log: logr.Discard()},
			Recorder: record.NewFakeRecorder(32),
			Log:      logr.Discard(),
		}
		params = namespacereconciler.Params{
			ClusterID: "c1",
			ProjectID: "c1:p-mine",
			Decision:  policy.Decision{AllowNsCreate: true, AllowNsUpdate: true, AllowNsDelete: true},
		}
	})

	Describe("#Step", func() {
		It("creates an absent namespace when creation is permitted", func() {
			err := r.Step(ctx, cr, "Team-A", params, map[string]bool{})
			Expect(err).NotTo(HaveOccurred())
			Expect(cr.Status.CreatedNamespaces).To(ConsistOf("team-a"))

			ns, _ := fake.GetNamespace(ctx, "c1", "team-a")
			Expect(ns).NotTo(BeNil())
			Expect(ns.ProjectID).To(Equal("c1:p-mine"))
		})

		It("skips creation when not permitted", func() {
			params.Decision.AllowNsCreate = false
			err := r.Step(ctx, cr, "team-a", params, map[string]bool{})
			Expect(err).NotTo(HaveOccurred())
			Expect(cr.Status.CreatedNamespaces).To(BeEmpty())
		})

		It("is a no-op when the namespace already belongs to this project", func() {
			fake.SeedNamespace(&platform.Namespace{Name: "team-a", ClusterID: "c1", ProjectID: "c1:p-mine"})
			err := r.Step(ctx, cr, "team-a", params, map[string]bool{})
			Expect(err).NotTo(HaveOccurred())
			Expect(cr.Status.CreatedNamespaces).To(BeEmpty())
		})

		It("assigns an unassigned namespace when update is permitted", func() {
			fake.SeedNamespace(&platform.Namespace{Name: "team-a", ClusterID: "c1", ProjectID: ""})
			err := r.Step(ctx, cr, "team-a", params, map[string]bool{})
			Expect(err).NotTo(HaveOccurred())
			ns, _ := fake.GetNamespace(ctx, "c1", "team-a")
			Expect(ns.ProjectID).To(Equal("c1:p-mine"))
		})

		It("skips tombstoned namespaces entirely", func() {
			err := r.Step(ctx, cr, "team-a", params, map[string]bool{"team-a": true})
			Expect(err).NotTo(HaveOccurred())
			ns, _ := fake.GetNamespace(ctx, "c1", "team-a")
			Expect(ns).To(BeNil())
		})

		It("moves a namespace assigned to a different project when update is permitted", func() {
			fake.SeedNamespace(&platform.Namespace{Name: "team-a", ClusterID: "c1", ProjectID: "c1:p-other"})
			err := r.Step(ctx, cr, "team-a", params, map[string]bool{})
			Expect(err).NotTo(HaveOccurred())
			ns, _ := fake.GetNamespace(ctx, "c1", "team-a")
			Expect(ns.ProjectID).To(Equal("c1:p-mine"))
		})

		It("returns a Conflict and sets the Error phase when the namespace is claimed by another CR", func() {
			other := &rancherdevopsv1.Project{
				ObjectMeta: metav1.ObjectMeta{Name: "other"},
				Spec:       rancherdevopsv1.ProjectSpec{Namespaces: []string{"team-a"}},
			}
			guardClient := fakeclient.NewClientBuilder().WithScheme(scheme).WithObjects(other).Build()
			r.Guard = &guard.Guard{Client: guardClient, Log: logr.Discard()}
			fake.SeedNamespace(&platform.Namespace{Name: "team-a", ClusterID: "c1", ProjectID: "c1:p-other"})

			err := r.Step(ctx, cr, "team-a", params, map[string]bool{})
			Expect(err).To(HaveOccurred())
			var conflict *namespacereconciler.Conflict
			Expect(err).To(BeAssignableToTypeOf(conflict))
			Expect(cr.Status.Phase).To(Equal(rancherdevopsv1.ProjectPhaseError))
		})
	})

	Describe("#Sweep", func() {
		It("deletes namespaces that left spec.namespaces when delete is armed and managed by us", func() {
			created, err := fake.CreateNamespace(ctx, "c1:p-mine", "stale")
			Expect(err).NotTo(HaveOccurred())
			Expect(created).NotTo(BeNil())

			params.CleanupNamespaces = true
			Expect(r.Sweep(ctx, cr, params)).To(Succeed())

			ns, _ := fake.GetNamespace(ctx, "c1", "stale")
			Expect(ns).To(BeNil())
		})

		It("neither deletes nor detaches namespaces not managed by this operator when delete is armed", func() {
			fake.SeedNamespace(&platform.Namespace{Name: "stale", ClusterID: "c1", ProjectID: "c1:p-mine"})
			params.CleanupNamespaces = true
			Expect(r.Sweep(ctx, cr, params)).To(Succeed())

			ns, _ := fake.GetNamespace(ctx, "c1", "stale")
			Expect(ns).NotTo(BeNil())
			Expect(ns.ProjectID).To(Equal("c1:p-mine"))
		})

		It("detaches managed namespaces that left spec when delete is not armed", func() {
			created, err := fake.CreateNamespace(ctx, "c1:p-mine", "stale")
			Expect(err).NotTo(HaveOccurred())
			Expect(created).NotTo(BeNil())

			params.CleanupNamespaces = false
			Expect(r.Sweep(ctx, cr, params)).To(Succeed())

			ns, _ := fake.GetNamespace(ctx, "c1", "stale")
			Expect(ns).NotTo(BeNil())
			Expect(ns.ProjectID).To(BeEmpty())
		})
	})

	Describe("#RecordManualRemovals", func() {
		It("tombstones spec namespaces that disappeared from the platform", func() {
			cr.Spec.Namespaces = []string{"team-a", "team-b"}
			fake.SeedNamespace(&platform.Namespace{Name: "team-a", ClusterID: "c1", ProjectID: "c1:p-mine"})

			tombstones := map[string]bool{}
			Expect(r.RecordManualRemovals(ctx, cr, params, tombstones)).To(Succeed())

			Expect(cr.Status.ManuallyRemovedNamespaces).To(ConsistOf("team-b"))
			Expect(tombstones["team-b"]).To(BeTrue())
			Expect(tombstones).NotTo(HaveKey("team-a"))
		})

		It("does not re-tombstone an already-tombstoned namespace", func() {
			cr.Spec.Namespaces = []string{"team-b"}
			tombstones := map[string]bool{"team-b": true}
			Expect(r.RecordManualRemovals(ctx, cr, params, tombstones)).To(Succeed())
			Expect(cr.Status.ManuallyRemovedNamespaces).To(BeEmpty())
		})
	})
})
