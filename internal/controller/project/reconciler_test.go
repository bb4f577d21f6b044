// SPDX-FileCopyrightText: Rancher DevOps Operator contributors
//
// SPDX-License-Identifier: Apache-2.0

package project_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/go-logr/logr"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	fakeclient "sigs.k8s.io/controller-runtime/pkg/client/fake"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	rancherdevopsv1 "github.com/Jasonrve/rancher-devops-operator/api/v1"
	projectcontroller "github.com/Jasonrve/rancher-devops-operator/internal/controller/project"
	"github.com/Jasonrve/rancher-devops-operator/internal/guard"
	memberreconciler "github.com/Jasonrve/rancher-devops-operator/internal/reconcile/member"
	namespacereconciler "github.com/Jasonrve/rancher-devops-operator/internal/reconcile/namespace"
	"github.com/Jasonrve/rancher-devops-operator/internal/platform"
	"github.com/Jasonrve/rancher-devops-operator/internal/statuswriter"
)

var _ = Describe("Reconciler", func() {
	var (
		scheme *runtime.Scheme
		fake   *platform.Fake
		ctx    context.Context
	)

	newReconciler := func(cr *rancherdevopsv1.Project) (*projectcontroller.Reconciler, client.Client) {
		cl := fakeclient.NewClientBuilder().
			WithScheme(scheme).
			WithStatusSubresource(&rancherdevopsv1.Project{}).
			WithObjects(cr).
			Build()
		statusWriter := &statuswriter.Writer{Client: cl}
		ownershipGuard := &guard.Guard{Client: cl, Log: logr.Discard()}
		return &projectcontroller.Reconciler{
			Client:            cl,
			Platform:          fake,
			Recorder:          record.NewFakeRecorder(64),
			CleanupNamespaces: true,
			Status:            statusWriter,
			Namespaces: &namespacereconciler.Reconciler{
				Platform: fake,
				Guard:    ownershipGuard,
				Recorder: record.NewFakeRecorder(64),
				Log:      logr.Discard(),
			},
			Members: &memberreconciler.Reconciler{
				Platform: fake,
				Recorder: record.NewFakeRecorder(64),
				Log:      logr.Discard(),
			},
		}, cl
	}

	BeforeEach(func() {
		ctx = logf.IntoContext(context.Background(), logr.Discard())
		scheme = runtime.NewScheme()
		utilruntime.Must(rancherdevopsv1.AddToScheme(scheme))
		fake = platform.NewFake()
		fake.SeedCluster("downstream-1", "c1")
	})

	It("creates a platform project, adds a finalizer, and goes Active", func() {
		cr := &rancherdevopsv1.Project{
			ObjectMeta: metav1.ObjectMeta{Name: "team-a"},
			Spec: rancherdevopsv1.ProjectSpec{
				ClusterName: "downstream-1",
				Namespaces:  []string{"team-a-ns"},
			},
		}
		r, cl := newReconciler(cr)

		_, err := r.Reconcile(ctx, ctrl.Request{NamespacedName: types.NamespacedName{Name: "team-a"}})
		Expect(err).NotTo(HaveOccurred())

		fresh := &rancherdevopsv1.Project{}
		Expect(cl.Get(ctx, types.NamespacedName{Name: "team-a"}, fresh)).To(Succeed())
		Expect(fresh.Status.Phase).To(Equal(rancherdevopsv1.ProjectPhaseActive))
		Expect(fresh.Status.ProjectID).NotTo(BeEmpty())
		Expect(fresh.Status.CreatedNamespaces).To(ConsistOf("team-a-ns"))
		Expect(fresh.Finalizers).To(ContainElement(projectcontroller.FinalizerName))

		ns, err := fake.GetNamespace(ctx, "c1", "team-a-ns")
		Expect(err).NotTo(HaveOccurred())
		Expect(ns).NotTo(BeNil())
	})

	It("stays Pending and does not create a project when Create is not permitted", func() {
		cr := &rancherdevopsv1.Project{
			ObjectMeta: metav1.ObjectMeta{Name: "team-b"},
			Spec: rancherdevopsv1.ProjectSpec{
				ClusterName:        "downstream-1",
				ManagementPolicies: []rancherdevopsv1.ManagementPolicy{"Observe"},
			},
		}
		r, cl := newReconciler(cr)

		_, err := r.Reconcile(ctx, ctrl.Request{NamespacedName: types.NamespacedName{Name: "team-b"}})
		Expect(err).NotTo(HaveOccurred())

		fresh := &rancherdevopsv1.Project{}
		Expect(cl.Get(ctx, types.NamespacedName{Name: "team-b"}, fresh)).To(Succeed())
		Expect(fresh.Status.Phase).To(Equal(rancherdevopsv1.ProjectPhasePending))
		Expect(fresh.Status.ProjectID).To(BeEmpty())
	})

	It("fails with an Error phase when the cluster cannot be resolved", func() {
		cr := &rancherdevopsv1.Project{
			ObjectMeta: metav1.ObjectMeta{Name: "team-c"},
			Spec:       rancherdevopsv1.ProjectSpec{ClusterName: "does-not-exist"},
		}
		r, cl := newReconciler(cr)

		_, err := r.Reconcile(ctx, ctrl.Request{NamespacedName: types.NamespacedName{Name: "team-c"}})
		Expect(err).To(HaveOccurred())

		fresh := &rancherdevopsv1.Project{}
		Expect(cl.Get(ctx, types.NamespacedName{Name: "team-c"}, fresh)).To(Succeed())
		Expect(fresh.Status.Phase).To(Equal(rancherdevopsv1.ProjectPhaseError))
		Expect(fresh.Status.ErrorMessage).NotTo(BeEmpty())
	})

	It("deletes the platform project and removes the finalizer on CR deletion when Delete is permitted", func() {
		now := metav1.Now()
		cr := &rancherdevopsv1.Project{
			ObjectMeta: metav1.ObjectMeta{
				Name:              "team-d",
				Finalizers:        []string{projectcontroller.FinalizerName},
				DeletionTimestamp: &now,
			},
			Spec: rancherdevopsv1.ProjectSpec{
				ClusterName:        "downstream-1",
				ManagementPolicies: []rancherdevopsv1.ManagementPolicy{"Create", "Delete"},
			},
			Status: rancherdevopsv1.ProjectStatus{
				ClusterID: "c1",
				ProjectID: "c1:p-existing",
			},
		}
		fake.SeedProject(&platform.Project{
			ID:          "c1:p-existing",
			ClusterID:   "c1",
			Name:        "team-d",
			Annotations: map[string]string{platform.ManagedByKey: platform.ManagedByValue},
		})

		r, cl := newReconciler(cr)

		_, err := r.Reconcile(ctx, ctrl.Request{NamespacedName: types.NamespacedName{Name: "team-d"}})
		Expect(err).NotTo(HaveOccurred())

		fresh := &rancherdevopsv1.Project{}
		getErr := cl.Get(ctx, types.NamespacedName{Name: "team-d"}, fresh)
		Expect(getErr).To(HaveOccurred())

		p, err := fake.GetProjectByName(ctx, "c1", "team-d")
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeNil())
	})

	It("binds to an existing platform project of the same name even when Create is not permitted", func() {
		fake.SeedProject(&platform.Project{
			ID:          "c1:p-existing",
			ClusterID:   "c1",
			Name:        "team-e",
			Annotations: map[string]string{platform.ManagedByKey: platform.ManagedByValue},
		})
		cr := &rancherdevopsv1.Project{
			ObjectMeta: metav1.ObjectMeta{Name: "team-e"},
			Spec: rancherdevopsv1.ProjectSpec{
				ClusterName:        "downstream-1",
				ManagementPolicies: []rancherdevopsv1.ManagementPolicy{"Observe"},
			},
		}
		r, cl := newReconciler(cr)

		recorder := r.Recorder.(*record.FakeRecorder)

		_, err := r.Reconcile(ctx, ctrl.Request{NamespacedName: types.NamespacedName{Name: "team-e"}})
		Expect(err).NotTo(HaveOccurred())

		fresh := &rancherdevopsv1.Project{}
		Expect(cl.Get(ctx, types.NamespacedName{Name: "team-e"}, fresh)).To(Succeed())
		Expect(fresh.Status.ProjectID).To(Equal("c1:p-existing"))
		Expect(fresh.Status.Phase).To(Equal(rancherdevopsv1.ProjectPhasePending))

		var events []string
		draining := true
		for draining {
			select {
			case e := <-recorder.Events:
				events = append(events, e)
			default:
				draining = false
			}
		}
		Expect(events).To(ContainElement(ContainSubstring("ProjectTakenOver")))
	})
})
