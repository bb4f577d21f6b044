// SPDX-FileCopyrightText: Rancher DevOps Operator contributors
//
// SPDX-License-Identifier: Apache-2.0

package observe

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/go-logr/logr"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/record"
	fakeclient "sigs.k8s.io/controller-runtime/pkg/client/fake"

	rancherdevopsv1 "github.com/Jasonrve/rancher-devops-operator/api/v1"
	"github.com/Jasonrve/rancher-devops-operator/internal/statuswriter"
)

var _ = Describe("hasObservePolicy", func() {
	It("is true only when Observe is present", func() {
		Expect(hasObservePolicy([]rancherdevopsv1.ManagementPolicy{"Create"})).To(BeFalse())
		Expect(hasObservePolicy([]rancherdevopsv1.ManagementPolicy{"Create", "Observe"})).To(BeTrue())
		Expect(hasObservePolicy(nil)).To(BeFalse())
	})
})

var _ = Describe("containsFold", func() {
	It("matches case-insensitively", func() {
		Expect(containsFold([]string{"Team-A"}, "team-a")).To(BeTrue())
		Expect(containsFold([]string{"team-b"}, "team-a")).To(BeFalse())
	})
})

var _ = Describe("processNamespaceForProjects", func() {
	var (
		scheme *runtime.Scheme
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		scheme = runtime.NewScheme()
		utilruntime.Must(rancherdevopsv1.AddToScheme(scheme))
	})

	It("appends the namespace to the first matching CR that doesn't already have it", func() {
		cr := &rancherdevopsv1.Project{
			ObjectMeta: metav1.ObjectMeta{Name: "p1"},
			Spec:       rancherdevopsv1.ProjectSpec{ClusterName: "downstream-1"},
			Status:     rancherdevopsv1.ProjectStatus{ProjectID: "c1:p-1"},
		}
		c := fakeclient.NewClientBuilder().WithScheme(scheme).WithObjects(cr).Build()
		l := &Loop{
			Client:   c,
			Status:   &statuswriter.Writer{Client: c},
			Recorder: record.NewFakeRecorder(8),
			Log:      logr.Discard(),
		}

		l.processNamespaceForProjects(ctx, "downstream-1", "team-a", "c1:p-1", []rancherdevopsv1.Project{*cr})

		fresh := &rancherdevopsv1.Project{}
		Expect(c.Get(ctx, types.NamespacedName{Name: "p1"}, fresh)).To(Succeed())
		Expect(fresh.Spec.Namespaces).To(ConsistOf("team-a"))
	})

	It("is a no-op when the namespace is already recorded", func() {
		cr := &rancherdevopsv1.Project{
			ObjectMeta: metav1.ObjectMeta{Name: "p1"},
			Spec:       rancherdevopsv1.ProjectSpec{ClusterName: "downstream-1", Namespaces: []string{"team-a"}},
			Status:     rancherdevopsv1.ProjectStatus{ProjectID: "c1:p-1"},
		}
		c := fakeclient.NewClientBuilder().WithScheme(scheme).WithObjects(cr).Build()
		l := &Loop{
			Client:   c,
			Status:   &statuswriter.Writer{Client: c},
			Recorder: record.NewFakeRecorder(8),
			Log:      logr.Discard(),
		}

		l.processNamespaceForProjects(ctx, "downstream-1", "TEAM-A", "c1:p-1", []rancherdevopsv1.Project{*cr})

		fresh := &rancherdevopsv1.Project{}
		Expect(c.Get(ctx, types.NamespacedName{Name: "p1"}, fresh)).To(Succeed())
		Expect(fresh.Spec.Namespaces).To(ConsistOf("team-a"))
	})

	It("ignores CRs bound to a different project", func() {
		cr := &rancherdevopsv1.Project{
			ObjectMeta: metav1.ObjectMeta{Name: "p1"},
			Spec:       rancherdevopsv1.ProjectSpec{ClusterName: "downstream-1"},
			Status:     rancherdevopsv1.ProjectStatus{ProjectID: "c1:p-other"},
		}
		c := fakeclient.NewClientBuilder().WithScheme(scheme).WithObjects(cr).Build()
		l := &Loop{
			Client:   c,
			Status:   &statuswriter.Writer{Client: c},
			Recorder: record.NewFakeRecorder(8),
			Log:      logr.Discard(),
		}

		l.processNamespaceForProjects(ctx, "downstream-1", "team-a", "c1:p-1", []rancherdevopsv1.Project{*cr})

		fresh := &rancherdevopsv1.Project{}
		Expect(c.Get(ctx, types.NamespacedName{Name: "p1"}, fresh)).To(Succeed())
		Expect(fresh.Spec.Namespaces).To(BeEmpty())
	})
})
