// SPDX-FileCopyrightText: Rancher DevOps Operator contributors
//
// SPDX-License-Identifier: Apache-2.0

package member_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/go-logr/logr"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/tools/record"

	rancherdevopsv1 "github.com/Jasonrve/rancher-devops-operator/api/v1"
	memberreconciler "github.com/Jasonrve/rancher-devops-operator/internal/reconcile/member"
	"github.com/Jasonrve/rancher-devops-operator/internal/platform"
	"github.com/Jasonrve/rancher-devops-operator/internal/policy"
)

var _ = Describe("Reconciler", func() {
	var (
		fake     *platform.Fake
		cr       *rancherdevopsv1.Project
		r        *memberreconciler.Reconciler
		decision policy.Decision
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		fake = platform.NewFake()
		cr = &rancherdevopsv1.Project{ObjectMeta: metav1.ObjectMeta{Name: "mine"}}
		r = &memberreconciler.Reconciler{
			Platform: fake,
			Recorder: record.NewFakeRecorder(32),
			Log:      logr.Discard(),
		}
		decision = policy.Decision{AllowCreate: true}
	})

	It("creates a binding by principalId when none exists", func() {
		m := rancherdevopsv1.ProjectMember{PrincipalID: "user-abc123", Role: "project-owner"}
		err := r.Step(ctx, cr, m, "c1:p-mine", decision)
		Expect(err).NotTo(HaveOccurred())
		Expect(cr.Status.ConfiguredMembers).To(ConsistOf("user-abc123:project-owner"))

		members, _ := fake.GetProjectMembers(ctx, "c1:p-mine")
		Expect(members).To(HaveLen(1))
		Expect(members[0].UserPrincipalID).To(Equal("user-abc123"))
	})

	It("resolves principalName to a principalId before binding", func() {
		fake.SeedPrincipal("Alice", "user-alice")
		m := rancherdevopsv1.ProjectMember{PrincipalName: "Alice", Role: "project-member"}
		err := r.Step(ctx, cr, m, "c1:p-mine", decision)
		Expect(err).NotTo(HaveOccurred())
		Expect(cr.Status.ConfiguredMembers).To(ConsistOf("user-alice:project-member"))
	})

	It("fails when principalName cannot be resolved", func() {
		m := rancherdevopsv1.ProjectMember{PrincipalName: "ghost", Role: "project-member"}
		err := r.Step(ctx, cr, m, "c1:p-mine", decision)
		Expect(err).To(HaveOccurred())
		Expect(cr.Status.Phase).To(Equal(rancherdevopsv1.ProjectPhaseError))
	})

	It("is idempotent when a matching binding already exists", func() {
		_, err := fake.CreateProjectMember(ctx, "c1:p-mine", "user-abc123", "project-owner")
		Expect(err).NotTo(HaveOccurred())

		m := rancherdevopsv1.ProjectMember{PrincipalID: "user-abc123", Role: "project-owner"}
		Expect(r.Step(ctx, cr, m, "c1:p-mine", decision)).To(Succeed())

		members, _ := fake.GetProjectMembers(ctx, "c1:p-mine")
		Expect(members).To(HaveLen(1))
	})

	It("skips creating a missing binding when create is not permitted", func() {
		decision.AllowCreate = false
		m := rancherdevopsv1.ProjectMember{PrincipalID: "user-abc123", Role: "project-owner"}
		Expect(r.Step(ctx, cr, m, "c1:p-mine", decision)).To(Succeed())

		members, _ := fake.GetProjectMembers(ctx, "c1:p-mine")
		Expect(members).To(BeEmpty())
		Expect(cr.Status.ConfiguredMembers).To(BeEmpty())
	})
})
