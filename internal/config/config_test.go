// SPDX-FileCopyrightText: Rancher DevOps Operator contributors
//
// SPDX-License-Identifier: Apache-2.0

package config_test

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Jasonrve/rancher-devops-operator/internal/config"
)

var _ = Describe("Load", func() {
	AfterEach(func() {
		for _, k := range []string{"RANCHER_URL", "RANCHER_TOKEN", "RANCHER__URL", "OBSERVEMETHOD", "CLUSTERCHECKINTERVAL"} {
			Expect(os.Unsetenv(k)).To(Succeed())
		}
	})

	It("applies defaults when nothing is set", func() {
		cfg, err := config.Load("")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.ObserveMethod).To(Equal(config.ObserveMethodWatch))
		Expect(cfg.CleanupNamespaces).To(BeFalse())
		Expect(cfg.RancherAllowInsecureSSL).To(BeFalse())
		Expect(cfg.ClusterCheckInterval).To(Equal(5 * time.Minute))
		Expect(cfg.PollingInterval).To(Equal(2 * time.Minute))
	})

	It("reads dotted-style environment variables", func() {
		Expect(os.Setenv("RANCHER_URL", "https://rancher.example.com")).To(Succeed())
		Expect(os.Setenv("RANCHER_TOKEN", "token-abc")).To(Succeed())

		cfg, err := config.Load("")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.RancherURL).To(Equal("https://rancher.example.com"))
		Expect(cfg.RancherToken).To(Equal("token-abc"))
	})

	It("accepts the double-underscore environment spelling", func() {
		Expect(os.Setenv("RANCHER__URL", "https://rancher2.example.com")).To(Succeed())

		cfg, err := config.Load("")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.RancherURL).To(Equal("https://rancher2.example.com"))
	})

	It("rejects an invalid ObserveMethod", func() {
		Expect(os.Setenv("OBSERVEMETHOD", "bogus")).To(Succeed())

		_, err := config.Load("")
		Expect(err).To(HaveOccurred())
	})

	It("is case-insensitive on ObserveMethod", func() {
		Expect(os.Setenv("OBSERVEMETHOD", "POLL")).To(Succeed())

		cfg, err := config.Load("")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.ObserveMethod).To(Equal(config.ObserveMethodPoll))
	})

	It("honors a non-default ClusterCheckInterval in minutes", func() {
		Expect(os.Setenv("CLUSTERCHECKINTERVAL", "10")).To(Succeed())

		cfg, err := config.Load("")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.ClusterCheckInterval).To(Equal(10 * time.Minute))
	})
})
