package gateway

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const testKubeconfig = `apiVersion: v1
kind: Config
clusters:
- name: a
  cluster:
    server: https://a.example.com
- name: b
  cluster:
    server: https://b.example.com
contexts:
- name: ctx-a
  context:
    cluster: a
    user: u
- name: ctx-b
  context:
    cluster: b
    user: u
current-context: ctx-a
users:
- name: u
  user:
    token: dummy
`

var _ = Describe("BuildRESTConfig", func() {
	var path string

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), "kubeconfig")
		Expect(os.WriteFile(path, []byte(testKubeconfig), 0o600)).To(Succeed())
	})

	It("should use the current context of an explicit kubeconfig", func() {
		cfg, err := BuildRESTConfig(path, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Host).To(Equal("https://a.example.com"))
	})

	It("should honor an explicit context", func() {
		cfg, err := BuildRESTConfig(path, " ctx-b ")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Host).To(Equal("https://b.example.com"))
	})

	It("should fall back to $KUBECONFIG", func() {
		GinkgoT().Setenv("KUBECONFIG", path)

		cfg, err := BuildRESTConfig("", "ctx-b")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Host).To(Equal("https://b.example.com"))
	})

	It("should fail for a missing kubeconfig", func() {
		_, err := BuildRESTConfig(filepath.Join(GinkgoT().TempDir(), "nope"), "")
		Expect(err).To(HaveOccurred())
	})
})
