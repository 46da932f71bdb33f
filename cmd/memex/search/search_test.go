package searchcmder_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	addcmder "github.com/driftwood-labs/memex/cmd/memex/add"
	searchcmder "github.com/driftwood-labs/memex/cmd/memex/search"
)

func rootWithFlags() *cobra.Command {
	root := &cobra.Command{Use: "memex"}
	root.PersistentFlags().BoolP("debug", "d", false, "")
	root.PersistentFlags().StringP("config-dir", "c", "", "")
	return root
}

func TestSearch(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "search Suite")
}

var _ = Describe("NewSearchCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := searchcmder.NewSearchCmd()
		Expect(cmd.Use).To(Equal("search <query>"))
	})

	It("requires exactly one argument", func() {
		cmd := searchcmder.NewSearchCmd()
		Expect(cmd.Args(cmd, []string{})).To(HaveOccurred())
		Expect(cmd.Args(cmd, []string{"query"})).NotTo(HaveOccurred())
		Expect(cmd.Args(cmd, []string{"a", "b"})).To(HaveOccurred())
	})
})

var _ = Describe("search command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "memex-search-test-*")
		Expect(err).NotTo(HaveOccurred())
		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.MkdirAll(filepath.Join(tmpDir, ".memex"), 0o755)).To(Succeed())
		Expect(os.Chdir(tmpDir)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	It("finds a previously added memory by text fallback", func() {
		addRoot := rootWithFlags()
		addRoot.AddCommand(addcmder.NewAddCmd())
		addRoot.SetArgs([]string{"add", "I like espresso", "--user", "u1"})
		Expect(addRoot.Execute()).NotTo(HaveOccurred())

		searchRoot := rootWithFlags()
		searchRoot.AddCommand(searchcmder.NewSearchCmd())
		var out bytes.Buffer
		searchRoot.SetOut(&out)
		searchRoot.SetArgs([]string{"search", "espresso", "--user", "u1"})
		Expect(searchRoot.Execute()).NotTo(HaveOccurred())
		Expect(out.String()).To(ContainSubstring("espresso"))
	})

	It("reports no matches for an empty store", func() {
		root := rootWithFlags()
		root.AddCommand(searchcmder.NewSearchCmd())
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetArgs([]string{"search", "nothing here", "--user", "u1"})
		Expect(root.Execute()).NotTo(HaveOccurred())
		Expect(out.String()).To(ContainSubstring("No matching memories"))
	})
})
