package addcmder_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	addcmder "github.com/driftwood-labs/memex/cmd/memex/add"
)

// rootWithFlags stands in for the memex root command's persistent flags,
// which addcmder.run reads via cmd.Flags().GetBool/GetString.
func rootWithFlags() *cobra.Command {
	root := &cobra.Command{Use: "memex"}
	root.PersistentFlags().BoolP("debug", "d", false, "")
	root.PersistentFlags().StringP("config-dir", "c", "", "")
	return root
}

func TestAdd(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "add Suite")
}

var _ = Describe("NewAddCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := addcmder.NewAddCmd()
		Expect(cmd.Use).To(Equal("add <text>"))
	})

	It("requires exactly one argument", func() {
		cmd := addcmder.NewAddCmd()
		Expect(cmd.Args(cmd, []string{})).To(HaveOccurred())
		Expect(cmd.Args(cmd, []string{"only one"})).NotTo(HaveOccurred())
		Expect(cmd.Args(cmd, []string{"one", "two"})).To(HaveOccurred())
	})
})

var _ = Describe("add command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "memex-add-test-*")
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

	It("adds a memory against the default sqlite store", func() {
		root := rootWithFlags()
		cmd := addcmder.NewAddCmd()
		root.AddCommand(cmd)

		var out bytes.Buffer
		root.SetOut(&out)
		root.SetArgs([]string{"add", "I like espresso", "--user", "u1"})
		Expect(root.Execute()).NotTo(HaveOccurred())
		Expect(out.String()).To(ContainSubstring("I like espresso"))
	})
})
