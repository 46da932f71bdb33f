package historycmder_test

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/spf13/cobra"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	addcmder "github.com/driftwood-labs/memex/cmd/memex/add"
	historycmder "github.com/driftwood-labs/memex/cmd/memex/history"
)

func rootWithFlags() *cobra.Command {
	root := &cobra.Command{Use: "memex"}
	root.PersistentFlags().BoolP("debug", "d", false, "")
	root.PersistentFlags().StringP("config-dir", "c", "", "")
	return root
}

func TestHistory(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "history Suite")
}

var _ = Describe("NewHistoryCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := historycmder.NewHistoryCmd()
		Expect(cmd.Use).To(Equal("history <id>"))
	})

	It("requires exactly one argument", func() {
		cmd := historycmder.NewHistoryCmd()
		Expect(cmd.Args(cmd, []string{})).To(HaveOccurred())
		Expect(cmd.Args(cmd, []string{"id"})).NotTo(HaveOccurred())
		Expect(cmd.Args(cmd, []string{"id", "extra"})).To(HaveOccurred())
	})
})

var _ = Describe("history command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "memex-history-test-*")
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

	It("shows the ADD event for a newly created memory", func() {
		addRoot := rootWithFlags()
		addRoot.AddCommand(addcmder.NewAddCmd())
		var addOut bytes.Buffer
		addRoot.SetOut(&addOut)
		addRoot.SetArgs([]string{"add", "I like espresso", "--user", "u1"})
		Expect(addRoot.Execute()).NotTo(HaveOccurred())

		re := regexp.MustCompile(`Added memory (\S+):`)
		match := re.FindStringSubmatch(addOut.String())
		Expect(match).To(HaveLen(2))
		id := match[1]

		root := rootWithFlags()
		root.AddCommand(historycmder.NewHistoryCmd())
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetArgs([]string{"history", id})
		Expect(root.Execute()).NotTo(HaveOccurred())
		Expect(out.String()).To(ContainSubstring("ADD"))
	})

	It("reports no history for an unknown id", func() {
		root := rootWithFlags()
		root.AddCommand(historycmder.NewHistoryCmd())
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetArgs([]string{"history", "nonexistent-id"})
		Expect(root.Execute()).NotTo(HaveOccurred())
		Expect(out.String()).To(ContainSubstring("No history found"))
	})
})
