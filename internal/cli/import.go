package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kweiss/healthrag/internal/knowledge"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import an exported backup from stdin or a file",
		Long:  "Read a JSON backup produced by the export command and merge it in. Long-term memories are added unless already present, profiles replace stored ones, and documents are re-ingested through the index.",
		Run:   runImport,
	}

	cmd.Flags().StringP("file", "f", "", "Read backup from file (default: stdin)")
	cmd.Flags().Bool("skip-documents", false, "Merge memories and profiles only")

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	file, _ := cmd.Flags().GetString("file")
	skipDocs, _ := cmd.Flags().GetBool("skip-documents")

	var data []byte
	var err error
	if file != "" {
		data, err = os.ReadFile(file)
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		exitErr("read backup", err)
	}

	var dump backup
	if err := json.Unmarshal(data, &dump); err != nil {
		exitErr("parse backup", err)
	}

	cfg := loadConfig()
	log := newLogger(cfg)
	defer log.Sync()

	mem := openMemory(cfg, log)
	defer mem.Close()

	entries, profiles, err := mem.Import(cmd.Context(), dump.LongTerm, dump.Profiles)
	if err != nil {
		exitErr("import", err)
	}

	documents := 0
	if !skipDocs && len(dump.Documents) > 0 {
		idx := openIndex(cfg, log)
		defer idx.Close()
		for _, d := range dump.Documents {
			if _, err := idx.AddDocument(cmd.Context(), knowledge.AddParams{
				Title:    d.Title,
				Content:  d.Content,
				Category: d.Category,
				Source:   d.Source,
				Tags:     d.Tags,
			}); err != nil {
				exitErr("import document", err)
			}
			documents++
		}
	}

	fmt.Printf("{\"ok\":true,\"entries\":%d,\"profiles\":%d,\"documents\":%d}\n", entries, profiles, documents)
}
