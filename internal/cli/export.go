package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kweiss/healthrag/internal/model"
)

// backup is the wire shape shared by the export and import commands.
type backup struct {
	ExportedAt time.Time           `json:"exported_at"`
	Documents  []model.Document    `json:"documents"`
	LongTerm   []model.MemoryEntry `json:"long_term_memories"`
	Profiles   []model.UserProfile `json:"user_profiles"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export documents, long-term memories, and profiles as JSON",
		Long:  "Dump the knowledge documents, long-term memories, and user profiles for backup or analysis. Writes to stdout unless --output is given.",
		Run:   runExport,
	}

	cmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	output, _ := cmd.Flags().GetString("output")

	cfg := loadConfig()
	log := newLogger(cfg)
	defer log.Sync()

	idx := openIndex(cfg, log)
	defer idx.Close()
	mem := openMemory(cfg, log)
	defer mem.Close()

	dump := backup{
		ExportedAt: time.Now().UTC(),
		Documents:  idx.Documents(),
		LongTerm:   mem.LongTermEntries(),
		Profiles:   mem.Profiles(),
	}

	b, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		exitErr("marshal export", err)
	}

	if output == "" {
		fmt.Println(string(b))
		return
	}
	if err := os.WriteFile(output, b, 0o644); err != nil {
		exitErr("write export", err)
	}
	fmt.Printf("exported to %s\n", output)
}
