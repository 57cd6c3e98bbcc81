package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kweiss/healthrag/internal/knowledge"
	"github.com/kweiss/healthrag/internal/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show knowledge and memory statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	log := newLogger(cfg)
	defer log.Sync()

	idx := openIndex(cfg, log)
	defer idx.Close()
	mem := openMemory(cfg, log)
	defer mem.Close()

	out := struct {
		Knowledge knowledge.Stats `json:"knowledge"`
		Memory    memory.Stats    `json:"memory"`
	}{idx.Stats(), mem.Stats()}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}
