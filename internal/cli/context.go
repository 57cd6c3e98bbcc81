package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kweiss/healthrag/internal/assembler"
)

func init() {
	cmd := &cobra.Command{
		Use:   "context [query]",
		Short: "Assemble generation context for a query",
		Long:  "Merge knowledge search results, conversation memory, and the user profile into one context object. Session memories live only for the process lifetime; across invocations the context draws on long-term memory and the profile.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runContext,
	}

	cmd.Flags().StringP("session", "s", "", "Session id")
	cmd.Flags().StringP("user", "u", "", "User id")

	RootCmd.AddCommand(cmd)
}

func runContext(cmd *cobra.Command, args []string) {
	sessionID, _ := cmd.Flags().GetString("session")
	userID, _ := cmd.Flags().GetString("user")
	query := strings.Join(args, " ")

	cfg := loadConfig()
	log := newLogger(cfg)
	defer log.Sync()

	idx := openIndex(cfg, log)
	defer idx.Close()
	mem := openMemory(cfg, log)
	defer mem.Close()

	ctx := assembler.New(idx, mem, log).Build(cmd.Context(), assembler.Params{
		Query:     query,
		SessionID: sessionID,
		UserID:    userID,
	})

	b, _ := json.MarshalIndent(ctx, "", "  ")
	fmt.Println(string(b))
}
