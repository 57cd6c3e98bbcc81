package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the knowledge index or erase a user's data",
		Long:  "With --knowledge, drop all documents, chunks, and embeddings. With --user, remove that user's profile, long-term memories, and session entries.",
		Run:   runClear,
	}

	cmd.Flags().Bool("knowledge", false, "Clear the knowledge index")
	cmd.Flags().StringP("user", "u", "", "Erase all data for this user id")

	RootCmd.AddCommand(cmd)
}

func runClear(cmd *cobra.Command, args []string) {
	clearKnowledge, _ := cmd.Flags().GetBool("knowledge")
	userID, _ := cmd.Flags().GetString("user")

	if !clearKnowledge && userID == "" {
		exitErr("clear", fmt.Errorf("nothing to do: pass --knowledge and/or --user"))
	}

	cfg := loadConfig()
	log := newLogger(cfg)
	defer log.Sync()

	if clearKnowledge {
		idx := openIndex(cfg, log)
		defer idx.Close()
		if err := idx.Clear(cmd.Context()); err != nil {
			exitErr("clear knowledge", err)
		}
		fmt.Println("knowledge index cleared")
	}

	if userID != "" {
		mem := openMemory(cfg, log)
		defer mem.Close()
		if err := mem.ClearUserData(cmd.Context(), userID); err != nil {
			exitErr("clear user data", err)
		}
		fmt.Printf("user data cleared for %s\n", userID)
	}
}
