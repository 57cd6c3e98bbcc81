package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "profile [user-id]",
		Short: "Show a user's derived profile",
		Long:  "Show the accumulated counters and derived personality, style, and top-interest fields for a user.",
		Args:  cobra.ExactArgs(1),
		Run:   runProfile,
	}

	RootCmd.AddCommand(cmd)
}

func runProfile(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	log := newLogger(cfg)
	defer log.Sync()

	mem := openMemory(cfg, log)
	defer mem.Close()

	profile := mem.UserProfile(args[0])
	if profile == nil {
		fmt.Println("{}")
		return
	}

	b, _ := json.MarshalIndent(profile, "", "  ")
	fmt.Println(string(b))
}
