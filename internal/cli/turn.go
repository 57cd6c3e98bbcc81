package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kweiss/healthrag/internal/memory"
	"github.com/kweiss/healthrag/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "turn [message]",
		Short: "Record a conversation turn",
		Long:  "Record one user/assistant exchange into session memory. High-relevance or priority-keyword turns are promoted to long-term storage.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runTurn,
	}

	cmd.Flags().StringP("session", "s", "", "Session id (generated when empty)")
	cmd.Flags().StringP("user", "u", "", "User id")
	cmd.Flags().StringP("response", "r", "", "Assistant response text")
	cmd.Flags().String("context", "", "JSON context map")

	RootCmd.AddCommand(cmd)
}

func runTurn(cmd *cobra.Command, args []string) {
	sessionID, _ := cmd.Flags().GetString("session")
	userID, _ := cmd.Flags().GetString("user")
	response, _ := cmd.Flags().GetString("response")
	contextJSON, _ := cmd.Flags().GetString("context")
	message := strings.Join(args, " ")

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	var turnContext map[string]string
	if contextJSON != "" {
		if err := json.Unmarshal([]byte(contextJSON), &turnContext); err != nil {
			exitErr("parse context", err)
		}
	}

	cfg := loadConfig()
	log := newLogger(cfg)
	defer log.Sync()

	mem := openMemory(cfg, log)
	defer mem.Close()

	entry, promoted, err := mem.AddTurn(cmd.Context(), memory.TurnParams{
		SessionID:         sessionID,
		UserID:            userID,
		UserMessage:       message,
		AssistantResponse: response,
		Context:           turnContext,
	})
	if err != nil {
		exitErr("turn", err)
	}

	out := struct {
		Entry    *model.MemoryEntry `json:"entry"`
		Promoted bool               `json:"promoted"`
	}{entry, promoted}
	b, _ := json.Marshal(out)
	fmt.Println(string(b))
}
