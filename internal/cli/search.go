package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kweiss/healthrag/internal/knowledge"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the knowledge index",
		Long:  "Rank stored chunks against the query by blended semantic, keyword, and category relevance.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().IntP("limit", "l", knowledge.DefaultSearchLimit, "Max results")
	cmd.Flags().String("category", "", "Prefer chunks from this category")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	category, _ := cmd.Flags().GetString("category")
	query := strings.Join(args, " ")

	cfg := loadConfig()
	log := newLogger(cfg)
	defer log.Sync()

	idx := openIndex(cfg, log)
	defer idx.Close()

	results, err := idx.Search(cmd.Context(), knowledge.SearchParams{
		Query:    query,
		Limit:    limit,
		Category: category,
	})
	if err != nil {
		exitErr("search", err)
	}

	if len(results) == 0 {
		fmt.Println("[]")
		return
	}

	b, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(b))
}
