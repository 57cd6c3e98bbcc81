package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kweiss/healthrag/internal/knowledge"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ingest [content]",
		Short: "Ingest a document into the knowledge index",
		Long:  "Ingest a document. Content can be a positional arg, piped via stdin, or read from a file with --file.",
		Run:   runIngest,
	}

	cmd.Flags().StringP("title", "t", "", "Document title (required)")
	cmd.Flags().String("category", "general", "Category: medical_condition, treatment, symptom, prevention, wellness, general")
	cmd.Flags().String("source", "manual", "Document source")
	cmd.Flags().String("tags", "", "Comma-separated tags")
	cmd.Flags().StringP("file", "f", "", "Read content from file")

	cmd.MarkFlagRequired("title")

	RootCmd.AddCommand(cmd)
}

func runIngest(cmd *cobra.Command, args []string) {
	title, _ := cmd.Flags().GetString("title")
	category, _ := cmd.Flags().GetString("category")
	source, _ := cmd.Flags().GetString("source")
	tagsStr, _ := cmd.Flags().GetString("tags")
	file, _ := cmd.Flags().GetString("file")

	var content string
	switch {
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			exitErr("read file", err)
		}
		content = string(b)
	case len(args) > 0:
		content = strings.Join(args, " ")
	default:
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			content = string(b)
		}
	}

	if strings.TrimSpace(content) == "" {
		exitErr("ingest", fmt.Errorf("content is required (positional arg, stdin, or --file)"))
	}

	var tags []string
	if tagsStr != "" {
		for _, t := range strings.Split(tagsStr, ",") {
			t = strings.TrimSpace(t)
			if t != "" {
				tags = append(tags, t)
			}
		}
	}

	cfg := loadConfig()
	log := newLogger(cfg)
	defer log.Sync()

	idx := openIndex(cfg, log)
	defer idx.Close()

	doc, err := idx.AddDocument(cmd.Context(), knowledge.AddParams{
		Title:    title,
		Content:  strings.TrimSpace(content),
		Category: category,
		Source:   source,
		Tags:     tags,
	})
	if err != nil {
		exitErr("ingest", err)
	}

	b, _ := json.Marshal(doc)
	fmt.Println(string(b))
}
