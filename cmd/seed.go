package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/lessonforge-backend/internal/app"
	"github.com/yungbote/lessonforge-backend/internal/modules/standards"
)

var seedCmd = &cobra.Command{
	Use:   "seed-standards",
	Short: "Embed curriculum standards and upsert them into qdrant",
	Long: `seed-standards reads a YAML list of standards (or the bundled samples when
--file is omitted), embeds their text and upserts them into the qdrant collection.
Requires QDRANT_URL and OPENAI_API_KEY.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		items, err := loadStandards(path)
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			if a.Services.Standards == nil {
				return fmt.Errorf("standards retrieval is disabled; set QDRANT_URL and OPENAI_API_KEY")
			}
			n, err := a.Services.Standards.Seed(ctx, items)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Seeded %d of %d standards\n", n, len(items))
			return nil
		})
	},
}

func init() {
	seedCmd.Flags().String("file", "", "YAML file of standards (default: bundled samples)")
}

func loadStandards(path string) ([]standards.Standard, error) {
	if path == "" {
		return standards.Samples()
	}
	return standards.LoadFile(path)
}
