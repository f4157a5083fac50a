package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gogotex/gogotex/backend/docservice/internal/app"
	"github.com/gogotex/gogotex/backend/docservice/internal/config"
	"github.com/gogotex/gogotex/backend/docservice/internal/database"
	"github.com/gogotex/gogotex/backend/docservice/internal/document"
	"github.com/gogotex/gogotex/backend/docservice/internal/document/repository"
	"github.com/gogotex/gogotex/backend/docservice/internal/document/versions"
	"github.com/gogotex/gogotex/backend/docservice/internal/storage"
)

var (
	historyPage       int
	historyPageSize   int
	historyModifiedBy string
	historyArchived   int
)

var errMemoryHistory = errors.New("history needs a persistent store; the memory driver keeps nothing between processes")

// archivedVersions reads pruned versions back from object storage.
type archivedVersions interface {
	Load(ctx context.Context, documentID string, number int) (*document.Version, error)
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history [document id]",
		Short: "Show the version history of a document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("document id is required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := context.Background()
			if historyArchived > 0 {
				mio, err := storage.NewMinIOStorage(ctx, cfg.MinIO)
				if err != nil {
					return fmt.Errorf("version archive: %w", err)
				}
				return printArchived(ctx, cmd, storage.NewVersionArchive(mio), args[0], historyArchived)
			}
			if cfg.Store.Driver == config.DriverMemory {
				return errMemoryHistory
			}

			var client *mongo.Client
			if cfg.Store.Driver == config.DriverMongo {
				if client, err = database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout); err != nil {
					return err
				}
				defer func() { _ = client.Disconnect(ctx) }()
			}
			store, err := app.OpenStore(ctx, cfg, client)
			if err != nil {
				return err
			}
			defer store.Close()

			req := versions.PageRequest{Page: historyPage, PageSize: historyPageSize}
			req.Normalize(cfg.Versioning.DefaultPageSize, cfg.Versioning.MaxPageSize)
			rows, total, err := store.Repo.ListVersions(ctx, args[0], repository.VersionFilter{
				ModifiedBy: historyModifiedBy,
				Offset:     req.Offset(),
				Limit:      req.PageSize,
			})
			if err != nil {
				return err
			}

			tw := table.NewWriter()
			tw.Style().Options.DrawBorder = false
			tw.Style().Options.SeparateColumns = false
			tw.Style().Options.SeparateFooter = false
			tw.Style().Options.SeparateHeader = false
			tw.Style().Options.SeparateRows = false
			tw.AppendHeader(table.Row{"VERSION", "MODIFIED BY", "CREATED AT", "TITLE", "DESCRIPTION"})
			for _, v := range rows {
				tw.AppendRow(table.Row{
					v.VersionNumber,
					v.ModifiedBy,
					v.CreatedAt.Format(time.RFC3339),
					v.Title,
					v.ChangeDescription,
				})
			}
			tw.AppendFooter(table.Row{"TOTAL", total})
			cmd.Printf("%s\n", tw.Render())
			return nil
		},
	}
}

// printArchived prints one archived version, content included.
func printArchived(ctx context.Context, cmd *cobra.Command, archive archivedVersions, documentID string, number int) error {
	v, err := archive.Load(ctx, documentID, number)
	if err != nil {
		return fmt.Errorf("load archived version %d of %s: %w", number, documentID, err)
	}
	tw := table.NewWriter()
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateColumns = false
	tw.Style().Options.SeparateRows = false
	tw.AppendRows([]table.Row{
		{"VERSION", v.VersionNumber},
		{"MODIFIED BY", v.ModifiedBy},
		{"CREATED AT", v.CreatedAt.Format(time.RFC3339)},
		{"TITLE", v.Title},
		{"TYPE", v.Type},
		{"DESCRIPTION", v.ChangeDescription},
	})
	cmd.Printf("%s\n\n%s\n", tw.Render(), v.Content)
	return nil
}

func init() {
	cmd := newHistoryCmd()
	cmd.Flags().IntVar(&historyPage, "page", 1, "Page to show, starting at 1")
	cmd.Flags().IntVar(&historyPageSize, "size", 0, "Versions per page (default from VERSION_DEFAULT_PAGE_SIZE)")
	cmd.Flags().StringVar(&historyModifiedBy, "modified-by", "", "Only versions written by this user")
	cmd.Flags().IntVar(&historyArchived, "archived", 0, "Print this pruned version from the MinIO archive")
	rootCmd.AddCommand(cmd)
}
