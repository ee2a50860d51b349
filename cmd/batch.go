package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/intel-engine/internal/batch"
	"github.com/sells-group/intel-engine/internal/model"
	"github.com/sells-group/intel-engine/pkg/notion"
)

var (
	batchCompanies    []string
	batchMode         string
	batchPriority     string
	batchExportFormat string
	batchExportPath   string
	batchWait         bool
	batchFromNotion   bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Submit a batch of companies for extraction",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		go e.Runtime.Start(ctx)
		defer e.Runtime.Shutdown()
		go e.Batch.Start(ctx)
		defer e.Batch.Shutdown()

		names := make([]string, 0, len(batchCompanies))
		for _, n := range batchCompanies {
			if trimmed := strings.TrimSpace(n); trimmed != "" {
				names = append(names, trimmed)
			}
		}

		if batchFromNotion {
			if e.Notion == nil {
				return eris.New("--from-notion requires notion.token to be configured")
			}
			pending, err := notion.QueryPendingCompanies(ctx, e.Notion, e.NotionDB)
			if err != nil {
				return eris.Wrap(err, "query pending companies from notion")
			}
			names = append(names, pending...)
			zap.L().Info("batch: seeded companies from notion", zap.Int("count", len(pending)))
		}

		if len(names) == 0 {
			return eris.New("no company names given: pass --companies or --from-notion")
		}

		batchID, err := e.Batch.Submit(ctx, batch.Request{
			CompanyNames: names,
			Mode:         model.ExtractionMode(batchMode),
			Priority:     model.PriorityBucket(batchPriority),
			ExportFormat: model.ExportFormat(batchExportFormat),
			ExportPath:   batchExportPath,
		})
		if err != nil {
			return eris.Wrap(err, "submit batch")
		}

		zap.L().Info("batch submitted", zap.String("batch_id", batchID), zap.Int("companies", len(names)))

		if !batchWait {
			return json.NewEncoder(os.Stdout).Encode(map[string]string{"batch_id": batchID})
		}

		for {
			st, ok := e.Batch.Status(batchID)
			if !ok {
				return eris.New("batch disappeared")
			}
			if st.State == model.BatchCompleted || st.State == model.BatchFailed || st.State == model.BatchPartiallyCompleted {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}
	},
}

func init() {
	batchCmd.Flags().StringSliceVar(&batchCompanies, "companies", nil, "comma-separated company names (required unless --from-notion is set)")
	batchCmd.Flags().StringVar(&batchMode, "mode", string(model.ModeComprehensive), "extraction mode")
	batchCmd.Flags().StringVar(&batchPriority, "priority", string(model.PriorityNormal), "queue priority")
	batchCmd.Flags().StringVar(&batchExportFormat, "export-format", string(model.ExportJSON), "export format: json, csv, table")
	batchCmd.Flags().StringVar(&batchExportPath, "export-path", "", "file path to write the export to")
	batchCmd.Flags().BoolVar(&batchWait, "wait", false, "block until the batch settles, printing its final state")
	batchCmd.Flags().BoolVar(&batchFromNotion, "from-notion", false, "seed company names from the configured Notion database's Pending rows, in addition to --companies")
	rootCmd.AddCommand(batchCmd)
}
