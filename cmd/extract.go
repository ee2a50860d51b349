package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/intel-engine/internal/model"
)

var (
	extractCompany  string
	extractDomain   string
	extractMode     string
	extractCountry  string
	extractLanguage string
	extractPriority string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract structured intelligence for a single company",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		req, err := model.NewRequest(model.RequestParams{
			CompanyName: extractCompany,
			Domain:      extractDomain,
			Mode:        model.ExtractionMode(extractMode),
			Country:     extractCountry,
			Language:    extractLanguage,
		})
		if err != nil {
			return eris.Wrap(err, "build request")
		}

		go e.Runtime.Start(ctx)
		defer e.Runtime.Shutdown()

		taskID := e.Runtime.Submit(req, model.PriorityBucket(extractPriority))
		results := e.Runtime.WaitFor(ctx, []string{taskID}, req.Timeout()+5*time.Second)

		task, ok := results[taskID]
		if !ok {
			return eris.New("extraction timed out")
		}

		zap.L().Info("extraction complete",
			zap.String("task_id", taskID),
			zap.String("company", extractCompany),
			zap.String("state", string(task.State)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(task)
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractCompany, "company", "", "company name (required)")
	extractCmd.Flags().StringVar(&extractDomain, "domain", "", "known company domain")
	extractCmd.Flags().StringVar(&extractMode, "mode", string(model.ModeComprehensive), "extraction mode")
	extractCmd.Flags().StringVar(&extractCountry, "country", "", "ISO-3166 alpha-2 country hint")
	extractCmd.Flags().StringVar(&extractLanguage, "language", "", "ISO-639-1 language hint")
	extractCmd.Flags().StringVar(&extractPriority, "priority", string(model.PriorityNormal), "queue priority")
	_ = extractCmd.MarkFlagRequired("company")
	rootCmd.AddCommand(extractCmd)
}
