package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/turtacn/leadscore/internal/app"
	domain "github.com/turtacn/leadscore/internal/domain/scoring"
	"github.com/turtacn/leadscore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/leadscore/pkg/errors"
)

// localBucket is the pseudo bucket of documents read with --file.
const localBucket = "local"

type scoreOptions struct {
	file    string
	bucket  string
	key     string
	deliver bool
}

// fileBlobs reads batch documents from the local filesystem.
type fileBlobs struct{}

func (fileBlobs) ReadJSON(_ context.Context, _, path string, dest interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.IOError("failed to read batch file", err).WithDetail(path)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return errors.ParseError("batch file is not valid JSON", err).WithDetail(path)
	}
	return nil
}

func newScoreCmd(overrides app.Options) *cobra.Command {
	opts := &scoreOptions{}

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score one batch document and print the results",
		Long: "Score runs a batch through the same pipeline as the service, synchronously.\n" +
			"The document is read from --file or from --bucket/--key in object storage.\n" +
			"Results are posted to the document's callback only with --deliver.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return runScore(cmd, cliCtx, opts, overrides)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "local batch document (mutually exclusive with --bucket/--key)")
	cmd.Flags().StringVar(&opts.bucket, "bucket", "", "object storage bucket")
	cmd.Flags().StringVar(&opts.key, "key", "", "object key of the batch document")
	cmd.Flags().BoolVar(&opts.deliver, "deliver", false, "post the results to the callback URL of the document")
	return cmd
}

func (o *scoreOptions) location() (domain.BlobLocation, error) {
	remote := o.bucket != "" || o.key != ""
	switch {
	case o.file != "" && remote:
		return domain.BlobLocation{}, errors.InputError("--file and --bucket/--key are mutually exclusive, provide only one")
	case o.file != "":
		return domain.BlobLocation{Bucket: localBucket, Filename: o.file}, nil
	case o.bucket == "" || o.key == "":
		return domain.BlobLocation{}, errors.InputError("either --file or both --bucket and --key must be provided")
	}
	return domain.BlobLocation{Bucket: o.bucket, Filename: o.key}, nil
}

func runScore(cmd *cobra.Command, cliCtx *CLIContext, opts *scoreOptions, overrides app.Options) error {
	loc, err := opts.location()
	if err != nil {
		return err
	}
	if opts.file != "" {
		overrides.Blobs = fileBlobs{}
	}

	logger := cliCtx.Logger
	a, err := app.New(cliCtx.Config, logger, overrides)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Shutdown(context.Background()); err != nil {
			logger.Warn("pipeline shutdown", logging.Err(err))
		}
		a.Close()
	}()

	ctx := cmd.Context()
	svc := a.Service()
	doc, err := svc.Load(ctx, loc)
	if err != nil {
		return fmt.Errorf("load batch: %w", err)
	}

	logger.Info("scoring batch",
		logging.String("bucket", loc.Bucket),
		logging.String("filename", loc.Filename),
		logging.Int("items", len(doc.ObjectData)))
	agg := svc.Score(ctx, doc)

	var derr error
	if opts.deliver {
		derr = a.Reporter().Deliver(ctx, agg, doc.CallbackURL, doc.Token, doc.APICallbackKey)
	}
	if agg.Incomplete {
		if derr != nil {
			return fmt.Errorf("deliver results: %w", derr)
		}
		return errors.New(errors.ErrCodeDispatcherClosed, "batch aborted before all items were scored")
	}

	if cliCtx.OutputFormat == "json" {
		if err := printJSON(cmd, agg); err != nil {
			return err
		}
	} else {
		renderAggregate(cmd.OutOrStdout(), agg)
	}

	if opts.deliver {
		if derr != nil {
			return fmt.Errorf("deliver results: %w", derr)
		}
		PrintSuccess(cmd, "results delivered to "+doc.CallbackURL)
	}
	return nil
}

func renderAggregate(w io.Writer, agg *domain.BatchAggregate) {
	fmt.Fprintf(w, "\n=== Batch %s (subscription %s) ===\n\n", agg.BatchID, agg.SubscriptionID)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Lead", "Result", "Score", "Category", "Description"})
	table.SetAutoWrapText(false)

	for i, it := range agg.Items {
		result := color.GreenString("ok")
		if !it.Success {
			result = color.RedString("failed")
		}
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			it.ItemID,
			result,
			it.Score,
			colorizeCategory(it.Category),
			truncateString(it.Description, 60),
		})
	}
	table.Render()

	fmt.Fprintf(w, "\nTotal: %d  Succeeded: %d  Failed: %d  Duration: %s\n",
		len(agg.Items), agg.Succeeded(), agg.Failed(), agg.Duration().Round(time.Millisecond))
}

func colorizeCategory(category string) string {
	switch strings.ToLower(category) {
	case "hot":
		return color.RedString(category)
	case "warm":
		return color.YellowString(category)
	case "cold":
		return color.CyanString(category)
	default:
		return category
	}
}

//Personal.AI order the ending
