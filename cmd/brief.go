package main

import (
	"encoding/json"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rapport-api/internal/fault"
)

var briefCmd = &cobra.Command{
	Use:   "brief <zip>",
	Short: "Assemble a rapport brief for one ZIP and print it as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer e.Close()

		resp, err := e.Pipeline.Run(ctx, args[0])
		if err != nil {
			if fault.IsValidation(err) || fault.IsNotFound(err) {
				return err
			}
			zap.L().Error("brief failed", zap.String("zip", args[0]), zap.Error(err))
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

func init() {
	rootCmd.AddCommand(briefCmd)
}
