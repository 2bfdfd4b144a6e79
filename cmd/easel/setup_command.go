package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"easel/internal/installer"
)

func newSetupCommand(ctx *commandContext) *cobra.Command {
	var (
		workDir    string
		modelURL   string
		skipModel  bool
		verifyOnly bool
	)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Provision the Stable Diffusion WebUI environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			inst := installer.New(cfg, nil, installer.Options{
				WorkDir:   workDir,
				ModelURL:  modelURL,
				SkipModel: skipModel,
				Output:    out,
			})

			if !verifyOnly {
				results, runErr := inst.Run(cmd.Context())
				for _, step := range results {
					kind := statusOK
					if step.Skipped {
						kind = statusInfo
					}
					fmt.Fprintln(out, renderStatusLine(step.Name, kind, step.Detail, colorize))
				}
				if runErr != nil {
					return runErr
				}
			}

			for _, line := range renderSectionHeader("Verification", colorize) {
				fmt.Fprintln(out, line)
			}
			failed := 0
			for _, check := range inst.Verify(cmd.Context()) {
				kind := statusOK
				if !check.Passed {
					kind = statusWarn
					failed++
				}
				fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
			}
			if failed > 0 {
				fmt.Fprintf(out, "\n%d check(s) need attention; start the WebUI with `docker compose up -d` and re-run `easel setup --verify-only`\n", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&workDir, "dir", ".", "Directory for the WebUI checkout, models, and env file")
	cmd.Flags().StringVar(&modelURL, "model-url", "", "Override the model checkpoint download URL")
	cmd.Flags().BoolVar(&skipModel, "skip-model", false, "Skip the model checkpoint download")
	cmd.Flags().BoolVar(&verifyOnly, "verify-only", false, "Run verification checks without installing")
	return cmd
}
