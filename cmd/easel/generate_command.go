package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"easel/internal/ipc"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var (
		productType string
		audience    string
		goal        string
		language    string
		style       string
		jsonOut     bool
	)

	cmd := &cobra.Command{
		Use:   "generate <product>",
		Short: "Queue an ad banner generation request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			product := strings.TrimSpace(strings.Join(args, " "))
			if product == "" {
				return errors.New("product description is required")
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Generate(ipc.GenerateRequest{
					Product:     product,
					ProductType: productType,
					Audience:    audience,
					Goal:        goal,
					Language:    language,
					Style:       style,
				})
				if err != nil {
					return err
				}
				if resp == nil {
					return errors.New("missing generate response")
				}
				if jsonOut {
					return writeJSON(cmd, resp.Item)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Queued banner request %s (item %d)\n", resp.Item.RequestID, resp.Item.ID)
				fmt.Fprintf(out, "Track progress with `easel queue describe %d`\n", resp.Item.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&productType, "type", "", "Product category (e.g. saas, course, game)")
	cmd.Flags().StringVarP(&audience, "audience", "a", "", "Target audience")
	cmd.Flags().StringVarP(&goal, "goal", "g", "", "Campaign goal (e.g. signups, installs)")
	cmd.Flags().StringVarP(&language, "language", "l", "", "Ad copy language")
	cmd.Flags().StringVarP(&style, "style", "s", "", "Copy style (professional, creative, urgent, emotional, clear)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the queued item as JSON")
	return cmd
}
