package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/psantana5/execreaper/pkg/models"
)

var scopesCmd = &cobra.Command{
	Use:   "scopes",
	Short: "List the backend's project/domain scopes",
	Long:  `List every project/domain pair the reconciler scans on each pass.`,
	Args:  cobra.NoArgs,
	RunE:  runScopes,
}

func init() {
	rootCmd.AddCommand(scopesCmd)
}

func runScopes(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(true); err != nil {
		return err
	}

	a, err := newApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	scopes, err := a.client.ListScopes(ctx)
	if err != nil {
		return err
	}
	return printScopes(cmd.OutOrStdout(), scopes, IsJSONOutput())
}

func printScopes(w io.Writer, scopes []models.Scope, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"scopes": scopes,
			"count":  len(scopes),
		})
	}

	if len(scopes) == 0 {
		fmt.Fprintln(w, "No scopes found.")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("Project", "Domain")
	for _, s := range scopes {
		table.Append(s.Project, s.Domain)
	}
	table.Render()
	return nil
}
