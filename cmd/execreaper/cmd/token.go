package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/psantana5/execreaper/pkg/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage trigger tokens",
}

var tokenGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a token for POST /reconcile",
	Long: `Generate a random bearer token and its bcrypt hash. Put the hash in
server.trigger_token_hashes and hand the token to the caller. The token is
shown only once.`,
	Args: cobra.NoArgs,
	RunE: runTokenGenerate,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenGenerateCmd)
}

func runTokenGenerate(cmd *cobra.Command, args []string) error {
	token, hash, err := auth.GenerateToken()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if IsJSONOutput() {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]string{"token": token, "hash": hash})
	}
	fmt.Fprintf(out, "Token: %s\n", token)
	fmt.Fprintf(out, "Hash:  %s\n", hash)
	return nil
}
