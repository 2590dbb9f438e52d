package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/teemow/bookshelf/internal/server"
)

func newRoutesCmd() *cobra.Command {
	var (
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the HTTP routes",
		Long: `Print a markdown reference of every HTTP route the serve command
registers. The output is generated from the router's route table, so it is
always in sync with the server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			markdown := generateRoutesMarkdown(server.Routes())

			if outputFile != "" {
				if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
					return fmt.Errorf("failed to write output file: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Routes written to: %s\n", outputFile)
				return nil
			}
			_, err := fmt.Fprint(cmd.OutOrStdout(), markdown)
			return err
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func generateRoutesMarkdown(routes []server.Route) string {
	var sb strings.Builder

	sb.WriteString("# HTTP Routes\n\n")
	sb.WriteString("**Note:** This document is generated from the server's route table.\n\n")

	grouped := lo.GroupBy(routes, func(r server.Route) string {
		return accessSection(r.Auth)
	})
	sections := lo.Keys(grouped)
	sort.Strings(sections)

	for _, section := range sections {
		sb.WriteString(fmt.Sprintf("## %s\n\n", section))
		sb.WriteString("| Method | Path | Description |\n")
		sb.WriteString("|--------|------|-------------|\n")
		for _, r := range grouped[section] {
			sb.WriteString(fmt.Sprintf("| %s | `%s` | %s |\n",
				strings.Join(r.Methods, ", "), r.Path, r.Description))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func accessSection(auth string) string {
	switch auth {
	case server.AuthSession:
		return "Signed-in Routes"
	case server.AuthWrite:
		return "Write Routes"
	default:
		return "Public Routes"
	}
}
