package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"graphexplorer/internal/secrets"
)

// credentialKeys maps the names accepted on the command line to store keys.
var credentialKeys = map[string]string{
	"neo4j-password": secrets.KeyNeo4jPassword,
	"postgres-dsn":   secrets.KeyPostgresDSN,
}

func credentialKey(name string) (string, error) {
	key, ok := credentialKeys[name]
	if !ok {
		return "", fmt.Errorf("unknown credential %q: want neo4j-password or postgres-dsn", name)
	}
	return key, nil
}

func newCredentialsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage database credentials kept in the OS credential store",
		Long: `credentials stores database secrets in the OS credential store. Stored
values are used only when neither the config file nor the environment sets them.

Names: neo4j-password, postgres-dsn.`,
	}

	var value string
	set := &cobra.Command{
		Use:   "set <name>",
		Short: "Store a credential (read from stdin unless --value is given)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := credentialKey(args[0])
			if err != nil {
				return err
			}
			v := value
			if v == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read %s from stdin: %w", args[0], err)
				}
				v = strings.TrimRight(line, "\r\n")
			}
			if v == "" {
				return fmt.Errorf("%s must not be empty", args[0])
			}

			s, err := a.openSecrets()
			if err != nil {
				return err
			}
			if err := s.Set(key, v); err != nil {
				return err
			}
			pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Stored %s", args[0])
			return nil
		},
	}
	set.Flags().StringVar(&value, "value", "", "Credential value (visible in shell history; prefer stdin)")

	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a stored credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := credentialKey(args[0])
			if err != nil {
				return err
			}
			s, err := a.openSecrets()
			if err != nil {
				return err
			}
			if err := s.Delete(key); err != nil {
				return err
			}
			pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Removed %s", args[0])
			return nil
		},
	}

	cmd.AddCommand(set, del)
	return cmd
}
