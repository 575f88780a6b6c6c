package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/lanefuse/internal/domain/recipe"
)

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openConfigured(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			r, err := s.svc.Runs.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), toOutput(&r))
		},
	}
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <run-id>",
		Short: "Print a run and its ancestors, nearest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openConfigured(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			chain, err := s.svc.Runs.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := make([]runOutput, len(chain))
			for i := range chain {
				out[i] = toOutput(&chain[i])
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func mutateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mutate <run-id> <override.yaml>",
		Short: "Derive a child run with recipe fields replaced",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ov, err := readOverride(args[1])
			if err != nil {
				return err
			}

			s, err := openConfigured(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			r, err := s.svc.Runs.Mutate(cmd.Context(), args[0], ov)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), toOutput(&r))
		},
	}
}

func readOverride(path string) (*recipe.Override, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read override: %w", err)
	}
	var ov recipe.Override
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return nil, fmt.Errorf("parse override %s: %w", path, err)
	}
	return &ov, nil
}
