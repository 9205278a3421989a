package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"flatprof/internal/config"
)

var lintCmd = &cobra.Command{
	Use:   "lint [profile.json]",
	Short: "Validate a run profile file",
	Long: `Load a run profile and print every validation finding. Exits
non-zero when any finding is an error.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLint(args[0])
	},
}

func init() {
	rootCmd.AddCommand(lintCmd)
}

func runLint(path string) error {
	prof, err := config.Load(path)
	if err != nil {
		return err
	}
	issues := config.Validate(prof)
	if len(issues) == 0 {
		fmt.Printf("%s: ok\n", path)
		return nil
	}
	errs := 0
	for _, iss := range issues {
		fmt.Println(iss.Error())
		if iss.Severity == config.SeverityError {
			errs++
		}
	}
	if errs > 0 {
		return fmt.Errorf("%d error(s) in %s", errs, path)
	}
	return nil
}
