package main

import (
	"github.com/spf13/cobra"

	"github.com/MuXiu1997/ass-processor/internal/logger"
)

func newCheckCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report the state of external dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(*configFlag)
			if err != nil {
				return err
			}

			statuses := a.installer.Check()
			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				state, detail := "ok", s.Path
				if !s.OK() {
					state, detail = "missing", logger.FormatError(s.Err)
				}
				rows = append(rows, []string{s.Name, s.Command, state, detail})
			}

			cmd.Println(renderTable([]string{"Dependency", "Command", "State", "Detail"}, rows))
			return nil
		},
	}
}
