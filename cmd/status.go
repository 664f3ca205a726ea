package cmd

import (
	"fmt"
	"sort"

	"github.com/ntBre/psqs/internal/config"
	"github.com/ntBre/psqs/internal/program"
	"github.com/ntBre/psqs/internal/utils"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display the scheduler's view of your jobs",
	Long: `Query the configured queue the same way a drain does and list the job
ids it reports as queued or running.`,
	Example: `  psqs status
  PSQS_QUEUE_TYPE=pbs psqs status`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	// the program only selects the command template, which status never uses
	q, err := newQueue(program.KindMolpro)
	if err != nil {
		return err
	}
	snap, err := q.Status()
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(snap))
	for id := range snap {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// Structured output, no [PSQS] prefix
	fmt.Println("Queue Information:")
	fmt.Printf("  Type:      %s\n", utils.StyleInfo(config.Global.Queue.Type))
	fmt.Printf("  Active:    %s\n", utils.StyleNumber(len(ids)))
	for _, id := range ids {
		fmt.Printf("    %s\n", id)
	}
	return nil
}
