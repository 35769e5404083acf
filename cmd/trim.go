package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var trimCmd = &cobra.Command{
	Use:   "trim <count>",
	Short: "Drop the oldest (or newest) records from the backend",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrim,
}

func init() {
	trimCmd.Flags().Bool("newest", false, "trim the newest records instead of the oldest")
}

func runTrim(cmd *cobra.Command, args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return fmt.Errorf("invalid count %q", args[0])
	}
	newest, _ := cmd.Flags().GetBool("newest")

	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	remaining, err := s.TrimData(n, !newest)
	if err != nil {
		return err
	}
	fmt.Printf("%d record(s) remaining\n", remaining)
	return nil
}
