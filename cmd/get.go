package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stevemurr/datastore/store"
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Print records from the configured backend as JSON",
	RunE:  runGet,
}

func init() {
	getCmd.Flags().String("filter", "", "equality filter in field=value form")
}

func runGet(cmd *cobra.Command, args []string) error {
	var filter *store.Filter
	if raw, _ := cmd.Flags().GetString("filter"); raw != "" {
		field, value, ok := strings.Cut(raw, "=")
		if !ok || field == "" {
			return fmt.Errorf("invalid filter %q (expected field=value)", raw)
		}
		filter = &store.Filter{Field: field, Value: value}
	}

	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	records, err := s.GetData(filter)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
