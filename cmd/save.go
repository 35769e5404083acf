package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/stevemurr/datastore/store"
)

var saveCmd = &cobra.Command{
	Use:   "save [file]",
	Short: "Save records from a JSON array (file or stdin)",
	Long: `Save reads a JSON array of records from the given file, or from
stdin when no file is given, and writes them to the configured backend.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSave,
}

func init() {
	saveCmd.Flags().Bool("fill-id", false, "add a generated uuid \"id\" field to records missing one")
}

func runSave(cmd *cobra.Command, args []string) error {
	var in io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	var records store.RecordSet
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("input is not a JSON record array: %w", err)
	}

	if fillID, _ := cmd.Flags().GetBool("fill-id"); fillID {
		for _, rec := range records {
			if _, ok := rec["id"]; !ok {
				rec["id"] = uuid.NewString()
			}
		}
	}

	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	n, err := s.SaveData(records)
	if err != nil {
		return err
	}
	fmt.Printf("saved %d record(s) to %s backend\n", n, s.Backend())
	return nil
}
