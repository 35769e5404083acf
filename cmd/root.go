// Package cmd implements the datastore command line interface. It is
// peripheral glue: it builds a store.Config from flags, environment,
// and .env files, hands it to the core, and prints whatever comes back.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stevemurr/datastore/store"
)

const Version = "0.2.0"

var (
	// RootCmd represents the base command when called without any subcommands.
	RootCmd = &cobra.Command{
		Use:   "datastore",
		Short: "unified data-storage facade",
		Long: fmt.Sprintf(`datastore (v%s)

Save and load structured records through one interface, backed by a
flat CSV file, a JSON document file, or an embedded SQLite database.
Flags can also be set via environment variables with the DATASTORE_
prefix (e.g. DATASTORE_BACKEND=sqlite).`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of datastore",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("datastore v%s\n", Version)
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().String("backend", "json", "storage backend (csv, json, sqlite, memory)")
	RootCmd.PersistentFlags().String("location", "data/records.json", "file path or sqlite database path (\":memory:\" for an in-memory database)")
	RootCmd.PersistentFlags().String("table", "records", "sqlite table name")
	RootCmd.PersistentFlags().String("fields", "", "comma-separated field order, e.g. id,name,score (inferred from the first record if empty)")
	RootCmd.PersistentFlags().String("config", "", "path to a named-targets config file (yaml or toml); overrides the individual backend flags")
	RootCmd.PersistentFlags().String("target", "primary", "target name to bind when --config is given")

	RootCmd.AddCommand(saveCmd)
	RootCmd.AddCommand(getCmd)
	RootCmd.AddCommand(trimCmd)
	RootCmd.AddCommand(describeCmd)
	RootCmd.AddCommand(versionCmd)
}

func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
	viper.SetEnvPrefix("DATASTORE")
	viper.AutomaticEnv()
}

// openStore builds the Store a subcommand operates on: from a named
// target when --config is given, else from the individual backend
// flags and environment.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	if path := viper.GetString("config"); path != "" {
		targets, err := loadTargets(path)
		if err != nil {
			return nil, err
		}
		return store.Open(targets, viper.GetString("target"))
	}

	cfg := store.Config{
		Backend:  store.Backend(viper.GetString("backend")),
		Location: viper.GetString("location"),
		Table:    viper.GetString("table"),
	}
	if fields := viper.GetString("fields"); fields != "" {
		for _, f := range strings.Split(fields, ",") {
			cfg.Fields = append(cfg.Fields, strings.TrimSpace(f))
		}
	}
	return store.New(cfg)
}

// loadTargets reads a named-targets config file of the form:
//
//	targets:
//	  primary:
//	    backend: sqlite
//	    location: data/records.db
//	  archive:
//	    backend: csv
//	    location: data/archive.csv
//	    fields: [id, name]
func loadTargets(path string) (store.Targets, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var raw map[string]struct {
		Backend  string   `mapstructure:"backend"`
		Location string   `mapstructure:"location"`
		Table    string   `mapstructure:"table"`
		Fields   []string `mapstructure:"fields"`
		Encoding string   `mapstructure:"encoding"`
	}
	if err := v.UnmarshalKey("targets", &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	targets := make(store.Targets, len(raw))
	for name, t := range raw {
		targets[name] = store.Config{
			Backend:  store.Backend(t.Backend),
			Location: t.Location,
			Table:    t.Table,
			Fields:   t.Fields,
			Encoding: t.Encoding,
		}
	}
	return targets, nil
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
