// Command graphdb inspects and edits a graph database directory.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/wbrown/janus-graph/graph/annotations"
	"github.com/wbrown/janus-graph/graph/config"
	"github.com/wbrown/janus-graph/graph/storage"
)

type rootOpts struct {
	cfgFile string
	verbose bool
}

var (
	rootOpt rootOpts
	v       = config.New()
)

var rootCmd = &cobra.Command{
	Use:           "graphdb",
	Short:         "Property graph storage and traversal",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Errorf("graphdb: %v", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootOpt.cfgFile, "config", "", "config file (yaml, toml or json)")
	flags.BoolVarP(&rootOpt.verbose, "verbose", "v", false, "print engine annotations to stderr")
	flags.String("path", "graph.db", "database directory")
	flags.Bool("in-memory", false, "use a throwaway in-memory store")
	flags.String("hop-filter", "edges", "where out/in/both apply filters: edges or neighbors")
	flags.String("log-level", "warn", "log level")

	for key, flag := range map[string]string{
		"path":       "path",
		"in_memory":  "in-memory",
		"hop_filter": "hop-filter",
		"log_level":  "log-level",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(
		newDemoCmd(),
		newStatsCmd(),
		newNodeCmd(),
		newEdgeCmd(),
		newIndexCmd(),
		newQueryCmd(),
		newTraverseCmd(),
		newGCCmd(),
	)
}

// loadConfig merges the config file, environment and flags
func loadConfig() (*config.Config, error) {
	if rootOpt.cfgFile != "" {
		v.SetConfigFile(rootOpt.cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	return config.FromViper(v)
}

func handler() annotations.Handler {
	if !rootOpt.verbose {
		return nil
	}
	return annotations.ConsoleHandler()
}

// withDB opens the configured database for the duration of fn
func withDB(fn func(db *storage.Database) error) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	logger := c.Logger()
	logger.WithField("path", c.Path).Debug("opening database")
	db, err := c.Open(handler())
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}
