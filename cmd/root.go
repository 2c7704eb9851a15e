package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/moghouse/gearsweep/internal/analyzer"
	"github.com/moghouse/gearsweep/internal/output"
	"github.com/moghouse/gearsweep/internal/utils"
	"github.com/moghouse/gearsweep/pkg/checklist"
	"github.com/moghouse/gearsweep/pkg/gearswap"
	"github.com/moghouse/gearsweep/pkg/history"
)

var cfgFile string

const (
	LOGO = `	  __ _  ___  __ _ _ __ _____      _____  ___ _ __
	 / _` + "`" + ` |/ _ \/ _` + "`" + ` | '__/ __\ \ /\ / / _ \/ _ \ '_ \
	| (_| |  __/ (_| | |  \__ \\ V  V /  __/  __/ |_) |
	 \__, |\___|\__,_|_|  |___/ \_/\_/ \___|\___| .__/
	 |___/                                      |_|

`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gearsweep",
	Short: "Find FFXI wardrobe items your GearSwap files never reference.",
	Long: LOGO + `gearsweep scans your GearSwap lua files and a Windower inventory export,
finds wardrobe items no gearset references, and tracks them as a persistent
checklist you can work through from the command line or a local web UI.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gearsweep.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().String("state", "", "Path to the checklist state file (default is $HOME/.gearsweep/checklist.json)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Defaults first, so a freshly created config file carries them.
	viper.SetDefault("slots", gearswap.DefaultSlotNames())
	viper.SetDefault("containers", []int{8, 10, 11, 12, 13, 14, 15, 16})
	viper.SetDefault("comment_marker", gearswap.DefaultCommentMarker)
	viper.SetDefault("state", "")
	viper.SetDefault("history", "")
	viper.SetDefault("listen", "127.0.0.1:8050")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".gearsweep")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := home + "/.gearsweep.yaml"
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		}
	}

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)

	if noColor, _ := rootCmd.PersistentFlags().GetBool("no-color"); noColor {
		output.NoColor()
	}
}

// analyzerConfig builds the analysis configuration from the config file.
func analyzerConfig() analyzer.Config {
	tracked := make(map[int]bool)
	for _, id := range viper.GetIntSlice("containers") {
		tracked[id] = true
	}
	return analyzer.Config{
		SlotNames:         viper.GetStringSlice("slots"),
		CommentMarker:     viper.GetString("comment_marker"),
		TrackedContainers: tracked,
	}
}

// openStore resolves the state file path (flag beats config beats default)
// and returns the store over it.
func openStore() (*checklist.Store, error) {
	path, _ := rootCmd.PersistentFlags().GetString("state")
	if path == "" {
		path = viper.GetString("state")
	}
	return checklist.NewStore(path)
}

// openHistory opens the run log. The log is best-effort: a failure is
// logged and analysis continues without it.
func openHistory() *history.DB {
	path := viper.GetString("history")
	if path == "" {
		var err error
		path, err = history.DefaultPath()
		if err != nil {
			utils.Log.Warnf("Could not resolve history path: %s", err)
			return nil
		}
	}
	db, err := history.Open(path)
	if err != nil {
		utils.Log.Warnf("Could not open history database: %s", err)
		return nil
	}
	return db
}
