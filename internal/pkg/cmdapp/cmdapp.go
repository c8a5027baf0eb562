package cmdapp

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/heirko/go-contrib/logrusHelper"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//Config is a viper based application config
var Config = viper.New()

//Log is applications logger
var Log = logrus.New()

var (
	configFile = ""
	envFile    = ".env"
)

// InitApplication initializes the app by reading .env and config files
func InitApplication(rootCommand *cobra.Command) {
	// make environment variable GRAPH_TENANTID be found by viper with key graph.tenantID
	Config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Config.AutomaticEnv()
	cobra.OnInitialize(initConfig)
	rootCommand.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is config.yaml)")
	rootCommand.PersistentFlags().StringVarP(&envFile, "env", "", ".env", "dotenv file loaded before the config")
}

func initConfig() {
	loadEnvFile()
	failOnNoFile := false
	if configFile != "" {
		Config.SetConfigFile(configFile)
		failOnNoFile = true
	} else {
		ex, err := os.Executable()
		if err != nil {
			Log.Error("Can't get the app directory:", err)
			panic(1)
		}
		Config.AddConfigPath(filepath.Dir(ex))
		Config.AddConfigPath(".")
		Config.SetConfigName("config")
	}

	if err := Config.ReadInConfig(); err != nil {
		Log.Warn("Can't read config:", err)
		if failOnNoFile {
			Log.Error("Exiting the app")
			panic(1)
		}
	}
	initLog()
	Log.Info("Config loaded from: ", Config.ConfigFileUsed())
}

// loadEnvFile never overrides variables already present in the environment
func loadEnvFile() {
	if envFile == "" {
		return
	}
	if _, err := os.Stat(envFile); err != nil {
		return
	}
	if err := godotenv.Load(envFile); err != nil {
		Log.Warn("Can't load env file: ", err)
		return
	}
	Log.Info("Env loaded from: ", envFile)
}

func initLog() {
	initDefaultLogConfig()
	sub := Config.Sub("logger")
	// Sub drops env bindings
	sub.Set("level", Config.GetString("logger.level"))
	c := logrusHelper.UnmarshalConfiguration(sub)
	err := logrusHelper.SetConfig(Log, c)
	if err != nil {
		Log.Error("Can't init log ", err)
	}
}

func initDefaultLogConfig() {
	defaultLogConfig := map[string]interface{}{
		"level":                              "info",
		"formatter.name":                     "text",
		"formatter.options.full_timestamp":   true,
		"formatter.options.timestamp_format": "2006-01-02T15:04:05.000",
	}
	Config.SetDefault("logger", defaultLogConfig)
}

func logPanic() {
	if r := recover(); r != nil {
		Log.Error(r)
		os.Exit(1)
	}
}

//Execute the main command
func Execute(cmd *cobra.Command) {
	defer logPanic()
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}

//CheckOrPanic panics if err != nil
func CheckOrPanic(err error, msg string) {
	if err != nil {
		if msg == "" {
			panic(err)
		} else {
			panic(errors.Wrap(err, msg))
		}
	}
}

//LogIf logs error if err != nil
func LogIf(err error) {
	if err != nil {
		Log.Error(err)
	}
}

//DurationOrDefault reads duration setting, returns def if the value is missing or not positive
func DurationOrDefault(key string, def time.Duration) time.Duration {
	if d := Config.GetDuration(key); d > 0 {
		return d
	}
	return def
}

//IntOrDefault reads int setting, returns def if the value is missing or not positive
func IntOrDefault(key string, def int) int {
	if v := Config.GetInt(key); v > 0 {
		return v
	}
	return def
}

//StringOrDefault reads string setting, returns def if the value is empty
func StringOrDefault(key string, def string) string {
	if v := strings.TrimSpace(Config.GetString(key)); v != "" {
		return v
	}
	return def
}
