package config

import (
	"fmt"
	"log"
	"os"
	"reflect"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/rclone/rclone/fs"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var Config *MainConfig
var ConfigChanged bool

// MainConfig is env-first: the bot runs with nothing but TELEGRAM_TOKEN
// set. A config file is optional and hot-reloaded when present.
type MainConfig struct {
	Token          string
	CookiesContent string
	CookiesFile    string

	ScratchDir    string
	InlineLimit   int64
	PartSize      int64
	FetchProvider string

	UpdateTimeout   int
	EditIntervalSec int

	LogFile     string
	LogFileSize int
	LogLevel    string
	RLogLevel   string

	PprofHost    string
	RedisHost    string
	EventChannel string

	ExtraConfig map[string]interface{}
}

const (
	defaultInlineLimit = 50 * 1024 * 1024
	defaultPartSize    = 48 * 1024 * 1024
)

func InitConfig(configFile string) {
	log.Print("Init config!")
	initConfig(configFile)
	log.Print("Load config!")
	_, err := ReloadConfig()
	if err != nil {
		fmt.Printf("config file error: %s\n", err)
		os.Exit(1)
	}
	if Config.Token == "" {
		fmt.Println("TELEGRAM_TOKEN env var is missing")
		os.Exit(1)
	}
}

func initConfig(configFile string) {
	viper.SetDefault("cookiesfile", "/tmp/cookies.txt")
	viper.SetDefault("scratchdir", "/tmp")
	viper.SetDefault("inlinelimit", defaultInlineLimit)
	viper.SetDefault("partsize", defaultPartSize)
	viper.SetDefault("fetchprovider", "ytdlp")
	viper.SetDefault("updatetimeout", 60)
	viper.SetDefault("editintervalsec", 3)
	viper.SetDefault("logfile", "clipbot.log")
	viper.SetDefault("logfilesize", 10)
	viper.SetDefault("loglevel", "info")
	viper.SetDefault("rloglevel", "info")
	viper.SetDefault("eventchannel", "delivery")

	_ = viper.BindEnv("token", "TELEGRAM_TOKEN")
	_ = viper.BindEnv("cookiescontent", "YTDLP_COOKIES_CONTENT")
	_ = viper.BindEnv("cookiesfile", "YTDLP_COOKIES_FILE")

	if configFile != "" {
		viper.SetConfigFile(configFile)
		err := viper.ReadInConfig()
		if err != nil {
			fmt.Printf("config file error: %s\n", err)
			os.Exit(1)
		}
		viper.WatchConfig()
		viper.OnConfigChange(func(in fsnotify.Event) {
			ConfigChanged = true
		})
	}
	ConfigChanged = true
}

func ReloadConfig() (bool, error) {
	if !ConfigChanged {
		return false, nil
	}
	ConfigChanged = false
	if viper.ConfigFileUsed() != "" {
		err := viper.ReadInConfig()
		if err != nil {
			return true, err
		}
	}
	config := &MainConfig{}
	err := viper.Unmarshal(config, func(c *mapstructure.DecoderConfig) {
		c.WeaklyTypedInput = true
		c.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			func(inType reflect.Type, outType reflect.Type, input interface{}) (interface{}, error) {
				if inType.Kind() == reflect.Map && outType.Kind() == reflect.Struct { // we'll decoding a struct
					fieldsMap := make(map[string]reflect.StructField, 10)
					for i := 0; i < outType.NumField(); i++ {
						fieldsMap[strings.ToLower(outType.Field(i).Name)] = outType.Field(i)
					}
					inputMap, ok := input.(map[string]interface{})
					if !ok {
						return input, nil
					}
					extraConfig := make(map[string]interface{}, 5)
					inputMap["ExtraConfig"] = extraConfig
					for key := range inputMap {
						_, ok := fieldsMap[strings.ToLower(key)]
						if !ok {
							extraConfig[key] = inputMap[key]
						}
					}
				}
				return input, nil
			},
			c.DecodeHook)
	})
	if err != nil {
		return true, err
	}
	Config = config

	UpdateLogLevel()
	return true, nil
}

// UpdateLogLevel maps the configured level strings onto logrus and the
// rclone fs logger. Called after every successful (re)load.
func UpdateLogLevel() {
	fs.Config.LogLevel = fs.LogLevelInfo
	if Config.RLogLevel == "debug" {
		fs.Config.LogLevel = fs.LogLevelDebug
	} else if Config.RLogLevel == "info" {
		fs.Config.LogLevel = fs.LogLevelInfo
	} else if Config.RLogLevel == "warn" {
		fs.Config.LogLevel = fs.LogLevelWarning
	} else if Config.RLogLevel == "error" {
		fs.Config.LogLevel = fs.LogLevelError
	}

	level := logrus.InfoLevel
	if Config.LogLevel == "debug" {
		level = logrus.DebugLevel
	} else if Config.LogLevel == "info" {
		level = logrus.InfoLevel
	} else if Config.LogLevel == "warn" {
		level = logrus.WarnLevel
	} else if Config.LogLevel == "error" {
		level = logrus.ErrorLevel
	}
	logrus.SetLevel(level)
	log.Printf("Set log level to %s, rclone to %s", level, fs.Config.LogLevel)
}

// WriteCookiesFile provisions the yt-dlp cookie jar from the
// environment so restricted videos can be fetched. Failure is not
// fatal: the bot still works for public content.
func WriteCookiesFile() {
	if Config.CookiesContent == "" {
		return
	}
	err := os.WriteFile(Config.CookiesFile, []byte(Config.CookiesContent), 0600)
	if err != nil {
		logrus.Warnf("Failed to write cookies file: %v", err)
		return
	}
	logrus.Infof("Wrote cookies to %s", Config.CookiesFile)
}
