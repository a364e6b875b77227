package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fzxiao233/Tg_ClipRelay/config"
	"github.com/fzxiao233/Tg_ClipRelay/relay/plugins"
	"github.com/fzxiao233/Tg_ClipRelay/relay/worker"
	"github.com/fzxiao233/Tg_ClipRelay/telegram"
	"github.com/fzxiao233/Tg_ClipRelay/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func watchConfig() {
	go func() {
		ticker := time.NewTicker(time.Second * time.Duration(1))
		for {
			if config.ConfigChanged {
				ret, err := config.ReloadConfig()
				if ret {
					if err == nil {
						log.Infof("Config changed! New config: %+v", config.Config)
					} else {
						log.Warnf("Config changed but loading failed: %s", err)
					}
				}
			}
			<-ticker.C
		}
	}()
}

func main() {
	configFile := flag.String("config", "", "optional config file, env vars alone are enough")
	flag.Parse()

	config.InitConfig(*configFile)
	config.InitLog()
	config.WriteCookiesFile()
	config.InitProfiling()
	utils.InitRedis(config.Config.RedisHost)

	if _, err := utils.MakeDir(config.Config.ScratchDir); err != nil {
		log.Fatalf("Failed to create scratch dir %s: %v", config.Config.ScratchDir, err)
	}

	api, err := tgbotapi.NewBotAPI(config.Config.Token)
	if err != nil {
		log.Fatalf("Failed to reach Telegram: %v", err)
	}
	log.Infof("Authorized on account %s", api.Self.UserName)

	pm := &worker.PluginManager{}
	pm.AddPlugin(&plugins.PluginEvents{})
	pm.AddPlugin(&plugins.PluginArchive{})

	bot := telegram.NewBot(api, pm)

	watchConfig()

	group, ctx := errgroup.WithContext(context.Background())
	group.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s := <-sig:
			log.Infof("Signal received: %v, draining deliveries...", s)
			bot.Stop()
			return nil
		}
	})
	group.Go(bot.Run)

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Warnf("Stopped with error: %v", err)
	}
	log.Infof("Bye")
}
