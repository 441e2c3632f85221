package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/stratbot/gostrat/internal/console"
	"github.com/stratbot/gostrat/pkg/api"
	"github.com/stratbot/gostrat/pkg/config"
	"github.com/stratbot/gostrat/pkg/credcache"
	"github.com/stratbot/gostrat/pkg/logger"
)

func main() {
	// 解析命令行参数
	configPath := flag.String("config", "config.yaml", "配置文件路径（支持 .yaml, .yml）")
	noCache := flag.Bool("no-cache", false, "禁用本地凭证摘要缓存")
	flag.Parse()

	// .env 可选，环境变量覆盖配置文件
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 终端被 UI 占用，日志只写文件
	if err := logger.Init(logger.Config{
		Level:        cfg.LogLevel,
		OutputFile:   cfg.LogFile,
		MaxSize:      50,
		MaxBackups:   5,
		MaxAge:       14,
		Compress:     true,
		ConsoleQuiet: true,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	client := api.NewClient(cfg.APIBaseURL, &api.Options{
		Token:   cfg.APIToken,
		Timeout: cfg.Timeout(),
	})

	var cache *credcache.Cache
	if !*noCache {
		key, err := credcache.ParseKey(os.Getenv("GOSTRAT_CACHE_KEY"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "解析缓存加密密钥失败: %v\n", err)
			os.Exit(1)
		}
		cache, err = credcache.Open(credcache.OpenOptions{
			Path:          cfg.CredCacheDir,
			EncryptionKey: key,
		})
		if err != nil {
			// 缓存打开失败不阻塞主流程，降级为无缓存运行
			logrus.WithError(err).Warn("凭证摘要缓存打开失败，降级为无缓存运行")
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	logrus.WithFields(logrus.Fields{
		"api":   cfg.APIBaseURL,
		"cache": cache != nil,
	}).Info("策略控制台启动")

	if err := console.Run(client, cfg, cache); err != nil {
		fmt.Fprintf(os.Stderr, "控制台运行失败: %v\n", err)
		os.Exit(1)
	}
}
