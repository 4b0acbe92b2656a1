package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"yonmai/common/config"
	"yonmai/common/log"
	"yonmai/common/metrics"
	"yonmai/game/app"
)

var (
	configFile string
	logLevel   string
	identifier string
)

var rootCmd = &cobra.Command{
	Use:   "game",
	Short: "game 四枚麻将对局节点",
	Long:  `game 四枚麻将对局节点：对局 actor、websocket 网关与 HTTP 接口`,
	Run: func(cmd *cobra.Command, args []string) {
		if identifier != "" {
			_ = os.Setenv("NODE_ID", identifier)
		}
		v, conf, err := config.Load(configFile)
		if err != nil {
			log.Fatal("文件配置发生错误：%v", err)
		}
		if logLevel != "" {
			conf.LogConf.Level = logLevel
		}
		log.InitLog(conf.ID, conf.LogConf.Level)
		log.Info("配置文件: %s, 节点: %s, 存储: %s", configFile, conf.ID, conf.StoreConf.Backend)

		if conf.MetricPort > 0 {
			go func() {
				log.Info("启动监控..., URL: http://localhost:%d/debug/statsviz/", conf.MetricPort)
				if err := metrics.Serve(fmt.Sprintf("0.0.0.0:%d", conf.MetricPort)); err != nil {
					log.Error("监控服务退出: %v", err)
				}
			}()
		}

		if err := app.Run(context.Background(), v, conf); err != nil {
			log.Error("发生异常: %v", err)
			os.Exit(-1)
		}
	},
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "resource", "resource/application.yml", "resource file")
	rootCmd.Flags().StringVar(&logLevel, "logLevel", "", "覆盖配置中的日志级别")
	rootCmd.Flags().StringVar(&identifier, "identifier", "", "节点 id，优先于配置文件")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("error happen: %#v", err)
		os.Exit(1)
	}
}
