package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"yonmai/common/config"
	"yonmai/common/log"
	"yonmai/core/container"
)

func Run(ctx context.Context, v *viper.Viper, conf *config.GameConfiguration) error {
	gameContainer, err := container.NewGameContainer(ctx, conf)
	if err != nil {
		return fmt.Errorf("game 容器初始化失败: %w", err)
	}
	defer func() {
		if err := gameContainer.Close(); err != nil {
			log.Error("关闭 game 容器失败: %v", err)
		}
	}()

	// 限时与日志级别热更新，下一次调度生效
	config.WatchTiming(v, func(timing config.TimingConf, logConf config.LogConf) {
		gameContainer.Engine.SetTiming(container.EngineTiming(timing))
		if logConf.Level != "" {
			log.SetLevel(logConf.Level)
		}
		log.Info("配置热更新: timing=%+v log=%s", timing, logConf.Level)
	})

	if err := gameContainer.GameWorker.Start(ctx, conf.EtcdConf); err != nil {
		return fmt.Errorf("worker 启动失败: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("HTTP 接口监听端口 %d", conf.HttpPort)
		if err := gameContainer.HttpServer.Start(); err != nil {
			errCh <- fmt.Errorf("http 服务异常: %w", err)
		}
	}()
	go func() {
		if err := gameContainer.Gateway.Start(fmt.Sprintf(":%d", conf.WsConf.Port)); err != nil {
			errCh <- fmt.Errorf("websocket 网关异常: %w", err)
		}
	}()

	stop := func() {
		log.Info("正在关闭 game 服务...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		done := make(chan struct{})
		go func() {
			if err := gameContainer.Close(); err != nil {
				log.Warn("关闭 game 容器失败: %v", err)
			}
			close(done)
		}()

		select {
		case <-done:
			log.Info("game 服务已关闭")
		case <-shutdownCtx.Done():
			log.Warn("关闭 game 服务超时（5秒），defer 会确保资源最终被释放")
		}
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGHUP)
	defer signal.Stop(c)
	for {
		select {
		case <-ctx.Done():
			stop()
			return nil
		case err := <-errCh:
			stop()
			return err
		case s := <-c:
			switch s {
			case syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT:
				stop()
				log.Info("中断信号，服务停止")
				return nil
			case syscall.SIGHUP:
				stop()
				log.Info("挂起信号，服务停止")
				return nil
			default:
				return nil
			}
		}
	}
}
