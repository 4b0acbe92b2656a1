package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// WatchTiming 监听配置文件，变更后把 timing 与 log 段回调给调用方
func WatchTiming(v *viper.Viper, onChange func(TimingConf, LogConf)) {
	v.OnConfigChange(func(in fsnotify.Event) {
		if !in.Has(fsnotify.Write) && !in.Has(fsnotify.Create) {
			return
		}
		var timing TimingConf
		if err := v.UnmarshalKey("timing", &timing); err != nil {
			return
		}
		var logConf LogConf
		_ = v.UnmarshalKey("log", &logConf)
		onChange(timing, logConf)
	})
	v.WatchConfig()
}
