package testtool

import (
	"net/http"
	_ "net/http/pprof" // 匯入後會自動註冊 pprof endpoint

	"intranet_chat/pkg/config"
	"intranet_chat/pkg/logger"

	"go.uber.org/zap"
)

// StartPprof 非 production 環境才啟動 pprof，只聽本機
func StartPprof(addr string) {
	if config.IsProduction() {
		logger.Log.Info("production environment, pprof disabled")
		return
	}
	if addr == "" {
		addr = "127.0.0.1:6060"
	}

	go func() {
		logger.Log.Info("starting pprof server", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Log.Warn("pprof server stopped", zap.Error(err))
		}
	}()
}
