package main

import (
	"flag"
	"fmt"
	"net/http"
	"time"
)

// 说明：
// 对外 HTTP 入口规划为 "网关 + gRPC-Gateway"。
// 账本核心的业务 proto 还没落地（后端目前只有 health），所以这里先提供
// 一个最小可运行的 HTTP 骨架：
// - /healthz: 网关自身健康检查
// 后续接入 grpc-gateway 时：
// 1) 在 internal/api/proto 下补齐业务 proto，并添加 google.api.http 注解
// 2) 用 protoc 生成 gateway handlers
// 3) 在这里初始化 grpc-gateway mux，把 HTTP 映射到 ledger-service 的 gRPC
var (
	listenAddr = flag.String("listen", ":8080", "HTTP listen address")
)

func main() {
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              *listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	fmt.Printf("api-gateway listening on %s\n", *listenAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		panic(err)
	}
}
