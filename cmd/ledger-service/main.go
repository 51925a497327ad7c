package main

import (
	"flag"
	"fmt"

	"google.golang.org/grpc"

	"github.com/CarRentChain/CarRentChain/internal/booking"
	"github.com/CarRentChain/CarRentChain/internal/common/config"
	"github.com/CarRentChain/CarRentChain/internal/common/db"
	"github.com/CarRentChain/CarRentChain/internal/common/logger"
	"github.com/CarRentChain/CarRentChain/internal/common/server"
	"github.com/CarRentChain/CarRentChain/internal/common/tracing"
	"github.com/CarRentChain/CarRentChain/internal/company"
	"github.com/CarRentChain/CarRentChain/internal/event"
	"github.com/CarRentChain/CarRentChain/internal/ledger"
	"github.com/CarRentChain/CarRentChain/internal/market"
)

var (
	configPath = flag.String("config", "configs/ledger-service.json", "配置文件路径")
)

func main() {
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	// 初始化链路追踪
	tracer, closer, err := tracing.InitTracer(
		cfg.Server.Name,
		cfg.Jaeger.Endpoint,
		cfg.Jaeger.Sampler,
	)
	if err != nil {
		log.Warnf("failed to init tracer: %v", err)
	} else {
		defer closer.Close()
	}
	_ = tracer

	// 初始化数据库
	gormDB, err := db.NewMySQL(
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Database,
		cfg.Database.MaxIdle,
		cfg.Database.MaxOpen,
	)
	if err != nil {
		log.Fatalf("failed to init mysql: %v", err)
	}
	if err := gormDB.AutoMigrate(
		&ledger.Entry{},
		&company.Company{},
		&company.Customer{},
		&company.Car{},
		&company.CarPrice{},
		&company.CarMemo{},
		&booking.Record{},
		&market.CarCompany{},
		&market.Car{},
		&market.Listing{},
	); err != nil {
		log.Fatalf("failed to migrate mysql schema: %v", err)
	}

	// 组装领域服务（当前通过库内调用使用；gRPC 业务接口待 proto 落地后注册）
	companySvc := company.NewService(company.NewRepo(gormDB))
	bookingSvc := booking.NewService(booking.NewRepo(gormDB), ledger.SystemClock{})
	marketSvc := market.NewService(gormDB, event.NewEmitter(event.LogSink{Log: log}, log))
	_ = companySvc
	_ = bookingSvc
	_ = marketSvc

	// 启动统一的 gRPC 服务模板
	if err := server.RunGRPCServer(cfg, log, func(s *grpc.Server) error {
		// TODO: 在 internal/api/proto 下补齐业务 proto 后，在这里注册
		// pb.RegisterLedgerServiceServer(s, ...)
		return nil
	}); err != nil {
		log.Fatalf("ledger-service exited with error: %v", err)
	}
}
