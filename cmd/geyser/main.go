package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"geyser-mq-sol/internal/config"
	"geyser-mq-sol/internal/logic/geyser"
	"geyser-mq-sol/internal/svc"
	"geyser-mq-sol/pkg/logger"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
	zerosvc "github.com/zeromicro/go-zero/core/service"
)

var configFile = flag.String("f", "etc/geyser.yaml", "the config file")

func main() {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
		}
	}()

	flag.Parse()

	var c config.Config
	conf.MustLoad(*configFile, &c)

	if err := logger.Init(c.LogConf.ToLogOption()); err != nil {
		panic(err)
	}
	defer logger.Sync()

	serviceContext, err := svc.NewServiceContext(context.Background(), c)
	if err != nil {
		logger.Errorf("service context init failed: %v", err)
		os.Exit(1)
	}
	defer serviceContext.Close()

	updateChan := make(chan *pb.SubscribeUpdate, 1024)

	streamService, err := geyser.NewStreamManager(serviceContext, updateChan)
	if err != nil {
		logger.Errorf("stream manager init failed: %v", err)
		os.Exit(1)
	}

	sg := zerosvc.NewServiceGroup()
	sg.Add(geyser.NewProcessor(serviceContext, updateChan))
	sg.Add(streamService)

	// 等待退出信号
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logx.Info("shutting down services...")
		sg.Stop()
	}()

	logx.Infof("starting geyser forwarding service")
	sg.Start()
}
