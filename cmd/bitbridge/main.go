package main

import (
	"context"
	"flag"
	"net/http"

	"github.com/golang/glog"
	xws "golang.org/x/net/websocket"

	"github.com/robotalks/bitboard.go/pkg/bridge"
	"github.com/robotalks/bitboard.go/pkg/framework"
	"github.com/robotalks/bitboard.go/pkg/transport/mqtt"
	"github.com/robotalks/bitboard.go/pkg/transport/serial"
	"github.com/robotalks/bitboard.go/pkg/transport/websocket"
)

func init() {
	bridge.SetupFlags()
	serial.SetupFlags()
}

func main() {
	flag.Parse()

	serialConf := serial.NewConfig()
	port, err := serialConf.Open()
	if err != nil {
		glog.Fatal(err)
	}
	conf := bridge.NewConfig()
	b, err := conf.NewBridge(port, mqtt.BridgeMeta{
		Port:     serialConf.Port,
		BaudRate: serialConf.BaudRate,
	})
	if err != nil {
		glog.Fatal(err)
	}

	runner := framework.NewRunner().HandleSignals()
	runner.Go(framework.NamedRun("bridge", framework.RunFunc(func(ctx context.Context) error {
		return framework.RunWithContextCloser(ctx, port, func() error {
			return b.Run(ctx)
		})
	})))
	if conf.ListenAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/", websocket.Handler(func(conn *xws.Conn) {
			if err := b.ServeClient(conn); err != nil {
				glog.Warningf("client %s: %v", conn.Request().RemoteAddr, err)
			}
		}))
		server := &http.Server{Addr: conf.ListenAddr, Handler: mux}
		runner.Go(framework.NamedRun("websocket", framework.RunFunc(func(ctx context.Context) error {
			glog.Infof("websocket listening on %s", conf.ListenAddr)
			return framework.RunWithContextCloser(ctx, server, server.ListenAndServe)
		})))
	}
	if err := runner.Wait(); err != nil {
		glog.Fatal(err)
	}
}
