package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/matrousse/record-sharing-backend/api"
	"github.com/matrousse/record-sharing-backend/cmd/flags"
	"github.com/matrousse/record-sharing-backend/interfaces"
	"github.com/matrousse/record-sharing-backend/storage"
	"github.com/urfave/cli/v2"
)

var RecordServiceLogFlag = flags.LogServiceFlagFn("record-server")

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}

func main() {
	app := &cli.App{
		Name:  "record-server",
		Usage: "Serve the encrypted record sharing store",
		Flags: append([]cli.Flag{ListenAddrFlag, flags.StoreFlag, RecordServiceLogFlag}, flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			listenAddr := cCtx.String(ListenAddrFlag.Name)
			storeURI := cCtx.String(flags.StoreFlag.Name)

			logger := flags.SetupLogger(cCtx)

			location, err := interfaces.NewStoreLocation(storeURI)
			if err != nil {
				logger.Error("Invalid store location", "err", err, "uri", storeURI)
				return err
			}

			store, err := storage.NewStoreFactory(logger).StoreFor(location)
			if err != nil {
				logger.Error("Failed to create store", "err", err, "uri", storeURI)
				return err
			}
			if closer, ok := store.(interface{ Close() error }); ok {
				defer closer.Close()
			}

			logger.Info("Store initialized", "scheme", location.Scheme)

			server, err := api.New(flags.ConfigureServer(cCtx, logger, listenAddr), api.NewHandler(store, logger))
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
