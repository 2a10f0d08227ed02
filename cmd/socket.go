package cmd

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bitshelter/filecatalog/pkg/browse"
	"github.com/bitshelter/filecatalog/pkg/handler"
	"github.com/bitshelter/filecatalog/pkg/registry"
	"github.com/bitshelter/filecatalog/pkg/task"
)

func NewSocketCommand() *cobra.Command {
	v := newViper()
	cmd := &cobra.Command{
		Use:   "socket",
		Short: "Start socket server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l := zap.L()

			reg := registry.New(l.Named("inst.registry"), backupsFlag(v))
			if err := reg.Load(); err != nil {
				return fmt.Errorf("failed to load backup definitions: %w", err)
			}

			eng, err := createEngine(v, l)
			if err != nil {
				return err
			}
			defer func() {
				if err := eng.Close(); err != nil {
					l.Warn("failed to close engine", zap.Error(err))
				}
			}()

			queue := task.NewQueue(l.Named("inst.queue"), eng)
			browser := browse.New(l.Named("inst.browse"), reg, queue)
			handle := handler.NewSocket(l.Named("inst.handler"), browser)

			go func() {
				if err := queue.Run(cmd.Context()); err != nil {
					l.Error("queue worker failed", zap.Error(err))
				}
			}()

			ln, err := net.Listen("tcp", addressFlag(v))
			if err != nil {
				return err
			}

			l.Info("started listening", zap.String("address", addressFlag(v)))

			for {
				// this blocks until connection or error
				conn, err := ln.Accept()
				if err != nil {
					l.Error("could not accept connection", zap.Error(err))
					continue
				}

				// a goroutine handles conn so that the loop can accept other connections
				go func() {
					l.Debug("accepted connection", zap.String("source", conn.RemoteAddr().String()))
					handle.Serve(conn)
					if err := conn.Close(); err != nil {
						l.Warn("failed to close connection", zap.Error(err))
					}
				}()
			}
		},
	}

	flags := cmd.Flags()
	addAddressFlag(flags, v)
	addBackupsFlag(flags, v)
	addIndexDirFlag(flags, v)

	return cmd
}
