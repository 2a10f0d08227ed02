package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/foomo/keel"
	"github.com/foomo/keel/healthz"
	"github.com/foomo/keel/net/http/middleware"
	"github.com/foomo/keel/service"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bitshelter/filecatalog/pkg/browse"
	"github.com/bitshelter/filecatalog/pkg/engine"
	"github.com/bitshelter/filecatalog/pkg/handler"
	"github.com/bitshelter/filecatalog/pkg/registry"
	"github.com/bitshelter/filecatalog/pkg/task"
)

func NewHTTPCommand() *cobra.Command {
	v := newViper()
	// TODO: When keel is updated, set it in the correct place
	service.DefaultHTTPPProfAddr = ":6060"

	cmd := &cobra.Command{
		Use:   "http",
		Short: "Start http server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svr := keel.NewServer(
				keel.WithHTTPPrometheusService(servicePrometheusEnabledFlag(v)),
				keel.WithHTTPHealthzService(serviceHealthzEnabledFlag(v)),
				keel.WithPrometheusMeter(servicePrometheusEnabledFlag(v)),
				keel.WithGracefulPeriod(gracefulPeriodFlag(v)),
				keel.WithOTLPGRPCTracer(otelEnabledFlag(v)),
				keel.WithHTTPPProfService(servicePProfEnabledFlag(v)),
			)

			l := svr.Logger()

			reg := registry.New(l.Named("inst.registry"), backupsFlag(v))
			if err := reg.Load(); err != nil {
				return fmt.Errorf("failed to load backup definitions: %w", err)
			}

			eng, err := createEngine(v, l)
			if err != nil {
				return err
			}

			queue := task.NewQueue(l.Named("inst.queue"), eng)
			browser := browse.New(l.Named("inst.browse"), reg, queue)

			registryLoadedHealther := healthz.NewHealthzerFn(func(ctx context.Context) error {
				if !reg.Loaded() {
					return errors.New("registry not loaded yet")
				}
				return nil
			})
			svr.AddStartupHealthzers(registryLoadedHealther)
			svr.AddReadinessHealthzers(registryLoadedHealther)

			svr.AddClosers(func(ctx context.Context) error {
				return eng.Close()
			})

			svr.AddServices(
				service.NewGoRoutine(l.Named("go.queue"), "queue", func(ctx context.Context, l *zap.Logger) error {
					return queue.Run(ctx)
				}),
				service.NewHTTP(l.Named("svc.http"), "http", addressFlag(v),
					handler.NewHTTP(l.Named("inst.handler"), browser, handler.WithBasePath(basePathFlag(v))),
					middleware.Telemetry(),
					middleware.Logger(),
					middleware.GZip(middleware.GZipWithLevel(gzipLevelFlag(v))),
					middleware.Recover(),
				),
			)

			svr.Run()
			return nil
		},
	}

	flags := cmd.Flags()
	addAddressFlag(flags, v)
	addBasePathFlag(flags, v)
	addBackupsFlag(flags, v)
	addIndexDirFlag(flags, v)
	addGracefulPeriodFlag(flags, v)
	addGzipLevelFlag(flags, v)
	addOtelEnabledFlag(flags, v)
	addServiceHealthzEnabledFlag(flags, v)
	addServicePrometheusEnabledFlag(flags, v)
	addServicePProfEnabledFlag(flags, v)

	return cmd
}

// createEngine wires the catalog engine, with a local fileset index
// when an index dir is configured
func createEngine(v *viper.Viper, l *zap.Logger) (*engine.Engine, error) {
	var opts []engine.Option
	if dir := indexDirFlag(v); dir != "" {
		index, err := engine.NewFilesystemStorage(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open index dir %q: %w", dir, err)
		}
		l.Info("using local fileset index", zap.String("dir", dir))
		opts = append(opts, engine.WithIndex(index))
	} else {
		l.Info("local fileset index disabled")
	}
	return engine.New(l.Named("inst.engine"), opts...), nil
}
