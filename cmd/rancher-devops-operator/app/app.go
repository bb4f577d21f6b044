// SPDX-FileCopyrightText: Rancher DevOps Operator contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package app wires the command-line entrypoint: flag/config parsing,
// logger construction, manager setup, and controller/background-loop
// registration, in the style of gardener's per-component cmd/<name>/app
// packages (e.g. cmd/gardener-operator/app).
package app

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	logzap "sigs.k8s.io/controller-runtime/pkg/log/zap"
	"sigs.k8s.io/controller-runtime/pkg/manager"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	rancherdevopsv1 "github.com/Jasonrve/rancher-devops-operator/api/v1"
	"github.com/Jasonrve/rancher-devops-operator/internal/auth"
	"github.com/Jasonrve/rancher-devops-operator/internal/config"
	projectcontroller "github.com/Jasonrve/rancher-devops-operator/internal/controller/project"
	"github.com/Jasonrve/rancher-devops-operator/internal/guard"
	"github.com/Jasonrve/rancher-devops-operator/internal/observe"
	"github.com/Jasonrve/rancher-devops-operator/internal/platform"
	memberreconciler "github.com/Jasonrve/rancher-devops-operator/internal/reconcile/member"
	namespacereconciler "github.com/Jasonrve/rancher-devops-operator/internal/reconcile/namespace"
	"github.com/Jasonrve/rancher-devops-operator/internal/statuswriter"
)

// Name is the name of this component, used in log lines and the leader
// election lease name.
const Name = "rancher-devops-operator"

type options struct {
	configFile             string
	metricsBindAddress     string
	healthProbeBindAddress string
	leaderElect            bool
	development            bool
}

func (o *options) addFlags(flags *pflag.FlagSet) {
	flags.StringVar(&o.configFile, "config", "", "path to the operator's configuration file")
	flags.StringVar(&o.metricsBindAddress, "metrics-bind-address", ":8080", "address the metrics endpoint binds to")
	flags.StringVar(&o.healthProbeBindAddress, "health-probe-bind-address", ":8081", "address the health probe endpoint binds to")
	flags.BoolVar(&o.leaderElect, "leader-elect", false, "enable leader election for controller manager")
	flags.BoolVar(&o.development, "development", false, "use a development (console, verbose) logger instead of the production JSON logger")
}

// NewCommand creates a new cobra.Command for running rancher-devops-operator.
func NewCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   Name,
		Short: "Launch the " + Name,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl.SetLogger(zapLogger(opts.development))

			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			return run(cmd.Context(), opts, cfg)
		},
	}

	opts.addFlags(cmd.Flags())
	return cmd
}

// zapLogger builds a logr.Logger backed by go.uber.org/zap, mirroring the
// teacher's ZapLogger helper: JSON production encoding with ISO8601
// timestamps, or a development console encoding when requested.
func zapLogger(development bool) logr.Logger {
	return logzap.New(func(o *logzap.Options) {
		var encCfg zapcore.EncoderConfig
		if development {
			encCfg = zap.NewDevelopmentEncoderConfig()
		} else {
			encCfg = zap.NewProductionEncoderConfig()
		}
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

		if development {
			o.Encoder = zapcore.NewConsoleEncoder(encCfg)
		} else {
			o.Encoder = zapcore.NewJSONEncoder(encCfg)
		}
		o.Development = development
	})
}

func run(ctx context.Context, opts *options, cfg *config.Config) error {
	scheme := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(rancherdevopsv1.AddToScheme(scheme))

	restConfig, err := ctrl.GetConfig()
	if err != nil {
		return fmt.Errorf("getting kubeconfig: %w", err)
	}

	mgr, err := ctrl.NewManager(restConfig, ctrl.Options{
		Scheme:                 scheme,
		Metrics:                metricsserver.Options{BindAddress: opts.metricsBindAddress},
		HealthProbeBindAddress: opts.healthProbeBindAddress,
		LeaderElection:         opts.leaderElect,
		LeaderElectionID:       "rancher-devops-operator-lock",
	})
	if err != nil {
		return fmt.Errorf("setting up manager: %w", err)
	}

	if err := mgr.AddHealthzCheck("ping", healthz.Ping); err != nil {
		return err
	}
	if err := mgr.AddReadyzCheck("ping", healthz.Ping); err != nil {
		return err
	}

	platformClient := newPlatformClient(cfg)

	statusWriter := &statuswriter.Writer{Client: mgr.GetClient()}
	ownershipGuard := &guard.Guard{Client: mgr.GetClient(), Log: mgr.GetLogger().WithName("guard")}
	recorder := mgr.GetEventRecorderFor(Name)

	reconciler := &projectcontroller.Reconciler{
		Client:            mgr.GetClient(),
		Platform:          platformClient,
		Recorder:          recorder,
		CleanupNamespaces: cfg.CleanupNamespaces,
		Status:            statusWriter,
		Namespaces: &namespacereconciler.Reconciler{
			Platform: platformClient,
			Guard:    ownershipGuard,
			Recorder: recorder,
			Log:      mgr.GetLogger().WithName("namespace-reconciler"),
		},
		Members: &memberreconciler.Reconciler{
			Platform: platformClient,
			Recorder: recorder,
			Log:      mgr.GetLogger().WithName("member-reconciler"),
		},
	}
	if err := reconciler.SetupWithManager(mgr); err != nil {
		return fmt.Errorf("setting up Project controller: %w", err)
	}

	observeLoop := &observe.Loop{
		Client:               mgr.GetClient(),
		Platform:             platformClient,
		Status:               statusWriter,
		Recorder:             recorder,
		Log:                  mgr.GetLogger().WithName("observe-loop"),
		Method:               cfg.ObserveMethod,
		ClusterCheckInterval: cfg.ClusterCheckInterval,
		PollingInterval:      cfg.PollingInterval,
	}
	if err := mgr.Add(manager.RunnableFunc(observeLoop.Run)); err != nil {
		return fmt.Errorf("adding observe loop to manager: %w", err)
	}

	mgr.GetLogger().Info("Starting manager")
	return mgr.Start(ctx)
}

// newPlatformClient builds the default HTTP-backed platform.Client from the
// resolved configuration, selecting a long-lived static token when one is
// configured and falling back to the username/password refresher otherwise.
func newPlatformClient(cfg *config.Config) platform.Client {
	var tokens *auth.Cache
	if cfg.RancherToken != "" {
		tokens = auth.NewStaticCache(cfg.RancherToken)
	} else {
		tokens = auth.NewCache(platform.NewPasswordRefresher(cfg.RancherURL, cfg.RancherUsername, cfg.RancherPassword, cfg.RancherAllowInsecureSSL))
	}
	return platform.NewHTTPClient(cfg.RancherURL, tokens, cfg.RancherAllowInsecureSSL)
}
