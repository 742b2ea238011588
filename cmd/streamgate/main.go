// Command streamgate runs the StreamGate daemon: a TLS-terminating
// front-end for framed TCP sessions. Every accepted connection is
// bootstrapped with the secure channel stage before the application
// sees it; the built-in application echoes payloads back to the peer.
//
// Usage:
//
//	streamgate [flags]
//
// Flags:
//
//	-config <path>  YAML configuration file (trust stores, policy,
//	                obfuscation, logging, discovery)
//	-listen <addr>  listen address override (e.g. ":8443")
//	-diag           print a TLS diagnostics report and exit
//	-debug          mirror protocol events to stderr
//
// Examples:
//
//	# Serve with a configuration file
//	streamgate -config gate.yaml
//
//	# Inspect the TLS stack and the loaded stores without serving
//	streamgate -config gate.yaml -diag
//
//	# Quick start on another port with protocol events on stderr
//	streamgate -config gate.yaml -listen :9443 -debug
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/streamgate-io/streamgate-go/pkg/config"
	"github.com/streamgate-io/streamgate-go/pkg/diag"
	"github.com/streamgate-io/streamgate-go/pkg/discovery"
	"github.com/streamgate-io/streamgate-go/pkg/examples"
	"github.com/streamgate-io/streamgate-go/pkg/gate"
	sglog "github.com/streamgate-io/streamgate-go/pkg/log"
	"github.com/streamgate-io/streamgate-go/pkg/obfs"
	"github.com/streamgate-io/streamgate-go/pkg/pipeline"
	"github.com/streamgate-io/streamgate-go/pkg/policy"
	"github.com/streamgate-io/streamgate-go/pkg/session"
	"github.com/streamgate-io/streamgate-go/pkg/transport"
	"github.com/streamgate-io/streamgate-go/pkg/trust"
)

var (
	configPath = flag.String("config", "", "path to the YAML configuration file")
	listenAddr = flag.String("listen", "", "listen address override (e.g. \":8443\")")
	diagMode   = flag.Bool("diag", false, "print a TLS diagnostics report and exit")
	debugMode  = flag.Bool("debug", false, "mirror protocol events to stderr")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *listenAddr != "" {
		cfg.Listen = *listenAddr
	}
	if *debugMode {
		cfg.Log.Debug = true
	}

	loader := trust.NewLoader(cfg.TrustConfig())

	pcfg, err := cfg.PolicyConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	pol, err := policy.New(pcfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *diagMode {
		runDiag(loader, pol)
		return
	}

	logger, closeLog, err := buildLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	baseStages, err := buildBaseStages(cfg, pol)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	g, err := gate.New(gate.Config{
		Trust:  loader,
		Policy: pol,
		App:    examples.NewEcho(),
		// Without a masking stage the secure stage goes to the
		// network end of the pipeline.
		PushFront: len(baseStages) == 0,
		Logger:    logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	server, err := transport.NewServer(transport.ServerConfig{
		Address:        cfg.Listen,
		Handler:        g,
		BaseStages:     baseStages,
		MaxMessageSize: cfg.MaxMessageSize,
		Logger:         logger,
		OnError: func(sess *session.Session, err error) {
			if sess != nil {
				log.Printf("session %s: %v", sess.ID(), err)
				return
			}
			log.Printf("accept: %v", err)
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := server.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to start server: %v\n", err)
		os.Exit(1)
	}
	log.Printf("StreamGate listening on %s", server.Addr())

	var advertiser *discovery.Advertiser
	if cfg.Discovery.Enabled {
		advertiser, err = announce(cfg, loader, pol, server.Addr())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			_ = server.Stop()
			os.Exit(1)
		}
		log.Printf("Announcing as %q via mDNS", advertiser.InstanceName())
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	if advertiser != nil {
		advertiser.Shutdown()
	}
	if err := server.Stop(); err != nil {
		log.Printf("stop: %v", err)
	}
	log.Println("Goodbye!")
}

// runDiag prints the TLS stack report. A trust load failure is reported
// on stderr but does not abort: the report still covers the stack and
// the policy.
func runDiag(loader *trust.Loader, pol *policy.Policy) {
	var material *trust.Material
	if loader.Configured() {
		m, err := loader.Material()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: trust material not loaded: %v\n", err)
		} else {
			material = m
		}
	}
	diag.Collect(material, pol).Format(os.Stdout)
}

// buildLogger assembles the protocol logger from the log block: a CBOR
// file logger when a path is set, a stderr mirror when debug is on.
// The returned closer flushes the file logger.
func buildLogger(cfg config.LogConfig) (sglog.Logger, func(), error) {
	var loggers []sglog.Logger
	closer := func() {}

	if cfg.Path != "" {
		fileLogger, err := sglog.NewFileLogger(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create protocol logger: %w", err)
		}
		loggers = append(loggers, fileLogger)
		closer = func() { _ = fileLogger.Close() }
	}
	if cfg.Debug {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		loggers = append(loggers, sglog.NewSlogAdapter(slog.New(handler)))
	}

	switch len(loggers) {
	case 0:
		return sglog.NoopLogger{}, closer, nil
	case 1:
		return loggers[0], closer, nil
	default:
		return sglog.NewMultiLogger(loggers...), closer, nil
	}
}

// buildBaseStages returns the pipeline stages every accepted session
// starts with. With obfuscation enabled that is the masking stage; the
// secure stage is inserted in front of it during bootstrap.
func buildBaseStages(cfg *config.Config, pol *policy.Policy) ([]pipeline.Stage, error) {
	key, err := cfg.ObfuscationKey()
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, nil
	}

	mode := obfs.ModeServer
	if pol.Role() == policy.RoleClient {
		mode = obfs.ModeClient
	}
	stage, err := obfs.NewStage(key, mode)
	if err != nil {
		return nil, err
	}
	return []pipeline.Stage{stage}, nil
}

// announce registers the gate in mDNS. The announced fingerprint is
// derived from the loaded leaf certificate so that probes can match
// the record against the handshake peer.
func announce(cfg *config.Config, loader *trust.Loader, pol *policy.Policy, addr net.Addr) (*discovery.Advertiser, error) {
	material, err := loader.Material()
	if err != nil {
		return nil, fmt.Errorf("discovery needs loaded trust material: %w", err)
	}

	port := uint16(transport.DefaultPort)
	if tcp, ok := addr.(*net.TCPAddr); ok {
		port = uint16(tcp.Port)
	}

	fingerprint := discovery.Fingerprint(material.Leaf.Raw)
	name := cfg.Discovery.InstanceName
	if name == "" {
		name = "streamgate-" + fingerprint
	}

	advCfg := discovery.DefaultAdvertiserConfig()
	advCfg.Interface = cfg.Discovery.Interface
	advertiser := discovery.NewAdvertiser(advCfg)

	info := &discovery.Info{
		InstanceName: name,
		Port:         port,
		Fingerprint:  fingerprint,
		TLSVersion:   advertisedVersion(pol),
		ClientAuth:   pol.ClientAuth().String(),
	}
	if err := advertiser.Advertise(info); err != nil {
		return nil, err
	}
	return advertiser, nil
}

// advertisedVersion renders the highest permitted protocol version in
// the compact "TLSv1.3" TXT form.
func advertisedVersion(pol *policy.Policy) string {
	_, hi := pol.VersionRange()
	if hi == 0 {
		hi = tls.VersionTLS13
	}
	return strings.ReplaceAll(tls.VersionName(hi), " ", "v")
}
