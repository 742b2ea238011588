// Command streamgate-probe is an interactive client for StreamGate
// servers. It dials a gate, terminates the same stage pipeline from
// the client side (TLS outermost, optional obfuscation inside), and
// offers a small command loop for sending payloads and inspecting the
// session.
//
// Usage:
//
//	streamgate-probe [flags]
//
// Flags:
//
//	-config <path>        YAML configuration file (trust stores, policy,
//	                      obfuscation)
//	-addr <host:port>     default gate address for the connect command
//	-server-name <name>   expected server certificate name override
//	-protocol-log <path>  write protocol events to a CBOR log file
//
// Examples:
//
//	# Probe a local gate
//	streamgate-probe -config probe.yaml -addr 127.0.0.1:8443
//
//	# Record the session's protocol events for streamgate-log
//	streamgate-probe -config probe.yaml -protocol-log probe.sglog
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/streamgate-io/streamgate-go/cmd/streamgate-probe/interactive"
	"github.com/streamgate-io/streamgate-go/pkg/config"
	sglog "github.com/streamgate-io/streamgate-go/pkg/log"
	"github.com/streamgate-io/streamgate-go/pkg/policy"
	"github.com/streamgate-io/streamgate-go/pkg/trust"
)

var (
	configPath  = flag.String("config", "", "path to the YAML configuration file")
	defaultAddr = flag.String("addr", "127.0.0.1:8443", "default gate address for connect")
	serverName  = flag.String("server-name", "", "expected server certificate name override")
	protocolLog = flag.String("protocol-log", "", "write protocol events to this CBOR log file")
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

	loader := trust.NewLoader(cfg.TrustConfig())

	pcfg, err := cfg.PolicyConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	// The probe always plays the client side of the handshake,
	// whatever the file says.
	pcfg.Role = policy.RoleClient
	if *serverName != "" {
		pcfg.ServerName = *serverName
	}
	pol, err := policy.New(pcfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := sglog.Logger(sglog.NoopLogger{})
	if *protocolLog != "" {
		fileLogger, err := sglog.NewFileLogger(*protocolLog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create protocol logger: %v\n", err)
			os.Exit(1)
		}
		defer fileLogger.Close()
		logger = fileLogger
	}

	obfsKey, err := cfg.ObfuscationKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	probe, err := interactive.New(interactive.Config{
		Trust:       loader,
		Policy:      pol,
		ObfsKey:     obfsKey,
		DefaultAddr: *defaultAddr,
		Logger:      logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	probe.Run(ctx, cancel)
}
