// Package interactive provides the interactive command loop for the
// StreamGate probe.
package interactive

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/chzyer/readline"

	"github.com/streamgate-io/streamgate-go/pkg/diag"
	"github.com/streamgate-io/streamgate-go/pkg/discovery"
	"github.com/streamgate-io/streamgate-go/pkg/gate"
	"github.com/streamgate-io/streamgate-go/pkg/log"
	"github.com/streamgate-io/streamgate-go/pkg/obfs"
	"github.com/streamgate-io/streamgate-go/pkg/pipeline"
	"github.com/streamgate-io/streamgate-go/pkg/policy"
	"github.com/streamgate-io/streamgate-go/pkg/session"
	"github.com/streamgate-io/streamgate-go/pkg/transport"
	"github.com/streamgate-io/streamgate-go/pkg/trust"
)

// discoverTimeout bounds one discover command pass.
const discoverTimeout = 5 * time.Second

// Config assembles a Probe.
type Config struct {
	// Trust loads the probe's keystore/truststore pair. Required.
	Trust *trust.Loader

	// Policy is the finalized client-role policy. Required.
	Policy *policy.Policy

	// ObfsKey enables the masking stage when non-nil.
	ObfsKey []byte

	// DefaultAddr is dialed when connect is given no argument.
	DefaultAddr string

	// Logger receives protocol events (default: NoopLogger).
	Logger log.Logger
}

// Probe handles interactive mode for streamgate-probe. It is its own
// application handler: inbound payloads are printed to the terminal.
type Probe struct {
	trust       *trust.Loader
	policy      *policy.Policy
	client      *transport.Client
	defaultAddr string
	rl          *readline.Instance

	mu       sync.Mutex
	sess     *session.Session
	received int
}

// New creates a new interactive probe.
func New(cfg Config) (*Probe, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "probe> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	p := &Probe{
		trust:       cfg.Trust,
		policy:      cfg.Policy,
		defaultAddr: cfg.DefaultAddr,
		rl:          rl,
	}

	g, err := gate.New(gate.Config{
		Trust:     cfg.Trust,
		Policy:    cfg.Policy,
		App:       p,
		PushFront: len(cfg.ObfsKey) == 0,
		Logger:    cfg.Logger,
	})
	if err != nil {
		rl.Close()
		return nil, err
	}

	var baseStages []pipeline.Stage
	if len(cfg.ObfsKey) > 0 {
		stage, err := obfs.NewStage(cfg.ObfsKey, obfs.ModeClient)
		if err != nil {
			rl.Close()
			return nil, err
		}
		baseStages = append(baseStages, stage)
	}

	client, err := transport.NewClient(transport.ClientConfig{
		Handler:    g,
		BaseStages: baseStages,
		Logger:     cfg.Logger,
	})
	if err != nil {
		rl.Close()
		return nil, err
	}
	p.client = client

	return p, nil
}

// Stdout returns a writer that coordinates with the readline prompt.
func (p *Probe) Stdout() io.Writer {
	return p.rl.Stdout()
}

// Run starts the interactive command loop.
func (p *Probe) Run(ctx context.Context, cancel context.CancelFunc) {
	defer p.rl.Close()
	defer p.cmdClose()

	p.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := p.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(p.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			p.printHelp()

		case "connect", "c":
			p.cmdConnect(ctx, args)

		case "send", "s":
			p.cmdSend(args, 1)

		case "sendn":
			p.cmdSendN(args)

		case "status":
			p.cmdStatus()

		case "diag":
			p.cmdDiag()

		case "discover", "d":
			p.cmdDiscover(ctx)

		case "close":
			p.cmdClose()

		case "quit", "exit", "q":
			fmt.Fprintln(p.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(p.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (p *Probe) printHelp() {
	fmt.Fprintln(p.rl.Stdout(), `
StreamGate Probe Commands:
  Session:
    connect [addr]       - Connect to a gate (default from -addr)
    send <text>          - Send one payload on the session
    sendn <count> <text> - Send the payload count times
    close                - Close the session
    status               - Show session state and negotiated parameters

  Inspection:
    diag                 - Print the TLS stack and trust report
    discover             - Browse for gates announced via mDNS

  General:
    help                 - Show this help
    quit                 - Exit probe`)
}

// cmdConnect dials a gate and keeps the session as the current one.
func (p *Probe) cmdConnect(ctx context.Context, args []string) {
	addr := p.defaultAddr
	if len(args) > 0 {
		addr = args[0]
	}

	p.mu.Lock()
	busy := p.sess != nil
	p.mu.Unlock()
	if busy {
		fmt.Fprintln(p.rl.Stdout(), "Already connected (use 'close' first)")
		return
	}

	fmt.Fprintf(p.rl.Stdout(), "Connecting to %s...\n", addr)
	sess, err := p.client.Connect(ctx, addr)
	if err != nil {
		fmt.Fprintf(p.rl.Stdout(), "Connect failed: %v\n", err)
		return
	}

	p.mu.Lock()
	p.sess = sess
	p.received = 0
	p.mu.Unlock()

	fmt.Fprintf(p.rl.Stdout(), "Connected: session %s\n", shortID(sess.ID()))
	if cs, ok := sess.TLSState(); ok {
		fmt.Fprintf(p.rl.Stdout(), "Negotiated: %s %s\n",
			versionName(cs.Version), cipherName(cs.CipherSuite))
	}
}

func (p *Probe) cmdSend(args []string, count int) {
	if len(args) == 0 {
		fmt.Fprintln(p.rl.Stdout(), "Usage: send <text>")
		return
	}

	p.mu.Lock()
	sess := p.sess
	p.mu.Unlock()
	if sess == nil {
		fmt.Fprintln(p.rl.Stdout(), "Not connected")
		return
	}

	payload := []byte(strings.Join(args, " "))
	for i := 0; i < count; i++ {
		if err := sess.Send(payload); err != nil {
			fmt.Fprintf(p.rl.Stdout(), "Send failed: %v\n", err)
			return
		}
	}
	fmt.Fprintf(p.rl.Stdout(), "Sent %d byte(s) x%d\n", len(payload), count)
}

func (p *Probe) cmdSendN(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(p.rl.Stdout(), "Usage: sendn <count> <text>")
		return
	}
	count, err := strconv.Atoi(args[0])
	if err != nil || count < 1 {
		fmt.Fprintf(p.rl.Stdout(), "Invalid count: %s\n", args[0])
		return
	}
	p.cmdSend(args[1:], count)
}

func (p *Probe) cmdStatus() {
	p.mu.Lock()
	sess := p.sess
	received := p.received
	p.mu.Unlock()

	if sess == nil {
		fmt.Fprintln(p.rl.Stdout(), "Not connected")
		return
	}

	w := p.rl.Stdout()
	fmt.Fprintf(w, "Session:  %s\n", sess.ID())
	fmt.Fprintf(w, "State:    %s\n", sess.State())
	if addr := sess.RemoteAddr(); addr != nil {
		fmt.Fprintf(w, "Remote:   %s\n", addr)
	}
	fmt.Fprintf(w, "Stages:   %s\n", strings.Join(sess.Pipeline().Names(), " -> "))
	if cs, ok := sess.TLSState(); ok {
		fmt.Fprintf(w, "TLS:      %s %s\n", versionName(cs.Version), cipherName(cs.CipherSuite))
		if len(cs.PeerCertificates) > 0 {
			fmt.Fprintf(w, "Peer:     %s\n", cs.PeerCertificates[0].Subject)
		}
	}
	fmt.Fprintf(w, "Received: %d payload(s)\n", received)
}

func (p *Probe) cmdDiag() {
	var material *trust.Material
	if p.trust.Configured() {
		m, err := p.trust.Material()
		if err != nil {
			fmt.Fprintf(p.rl.Stdout(), "Warning: trust material not loaded: %v\n", err)
		} else {
			material = m
		}
	}
	diag.Collect(material, p.policy).Format(p.rl.Stdout())
}

func (p *Probe) cmdDiscover(ctx context.Context) {
	browseCtx, cancel := context.WithTimeout(ctx, discoverTimeout)
	defer cancel()

	gates, err := discovery.Browse(browseCtx, discovery.BrowserConfig{})
	if err != nil {
		fmt.Fprintf(p.rl.Stdout(), "Browse failed: %v\n", err)
		return
	}

	fmt.Fprintln(p.rl.Stdout(), "Browsing for gates...")
	found := 0
	for g := range gates {
		found++
		addr := g.Host
		if len(g.Addresses) > 0 {
			addr = g.Addresses[0]
		}
		fmt.Fprintf(p.rl.Stdout(), "  %s at %s:%d fp=%s", g.InstanceName, addr, g.Port, g.Fingerprint)
		if g.TLSVersion != "" {
			fmt.Fprintf(p.rl.Stdout(), " tls=%s", g.TLSVersion)
		}
		if g.ClientAuth != "" {
			fmt.Fprintf(p.rl.Stdout(), " auth=%s", g.ClientAuth)
		}
		fmt.Fprintln(p.rl.Stdout())
	}
	if found == 0 {
		fmt.Fprintln(p.rl.Stdout(), "No gates found")
	}
}

func (p *Probe) cmdClose() {
	p.mu.Lock()
	sess := p.sess
	p.sess = nil
	p.mu.Unlock()

	if sess == nil {
		return
	}
	if err := sess.Close(); err != nil {
		fmt.Fprintf(p.rl.Stdout(), "Close failed: %v\n", err)
	}
}

// OnSessionOpen implements gate.AppHandler.
func (p *Probe) OnSessionOpen(sess *session.Session) error {
	return nil
}

// OnSessionMessage implements gate.AppHandler: inbound payloads are
// printed to the terminal.
func (p *Probe) OnSessionMessage(sess *session.Session, payload []byte) {
	p.mu.Lock()
	p.received++
	p.mu.Unlock()

	fmt.Fprintf(p.rl.Stdout(), "<< [%s] %s\n", shortID(sess.ID()), renderPayload(payload))
}

// OnSessionClose implements gate.AppHandler.
func (p *Probe) OnSessionClose(sess *session.Session, err error) {
	p.mu.Lock()
	if p.sess == sess {
		p.sess = nil
	}
	p.mu.Unlock()

	if err != nil {
		fmt.Fprintf(p.rl.Stdout(), "Session %s closed: %v\n", shortID(sess.ID()), err)
		return
	}
	fmt.Fprintf(p.rl.Stdout(), "Session %s closed\n", shortID(sess.ID()))
}

var _ gate.AppHandler = (*Probe)(nil)

// renderPayload shows printable payloads as text, everything else as
// a hex dump.
func renderPayload(payload []byte) string {
	printable := true
	for _, r := range string(payload) {
		if r == unicode.ReplacementChar || (!unicode.IsPrint(r) && !unicode.IsSpace(r)) {
			printable = false
			break
		}
	}
	if printable {
		return string(payload)
	}
	return fmt.Sprintf("% x (%d bytes)", payload, len(payload))
}

func shortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func versionName(v uint16) string {
	return tls.VersionName(v)
}

func cipherName(id uint16) string {
	return tls.CipherSuiteName(id)
}
