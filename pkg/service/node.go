package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/config"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/ids"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/interaction"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/log"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/registry"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/routing"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/signing"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/transport"
)

// Node is one OCPP networking node.
type Node struct {
	mu sync.RWMutex

	config config.NodeConfig
	self   ids.NetworkingNodeID
	state  ServiceState

	reg    *registry.Registry
	router *routing.Router
	gen    ids.Generator
	clock  clock.Clock

	// Signing (optional)
	signer   *signing.Signer
	keyIDs   []string
	verifier interaction.Verifier

	links    map[ids.NetworkingNodeID]*linkState
	handlers map[string]HandlerFunc

	// Logger for debug output (optional)
	logger *slog.Logger

	// Protocol event scope; the file logger is owned by the node.
	scope      log.Scope
	fileLogger *log.FileLogger

	// Context for handler cancellation
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// linkState is everything the node keeps per neighbour.
type linkState struct {
	link   transport.Link
	client *interaction.Client
	scope  log.Scope
}

func (ls *linkState) remote() ids.NetworkingNodeID {
	return ls.link.RemoteID()
}

// NewNode creates a node. The registry is frozen if it is not already;
// handlers and links are added afterwards.
func NewNode(cfg config.NodeConfig, reg *registry.Registry, opts ...Option) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, ErrNilRegistry
	}
	reg.Freeze()

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = clock.New()
	}
	if o.generator == nil {
		o.generator = cfg.Generator()
	}

	n := &Node{
		config:   cfg,
		self:     cfg.NodeIdentity(),
		state:    StateRunning,
		reg:      reg,
		router:   routing.New(cfg.NodeIdentity()),
		gen:      o.generator,
		clock:    o.clock,
		links:    make(map[ids.NetworkingNodeID]*linkState),
		handlers: make(map[string]HandlerFunc),
		logger:   o.logger,
	}

	if err := n.setupSigning(o.keys); err != nil {
		return nil, err
	}

	var loggers []log.Logger
	if o.protocolLogger != nil {
		loggers = append(loggers, o.protocolLogger)
	}
	if cfg.ProtocolLog != "" {
		fl, err := log.NewFileLogger(cfg.ProtocolLog)
		if err != nil {
			return nil, fmt.Errorf("opening protocol log: %w", err)
		}
		n.fileLogger = fl
		loggers = append(loggers, fl)
	}
	n.scope = log.Scope{NodeID: string(n.self), Now: n.clock.Now}
	if len(loggers) > 0 {
		n.scope.Logger = log.NewMultiLogger(loggers...)
	}

	n.ctx, n.cancel = context.WithCancel(context.Background())
	n.scope.State(log.StateEntityNode, string(n.self), "", StateRunning.String(), "")
	return n, nil
}

func (n *Node) setupSigning(keys signing.KeyStore) error {
	sc := n.config.Signing
	if keys == nil {
		store, err := sc.KeyStore()
		if err != nil {
			return err
		}
		keys = store
	}
	n.keyIDs = sc.KeyIDs
	if len(n.keyIDs) > 0 {
		n.signer = signing.NewSigner(keys, signing.WithSignerClock(n.clock))
	}
	if sc.VerificationPolicy() != signing.PolicyNone || sc.RequireSignature {
		n.verifier = signing.NewVerifier(keys, sc.VerificationPolicy(), sc.RequireSignature)
	}
	return nil
}

// ID returns the node id.
func (n *Node) ID() ids.NetworkingNodeID {
	return n.self
}

// Generator returns the id generator for new requests.
func (n *Node) Generator() ids.Generator {
	return n.gen
}

// Router returns the node's router.
func (n *Node) Router() *routing.Router {
	return n.router
}

// Registry returns the node's registry.
func (n *Node) Registry() *registry.Registry {
	return n.reg
}

// State returns the current node state.
func (n *Node) State() ServiceState {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

// AddLink attaches a link to a neighbour. The node installs itself as the
// link's frame and close handler.
func (n *Node) AddLink(link transport.Link) error {
	remote := link.RemoteID()

	scope := n.scope
	scope.LinkID = log.NewLinkID()
	scope.RemoteID = string(remote)

	corr := interaction.NewCorrelator(
		interaction.WithClock(n.clock),
		interaction.WithDefaultTimeout(n.config.RequestTimeout),
		interaction.WithLogger(scope),
	)
	ls := &linkState{
		link:   link,
		client: interaction.NewClient(link, corr, scope),
		scope:  scope,
	}

	n.mu.Lock()
	if n.state != StateRunning {
		n.mu.Unlock()
		return ErrNodeClosed
	}
	if _, exists := n.links[remote]; exists {
		n.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateLink, remote)
	}
	n.links[remote] = ls
	n.mu.Unlock()

	n.router.AddLink(remote)
	if remote == n.config.UplinkID() {
		n.router.SetUplink(remote)
	}
	link.SetHandler(n.HandleFrame)
	link.SetCloseHandler(func() { n.dropLink(ls, "link closed") })

	scope.State(log.StateEntityLink, string(remote), "", "UP", "")
	n.debugLog("link added", "remote", remote, "link_id", scope.LinkID)
	return nil
}

// RemoveLink detaches and closes the link to remote. Requests waiting on it
// end with ConnectionLost.
func (n *Node) RemoveLink(remote ids.NetworkingNodeID) error {
	ls := n.link(remote)
	if ls == nil {
		return fmt.Errorf("%w: %s", ErrUnknownLink, remote)
	}
	n.dropLink(ls, "removed")
	return ls.link.Close()
}

// HasLink returns true if a link to remote is attached.
func (n *Node) HasLink(remote ids.NetworkingNodeID) bool {
	return n.link(remote) != nil
}

// Pending returns the number of requests waiting on the link to remote.
func (n *Node) Pending(remote ids.NetworkingNodeID) int {
	ls := n.link(remote)
	if ls == nil {
		return 0
	}
	return ls.client.Correlator().Len()
}

func (n *Node) link(remote ids.NetworkingNodeID) *linkState {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.links[remote]
}

// dropLink forgets ls if it is still the current link to its remote.
func (n *Node) dropLink(ls *linkState, reason string) {
	remote := ls.remote()

	n.mu.Lock()
	current, ok := n.links[remote]
	if !ok || current != ls {
		n.mu.Unlock()
		return
	}
	delete(n.links, remote)
	n.mu.Unlock()

	n.router.RemoveLink(remote)
	ls.client.Correlator().Close()
	ls.scope.State(log.StateEntityLink, string(remote), "UP", "DOWN", reason)
	n.debugLog("link dropped", "remote", remote, "reason", reason)
}

// Close shuts the node down: every link is closed, outstanding requests end
// with ConnectionLost and running handlers are cancelled and awaited.
func (n *Node) Close() error {
	n.mu.Lock()
	if n.state != StateRunning {
		n.mu.Unlock()
		return nil
	}
	n.state = StateStopping
	links := make([]*linkState, 0, len(n.links))
	for _, ls := range n.links {
		links = append(links, ls)
	}
	n.mu.Unlock()

	n.cancel()
	for _, ls := range links {
		n.dropLink(ls, "node closed")
		_ = ls.link.Close()
	}
	n.wg.Wait()

	n.mu.Lock()
	n.state = StateStopped
	n.mu.Unlock()
	n.scope.State(log.StateEntityNode, string(n.self), StateRunning.String(), StateStopped.String(), "")

	if n.fileLogger != nil {
		return n.fileLogger.Close()
	}
	return nil
}

// debugLog logs a debug message if logging is enabled.
func (n *Node) debugLog(msg string, args ...any) {
	if n.logger != nil {
		n.logger.Debug(msg, append([]any{"node", n.self}, args...)...)
	}
}
