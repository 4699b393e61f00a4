package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"time"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/config"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/ids"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/messages"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/registry"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/service"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/transport"
	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/pkg/wire"
)

// DemoVendorID is the DataTransfer vendor the demo CSMS understands.
const DemoVendorID = "cloud.charging.open.demo"

// Default node ids of the demo topology.
const (
	DefaultStationID = "CS-1"
	DefaultRelayID   = "LC-1"
	DefaultCSMSID    = "CSMS"
)

// demoOptions configures the three-node topology.
type demoOptions struct {
	StationConfig  string
	RelayConfig    string
	CSMSConfig     string
	ProtocolLogDir string

	Heartbeats int
	Interval   time.Duration
	Logger     *slog.Logger
}

// summary counts the responses the station received.
type summary struct {
	OK     int
	Failed int
	Last   wire.Result
}

func (s *summary) record(r wire.Result) {
	if r.IsOK() {
		s.OK++
	} else {
		s.Failed++
	}
	s.Last = r
}

// demo is a charging station behind a local controller, both uplinked
// towards a CSMS.
type demo struct {
	station *service.Node
	relay   *service.Node
	csms    *service.Node
	opts    demoOptions
	logger  *slog.Logger
}

func loadNodeConfig(path, id, uplink, logDir string) (config.NodeConfig, error) {
	cfg := config.DefaultNodeConfig()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.NodeConfig{}, err
		}
		cfg = *loaded
	} else {
		cfg.NodeID = id
		cfg.Uplink = uplink
	}
	if logDir != "" && cfg.ProtocolLog == "" {
		cfg.ProtocolLog = filepath.Join(logDir, cfg.NodeID+".olog")
	}
	return cfg, nil
}

func newDemo(opts demoOptions) (*demo, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Interval <= 0 {
		return nil, errors.New("heartbeat interval must be positive")
	}

	stationCfg, err := loadNodeConfig(opts.StationConfig, DefaultStationID, DefaultRelayID, opts.ProtocolLogDir)
	if err != nil {
		return nil, fmt.Errorf("station: %w", err)
	}
	relayCfg, err := loadNodeConfig(opts.RelayConfig, DefaultRelayID, DefaultCSMSID, opts.ProtocolLogDir)
	if err != nil {
		return nil, fmt.Errorf("relay: %w", err)
	}
	csmsCfg, err := loadNodeConfig(opts.CSMSConfig, DefaultCSMSID, "", opts.ProtocolLogDir)
	if err != nil {
		return nil, fmt.Errorf("csms: %w", err)
	}

	reg := messages.NewRegistry()
	d := &demo{opts: opts, logger: opts.Logger}
	if d.station, err = newNode(stationCfg, reg, opts.Logger); err != nil {
		return nil, err
	}
	if d.relay, err = newNode(relayCfg, reg, opts.Logger); err != nil {
		_ = d.Close()
		return nil, err
	}
	if d.csms, err = newNode(csmsCfg, reg, opts.Logger); err != nil {
		_ = d.Close()
		return nil, err
	}

	if err := connect(d.station, d.relay); err != nil {
		_ = d.Close()
		return nil, err
	}
	if err := connect(d.relay, d.csms); err != nil {
		_ = d.Close()
		return nil, err
	}
	if err := d.registerCSMSHandlers(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

func newNode(cfg config.NodeConfig, reg *registry.Registry, logger *slog.Logger) (*service.Node, error) {
	n, err := service.NewNode(cfg, reg, service.WithLogger(logger.With("node", cfg.NodeID)))
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", cfg.NodeID, err)
	}
	return n, nil
}

func connect(a, b *service.Node) error {
	la, lb := transport.NewPipe(a.ID(), b.ID(), 16)
	if err := a.AddLink(la); err != nil {
		return err
	}
	return b.AddLink(lb)
}

func (d *demo) registerCSMSHandlers() error {
	interval := int64(math.Ceil(d.opts.Interval.Seconds()))

	if err := service.Handle(d.csms, messages.ActionBootNotification,
		func(_ context.Context, req *wire.Request[messages.BootNotificationRequest]) *wire.Response[messages.BootNotificationRequest, messages.BootNotificationResponse] {
			d.logger.Info("boot notification",
				"station", req.Origin(),
				"vendor", req.Payload.ChargingStation.VendorName,
				"model", req.Payload.ChargingStation.Model,
				"reason", req.Payload.Reason)
			return wire.NewResponse[messages.BootNotificationRequest](req,
				messages.NewBootNotificationResponse(time.Now().UTC(), interval, messages.RegistrationAccepted))
		}); err != nil {
		return err
	}

	if err := service.Handle(d.csms, messages.ActionHeartbeat,
		func(_ context.Context, req *wire.Request[messages.HeartbeatRequest]) *wire.Response[messages.HeartbeatRequest, messages.HeartbeatResponse] {
			return wire.NewResponse[messages.HeartbeatRequest](req, messages.HeartbeatResponse{CurrentTime: time.Now().UTC()})
		}); err != nil {
		return err
	}

	return service.Handle(d.csms, messages.ActionDataTransfer,
		func(_ context.Context, req *wire.Request[messages.DataTransferRequest]) *wire.Response[messages.DataTransferRequest, messages.DataTransferResponse] {
			if req.Payload.VendorID != DemoVendorID {
				return wire.NewResponse[messages.DataTransferRequest](req, messages.DataTransferResponse{
					Status:     messages.DataTransferUnknownVendorID,
					StatusInfo: &wire.StatusInfo{ReasonCode: "UnknownVendor"},
				})
			}
			return wire.NewResponse[messages.DataTransferRequest](req, messages.DataTransferResponse{
				Status: messages.DataTransferAccepted,
				Data:   req.Payload.Data,
			})
		})
}

// run boots the station, exchanges one DataTransfer and sends the
// configured number of heartbeats.
func (d *demo) run(ctx context.Context) (summary, error) {
	var sum summary
	csms := d.csms.ID()

	serial := "DEMO-0001"
	boot := wire.NewRequest(d.station.Generator(), csms, messages.ActionBootNotification,
		messages.NewBootNotificationRequest(messages.ChargingStation{
			Model:        "Demo Wallbox",
			VendorName:   "Open Charging Cloud",
			SerialNumber: &serial,
		}, messages.BootReasonPowerUp))
	bootResp := service.Send[messages.BootNotificationRequest, messages.BootNotificationResponse](ctx, d.station, boot)
	sum.record(bootResp.Result)
	if !bootResp.IsOK() {
		return sum, fmt.Errorf("boot notification: %s", bootResp.Result)
	}
	d.logger.Info("registered",
		"status", bootResp.Payload.Status,
		"interval", bootResp.Payload.Interval,
		"path", boot.NetworkPath,
		"runtime", bootResp.Runtime)

	msgID := "ping"
	dt := wire.NewRequest(d.station.Generator(), csms, messages.ActionDataTransfer,
		messages.NewDataTransferRequest(DemoVendorID, &msgID, json.RawMessage(`{"seq":1}`)))
	dtResp := service.Send[messages.DataTransferRequest, messages.DataTransferResponse](ctx, d.station, dt)
	sum.record(dtResp.Result)
	if dtResp.IsOK() {
		d.logger.Info("data transfer", "status", dtResp.Payload.Status, "data", string(dtResp.Payload.Data))
	}

	ticker := time.NewTicker(d.opts.Interval)
	defer ticker.Stop()
	for i := 0; i < d.opts.Heartbeats; i++ {
		hb := wire.NewRequest(d.station.Generator(), csms, messages.ActionHeartbeat, messages.HeartbeatRequest{})
		resp := service.Send[messages.HeartbeatRequest, messages.HeartbeatResponse](ctx, d.station, hb)
		sum.record(resp.Result)
		if resp.IsOK() {
			d.logger.Info("heartbeat", "seq", i+1, "csms_time", resp.Payload.CurrentTime, "runtime", resp.Runtime)
		} else {
			d.logger.Warn("heartbeat failed", "seq", i+1, "result", resp.Result.String())
		}
		if i == d.opts.Heartbeats-1 {
			break
		}
		select {
		case <-ctx.Done():
			return sum, ctx.Err()
		case <-ticker.C:
		}
	}
	return sum, nil
}

// Close shuts down all nodes.
func (d *demo) Close() error {
	var errs []error
	for _, n := range []*service.Node{d.station, d.relay, d.csms} {
		if n != nil {
			errs = append(errs, n.Close())
		}
	}
	return errors.Join(errs...)
}

// nodeIDs lists the topology for display.
func (d *demo) nodeIDs() []ids.NetworkingNodeID {
	return []ids.NetworkingNodeID{d.station.ID(), d.relay.ID(), d.csms.ID()}
}
