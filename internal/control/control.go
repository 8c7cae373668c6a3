package control

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quantusnet/minercore/internal/infrastructure/mqtt"
	"github.com/quantusnet/minercore/internal/miner"
)

// Supervisor is the subset of the miner supervisor the controller drives.
type Supervisor interface {
	Start(ctx context.Context, cfg miner.Config) error
	Stop() error
	RepairAndRestart(ctx context.Context) error
	UnlockAndRestart(ctx context.Context) error
}

// Subscriber is the subset of the MQTT client the controller attaches to.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// StartRequest is the optional JSON payload of a start command.
// Absent fields fall back to the base config from config.yaml.
type StartRequest struct {
	Chain          string   `json:"chain,omitempty"`
	RewardsAddress string   `json:"rewards_address,omitempty"`
	ExtraArgs      []string `json:"extra_args,omitempty"`
	LogToFile      *bool    `json:"log_to_file,omitempty"`
}

// Controller routes inbound MQTT commands to supervisor operations.
//
// Command topics: quantus/miner/command/{start,stop,repair,unlock}.
// The start payload may carry a StartRequest overriding the base
// config; the other commands take no payload.
type Controller struct {
	sup    Supervisor
	base   miner.Config
	logger miner.Logger
}

// New creates a Controller with the base config used for start
// commands without overrides.
func New(sup Supervisor, base miner.Config, logger miner.Logger) *Controller {
	return &Controller{sup: sup, base: base, logger: logger}
}

// Attach subscribes the controller to the command topic pattern.
// Handlers run on the MQTT client's goroutines; operations block until
// done, which is acceptable for a command cadence of one at a time.
func (c *Controller) Attach(ctx context.Context, sub Subscriber, qos byte) error {
	topic := mqtt.Topics{}.AllMinerCommands()
	if err := sub.Subscribe(topic, qos, func(t string, payload []byte) error {
		return c.dispatch(ctx, t, payload)
	}); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	return nil
}

// dispatch executes one command. Unknown operations are logged and
// dropped rather than erroring the subscription.
func (c *Controller) dispatch(ctx context.Context, topic string, payload []byte) error {
	op := topic[strings.LastIndex(topic, "/")+1:]
	c.logger.Info("command received", "op", op)

	switch op {
	case "start":
		cfg, err := c.startConfig(payload)
		if err != nil {
			return err
		}
		return c.sup.Start(ctx, cfg)
	case "stop":
		return c.sup.Stop()
	case "repair":
		return c.sup.RepairAndRestart(ctx)
	case "unlock":
		return c.sup.UnlockAndRestart(ctx)
	default:
		c.logger.Warn("unknown command", "op", op)
		return nil
	}
}

// startConfig merges an optional StartRequest payload over the base config.
func (c *Controller) startConfig(payload []byte) (miner.Config, error) {
	cfg := c.base.Clone()
	if len(payload) == 0 {
		return cfg, nil
	}

	var req StartRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return miner.Config{}, fmt.Errorf("parsing start payload: %w", err)
	}

	if req.Chain != "" {
		cfg.Chain = req.Chain
	}
	if req.RewardsAddress != "" {
		cfg.RewardsAddress = req.RewardsAddress
	}
	if req.ExtraArgs != nil {
		cfg.ExtraArgs = append([]string(nil), req.ExtraArgs...)
	}
	if req.LogToFile != nil {
		cfg.LogToFile = *req.LogToFile
	}
	return cfg, nil
}
