package vsol

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/nanoncore/nano-onusync/drivers/cli"
	"github.com/nanoncore/nano-onusync/logger"
	"github.com/nanoncore/nano-onusync/types"
	"github.com/nanoncore/nano-onusync/vendors/adapter"
	"github.com/nanoncore/nano-onusync/vendors/common"
)

// DefaultPONPorts covers the eight ports of a V1600G chassis.
var DefaultPONPorts = []string{"0/1", "0/2", "0/3", "0/4", "0/5", "0/6", "0/7", "0/8"}

// menuRecoveryTimeout bounds the wait for config mode after leaving an
// interface that did not answer in time.
var menuRecoveryTimeout = 2 * time.Second

var (
	loginPrompt    = regexp.MustCompile(`(?i)login:\s*$`)
	passwordPrompt = regexp.MustCompile(`(?i)password:\s*$`)
	userPrompt     = regexp.MustCompile(`[\w\-]+>\s*$`)
	privPrompt     = regexp.MustCompile(`[\w\-]+#\s*$`)
	configPrompt   = regexp.MustCompile(`[\w\-]+\(config\)#\s*$`)
)

func portPrompt(port string) *regexp.Regexp {
	return regexp.MustCompile(`[\w\-]+\(config-pon-` + regexp.QuoteMeta(port) + `\)#\s*$`)
}

// portOrConfigPrompt matches the PON interface mode, or configuration mode
// when the OLT rejects the interface.
func portOrConfigPrompt(port string) *regexp.Regexp {
	return regexp.MustCompile(`[\w\-]+\(config(?:-pon-` + regexp.QuoteMeta(port) + `)?\)#\s*$`)
}

// GPONAdapter lists ONUs of a V-SOL GPON OLT over SSH. Some firmware asks
// for CLI credentials again once the SSH channel is up.
type GPONAdapter struct {
	opts adapter.Options
	log  logger.Logger
}

// NewGPONAdapter creates the V-SOL GPON SSH adapter
func NewGPONAdapter(opts adapter.Options) *GPONAdapter {
	return &GPONAdapter{opts: opts, log: opts.Log("vsol-ssh")}
}

func (a *GPONAdapter) loginScript(ep *types.DeviceEndpoint) []cli.Step {
	return []cli.Step{
		{
			Name:   "user prompt",
			Expect: userPrompt,
			Send:   "enable\n",
			Answers: []cli.Answer{
				{Match: loginPrompt, Send: ep.Username + "\n"},
				{Match: passwordPrompt, Send: ep.Password + "\n", Secret: true},
			},
		},
		{
			Name:    "enable",
			Expect:  privPrompt,
			Send:    "configure terminal\n",
			Answers: []cli.Answer{{Match: passwordPrompt, Send: ep.Password + "\n", Secret: true}},
		},
		{Name: "configure", Expect: configPrompt},
	}
}

func (a *GPONAdapter) ports(ep *types.DeviceEndpoint) []string {
	if v, ok := common.GetMetadataString(ep.Metadata, "pon_ports"); ok {
		ports, err := common.ParsePortList(v)
		if err == nil && len(ports) > 0 {
			return ports
		}
		a.log.Warn().Str("pon_ports", v).Msg("invalid pon_ports, using defaults")
	}
	return DefaultPONPorts
}

// Fetch logs in, disables paging and lists the ONUs of every PON port.
func (a *GPONAdapter) Fetch(ctx context.Context, ep *types.DeviceEndpoint) ([]types.ONURecord, error) {
	cfg := a.opts.SessionConfig(ep, a.log)
	cfg.Transport = a.opts.TransportFor(ep, func() cli.Transport {
		return &cli.SSHTransport{
			Host:        ep.Address,
			Port:        ep.PortFor(types.ProtocolSSH),
			Username:    ep.Username,
			Password:    ep.Password,
			DialTimeout: a.opts.DialTimeout,
		}
	})
	cfg.Login = a.loginScript(ep)
	cfg.Logout = "exit"

	var records []types.ONURecord
	err := cli.Run(ctx, cfg, func(s *cli.Session) error {
		// pagination is still answered if the firmware ignores this
		if _, err := s.Command("terminal length 0", configPrompt, 0); err != nil {
			if cli.IsFatal(err) {
				return err
			}
			a.log.Debug().Err(err).Msg("terminal length not accepted")
		}

		for _, port := range a.ports(ep) {
			recs, err := a.pollPort(s, port)
			if err != nil {
				return err
			}
			records = append(records, recs...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.log.Info().Str("device", ep.Name).Int("onus", len(records)).Msg("ssh poll complete")
	return records, nil
}

// pollPort enters a GPON interface and lists its ONUs. Interfaces the OLT
// rejects are skipped, as are interfaces that do not answer in time once
// the shell is back at the config prompt.
func (a *GPONAdapter) pollPort(s *cli.Session, port string) ([]types.ONURecord, error) {
	prompt := portPrompt(port)

	out, err := s.Command("interface gpon "+port, portOrConfigPrompt(port), 0)
	if err != nil {
		if cli.IsFatal(err) {
			return nil, err
		}
		a.log.Warn().Err(err).Str("port", port).Msg("no prompt after selecting PON port, skipping")
		return nil, a.backToConfig(s, port)
	}
	if !prompt.MatchString(out) {
		a.log.Warn().Str("port", port).Msg("PON port not available, skipping")
		return nil, nil
	}

	out, err = s.Execute("show onu info", prompt)
	if err != nil {
		return nil, err
	}
	recs := ParseONUInfo(out, a.log)
	a.log.Debug().Str("port", port).Int("onus", len(recs)).Msg("port parsed")

	if _, err := s.Command("exit", configPrompt, 0); err != nil {
		return nil, err
	}
	return recs, nil
}

func (a *GPONAdapter) backToConfig(s *cli.Session, port string) error {
	if _, err := s.Command("exit", configPrompt, menuRecoveryTimeout); err != nil {
		a.log.Error().Err(err).Str("port", port).Msg("could not return to config mode")
		return fmt.Errorf("leave interface gpon %s: %w", port, err)
	}
	return nil
}
