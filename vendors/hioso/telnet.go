package hioso

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

// DefaultPONPorts are polled unless the endpoint sets "pon_ports".
var DefaultPONPorts = []string{"1/1", "1/2"}

// menuRecoveryTimeout bounds the wait for the epon menu after leaving a
// port that did not answer in time.
var menuRecoveryTimeout = 2 * time.Second

var (
	loginPrompt    = regexp.MustCompile(`(?i)login:\s*$`)
	passwordPrompt = regexp.MustCompile(`Password:\s*$`)
	revisionBanner = regexp.MustCompile(`Revision:`)
	accessPrompt   = regexp.MustCompile(`Access Password:\s*$`)
	userPrompt     = regexp.MustCompile(`EPON>\s*$`)
	enablePrompt   = regexp.MustCompile(`Enable Password:\s*$`)
	privPrompt     = regexp.MustCompile(`EPON#\s*$`)
	configPrompt   = regexp.MustCompile(`EPON\(config\)#\s*$`)
	eponPrompt     = regexp.MustCompile(`EPON\(epon\)#\s*$`)
)

func ponPrompt(port string) *regexp.Regexp {
	return regexp.MustCompile(`EPON\(epon-pon-` + regexp.QuoteMeta(port) + `\)#\s*$`)
}

// portOrMenuPrompt matches the port submenu, or the epon menu the OLT
// stays in when the port does not exist.
func portOrMenuPrompt(port string) *regexp.Regexp {
	return regexp.MustCompile(`EPON\(epon(?:-pon-` + regexp.QuoteMeta(port) + `)?\)#\s*$`)
}

// TelnetAdapter polls Hioso EPON OLTs through their telnet shell.
type TelnetAdapter struct {
	opts adapter.Options
	log  logger.Logger
}

// NewTelnetAdapter creates the Hioso telnet adapter
func NewTelnetAdapter(opts adapter.Options) *TelnetAdapter {
	return &TelnetAdapter{opts: opts, log: opts.Log("hioso-telnet")}
}

func (a *TelnetAdapter) loginScript(ep *types.DeviceEndpoint) []cli.Step {
	return []cli.Step{
		{Name: "login", Expect: loginPrompt, Send: ep.Username + "\n"},
		{Name: "password", Expect: passwordPrompt, Send: ep.Password + "\n", Secret: true},
		{Name: "revision", Expect: revisionBanner, Send: "\n"},
		{Name: "access password", Expect: accessPrompt, Send: ep.Password + "\n", Secret: true},
		{Name: "user prompt", Expect: userPrompt, Send: "enable\n"},
		{Name: "enable password", Expect: enablePrompt, Send: ep.Password + "\n", Secret: true},
		{Name: "privileged prompt", Expect: privPrompt},
	}
}

func (a *TelnetAdapter) ports(ep *types.DeviceEndpoint) []string {
	if v, ok := common.GetMetadataString(ep.Metadata, "pon_ports"); ok {
		ports, err := common.ParsePortList(v)
		if err == nil && len(ports) > 0 {
			return ports
		}
		a.log.Warn().Str("pon_ports", v).Msg("invalid pon_ports, using defaults")
	}
	return DefaultPONPorts
}

// Fetch logs in, walks every PON port and returns the ONUs found.
func (a *TelnetAdapter) Fetch(ctx context.Context, ep *types.DeviceEndpoint) ([]types.ONURecord, error) {
	cfg := a.opts.SessionConfig(ep, a.log)
	cfg.Transport = a.opts.TransportFor(ep, func() cli.Transport {
		return cli.NewTelnetTransport(ep.Address, ep.PortFor(types.ProtocolTelnet), a.opts.DialTimeout)
	})
	cfg.Login = a.loginScript(ep)
	cfg.Logout = "exit"

	var records []types.ONURecord
	err := cli.Run(ctx, cfg, func(s *cli.Session) error {
		if _, err := s.Command("configure terminal", configPrompt, 0); err != nil {
			return err
		}
		if _, err := s.Command("epon", eponPrompt, 0); err != nil {
			return err
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

	a.log.Info().Str("device", ep.Name).Int("onus", len(records)).Msg("telnet poll complete")
	return records, nil
}

// pollPort enters a PON port submenu and lists its ONUs. A port whose
// submenu never appears is skipped after backing out to the epon menu.
func (a *TelnetAdapter) pollPort(s *cli.Session, port string) ([]types.ONURecord, error) {
	prompt := ponPrompt(port)

	out, err := s.Command("pon "+port, portOrMenuPrompt(port), 0)
	if err != nil {
		if cli.IsFatal(err) {
			return nil, err
		}
		a.log.Warn().Err(err).Str("port", port).Msg("no prompt after selecting PON port, skipping")
		return nil, a.backToMenu(s, port)
	}
	if !prompt.MatchString(out) {
		a.log.Warn().Str("port", port).Msg("PON port not available, skipping")
		return nil, nil
	}

	out, err = s.Execute("show onu all", prompt)
	if err != nil {
		return nil, err
	}
	recs := ParseONUTable(out, a.log)
	a.log.Debug().Str("port", port).Int("onus", len(recs)).Msg("port parsed")

	if _, err := s.Command("exit", eponPrompt, 0); err != nil {
		return nil, err
	}
	return recs, nil
}

// backToMenu leaves a port that may have opened late. The shell must be
// back in the epon menu before the next port is selected.
func (a *TelnetAdapter) backToMenu(s *cli.Session, port string) error {
	if _, err := s.Command("exit", eponPrompt, menuRecoveryTimeout); err != nil {
		a.log.Error().Err(err).Str("port", port).Msg("could not return to epon menu")
		return fmt.Errorf("leave pon %s: %w", port, err)
	}
	return nil
}
