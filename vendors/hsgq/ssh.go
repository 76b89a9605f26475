package hsgq

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/nanoncore/nano-onusync/drivers/cli"
	"github.com/nanoncore/nano-onusync/logger"
	"github.com/nanoncore/nano-onusync/types"
	"github.com/nanoncore/nano-onusync/vendors/adapter"
	"github.com/nanoncore/nano-onusync/vendors/common"
)

// DefaultOpticalPorts is how many PON ports "show optical-diag" is run for.
const DefaultOpticalPorts = 8

const (
	eponNewline = "\r\n"
	gponNewline = "\n"
)

var (
	anyPrompt      = regexp.MustCompile(`[>#]\s*$`)
	privPrompt     = regexp.MustCompile(`#\s*$`)
	configPrompt   = regexp.MustCompile(`\(config\)#\s*$`)
	passwordPrompt = regexp.MustCompile(`(?i)password:\s*$`)
	usernamePrompt = regexp.MustCompile(`(?i)username:\s*$`)
	eponUserPrompt = regexp.MustCompile(`[\w\-]+>\s*$`)
)

func sshTransport(opts adapter.Options, ep *types.DeviceEndpoint, legacy bool) cli.Transport {
	return opts.TransportFor(ep, func() cli.Transport {
		return &cli.SSHTransport{
			Host:        ep.Address,
			Port:        ep.PortFor(types.ProtocolSSH),
			Username:    ep.Username,
			Password:    ep.Password,
			DialTimeout: opts.DialTimeout,
			Legacy:      legacy,
		}
	})
}

// GPONAdapter reads the ONT optical table over SSH. HSGQ GPON firmware
// only offers legacy key exchanges and ciphers.
type GPONAdapter struct {
	opts adapter.Options
	log  logger.Logger
}

// NewGPONAdapter creates the HSGQ GPON SSH adapter
func NewGPONAdapter(opts adapter.Options) *GPONAdapter {
	return &GPONAdapter{opts: opts, log: opts.Log("hsgq-gpon-ssh")}
}

// Fetch logs in, enters configuration mode and lists every ONT.
func (a *GPONAdapter) Fetch(ctx context.Context, ep *types.DeviceEndpoint) ([]types.ONURecord, error) {
	cfg := a.opts.SessionConfig(ep, a.log)
	cfg.Transport = sshTransport(a.opts, ep, true)
	cfg.Newline = gponNewline
	cfg.Logout = "exit"
	cfg.Login = []cli.Step{
		{Name: "shell prompt", Expect: anyPrompt, Send: "enable" + gponNewline},
		{
			Name:    "enable",
			Expect:  privPrompt,
			Send:    "configure" + gponNewline,
			Answers: []cli.Answer{{Match: passwordPrompt, Send: ep.Password + gponNewline, Secret: true}},
		},
		{Name: "configure", Expect: configPrompt},
	}

	var records []types.ONURecord
	err := cli.Run(ctx, cfg, func(s *cli.Session) error {
		out, err := s.Execute("show ont-optical all", configPrompt)
		if err != nil {
			return err
		}
		records = ParseGPONOptical(out, a.log)
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.log.Info().Str("device", ep.Name).Int("onus", len(records)).Msg("ssh poll complete")
	return records, nil
}

// EPONAdapter reads "show onu-info all" over SSH and enriches the result
// with per-port optical diagnostics. The OLT asks for its own CLI
// credentials after the SSH login.
type EPONAdapter struct {
	opts adapter.Options
	log  logger.Logger
}

// NewEPONAdapter creates the HSGQ EPON SSH adapter
func NewEPONAdapter(opts adapter.Options) *EPONAdapter {
	return &EPONAdapter{opts: opts, log: opts.Log("hsgq-epon-ssh")}
}

func (a *EPONAdapter) opticalPorts(ep *types.DeviceEndpoint) int {
	if v, ok := common.GetMetadataString(ep.Metadata, "optical_diag"); ok {
		if enabled, err := strconv.ParseBool(v); err == nil && !enabled {
			return 0
		}
	}
	return common.GetMetadataIntWithDefault(ep.Metadata, DefaultOpticalPorts, "optical_ports")
}

// Fetch runs the CLI login, lists ONUs and merges optical readings.
func (a *EPONAdapter) Fetch(ctx context.Context, ep *types.DeviceEndpoint) ([]types.ONURecord, error) {
	cfg := a.opts.SessionConfig(ep, a.log)
	cfg.Transport = sshTransport(a.opts, ep, false)
	cfg.Newline = eponNewline
	cfg.Logout = "exit"
	cfg.Login = []cli.Step{
		{Name: "cli username", Expect: usernamePrompt, Send: ep.Username + eponNewline},
		{Name: "cli password", Expect: passwordPrompt, Send: ep.Password + eponNewline, Secret: true},
		{Name: "user prompt", Expect: eponUserPrompt, Send: "enable" + eponNewline},
		{Name: "privileged prompt", Expect: privPrompt, Send: "configure" + eponNewline},
		{Name: "configure", Expect: configPrompt},
	}

	var records []types.ONURecord
	err := cli.Run(ctx, cfg, func(s *cli.Session) error {
		out, err := s.Execute("show onu-info all", configPrompt)
		if err != nil {
			return err
		}
		records = ParseEPONInfo(out, a.log)

		ports := a.opticalPorts(ep)
		merged := 0
		for port := 1; port <= ports; port++ {
			out, err := s.Execute(fmt.Sprintf("show optical-diag %d", port), configPrompt)
			if err != nil {
				return fmt.Errorf("optical-diag %d: %w", port, err)
			}
			merged += mergeOptical(records, ParseEPONOptical(out, a.log))
		}
		if ports > 0 {
			a.log.Debug().Int("ports", ports).Int("merged", merged).Msg("optical diagnostics merged")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.log.Info().Str("device", ep.Name).Int("onus", len(records)).Msg("ssh poll complete")
	return records, nil
}
