package cli

import "context"

// Run connects a session, hands it to fn and always disconnects.
func Run(ctx context.Context, cfg Config, fn func(s *Session) error) error {
	s := NewSession(cfg)
	if err := s.Connect(ctx); err != nil {
		return err
	}
	defer s.Disconnect()

	return fn(s)
}
