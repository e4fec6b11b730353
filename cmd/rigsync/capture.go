package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/dshills/rigsync/internal/proxy/codec"
	"github.com/dshills/rigsync/internal/sync/rig"
)

func newCaptureCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "capture <scene.yaml>",
		Short: "Capture every armature of a scene and print the proxies as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			proxies, err := s.captureAll()
			if err != nil {
				return err
			}

			out := []byte(`[]`)
			for _, p := range proxies {
				raw, err := codec.EncodeProxy(p.Proxy)
				if err != nil {
					return fmt.Errorf("encoding %s: %w", p.UUID(), err)
				}
				if out, err = sjson.SetRawBytes(out, "-1", raw); err != nil {
					return err
				}
			}
			a.logger.Info("scene captured", zap.String("scene", args[0]), zap.Int("armatures", len(proxies)))
			return writeLine(cmd.OutOrStdout(), out)
		},
	}
}

// captureAll captures every armature of the session's document.
func (s *session) captureAll() ([]*rig.Proxy, error) {
	arms := s.doc.Armatures().All()
	proxies := make([]*rig.Proxy, 0, len(arms))
	for _, arm := range arms {
		p, err := s.syncer.Capture(arm, s.ctx)
		if err != nil {
			return nil, err
		}
		proxies = append(proxies, p)
	}
	return proxies, nil
}

func writeLine(w io.Writer, data []byte) error {
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
