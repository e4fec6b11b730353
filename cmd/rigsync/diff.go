package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/dshills/rigsync/internal/proxy"
	"github.com/dshills/rigsync/internal/proxy/codec"
)

func newDiffCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <a.yaml> <b.yaml>",
		Short: "Print the updates turning the armatures of a into those of b",
		Long: `diff captures every armature of a and compares it with the armature
holding the same UUID in b. Armatures missing from b are skipped. The
updates are printed as a JSON array; unchanged armatures are omitted.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			updates, err := a.diff(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			out := []byte(`[]`)
			for _, u := range updates {
				raw, err := codec.EncodeUpdate(u)
				if err != nil {
					return fmt.Errorf("encoding update %s: %w", u.UUID, err)
				}
				if out, err = sjson.SetRawBytes(out, "-1", raw); err != nil {
					return err
				}
			}
			return writeLine(cmd.OutOrStdout(), out)
		},
	}
}

// diff captures the armatures of fromPath, carries the proxies over to the
// scene at toPath through the wire codec and diffs them there.
func (a *app) diff(ctx context.Context, fromPath, toPath string) ([]*proxy.Update, error) {
	from, err := a.open(ctx, fromPath)
	if err != nil {
		return nil, err
	}
	defer from.Close()

	to, err := a.open(ctx, toPath)
	if err != nil {
		return nil, err
	}
	defer to.Close()

	proxies, err := from.captureAll()
	if err != nil {
		return nil, err
	}

	var updates []*proxy.Update
	for _, p := range proxies {
		target := to.doc.Armatures().ByUUID(p.UUID())
		if target == nil {
			a.logger.Warn("armature missing from target scene", zap.String("uuid", p.UUID()))
			continue
		}

		raw, err := codec.EncodeProxy(p.Proxy)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", p.UUID(), err)
		}
		base, err := codec.DecodeProxy(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", p.UUID(), err)
		}

		u, err := to.syncer.Adopt(base).DiffAll(target, to.ctx)
		if err != nil {
			return nil, fmt.Errorf("diff %s: %w", target.Name(), err)
		}
		if u != nil {
			updates = append(updates, u)
		}
	}
	return updates, nil
}
