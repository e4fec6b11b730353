package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/rigsync/internal/sync/rig"
)

func newReplayCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <src.yaml> <dst.yaml>",
		Short: "Make the armatures of dst match src and print the resulting scene",
		Long: `replay captures every armature of dst, diffs it against the armature
holding the same UUID in src and applies the update to dst with write
through. Each armature is then saved, which defers its bone hierarchy, and
the deferred bone writes are committed. The commit results are printed to
stderr and the resulting dst scene to stdout as YAML.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer src.Close()

			dst, err := a.open(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			defer dst.Close()

			proxies, err := dst.captureAll()
			if err != nil {
				return err
			}

			for _, p := range proxies {
				arm := dst.doc.Armatures().ByUUID(p.UUID())
				source := src.doc.Armatures().ByUUID(p.UUID())
				if source == nil {
					a.logger.Warn("armature missing from source scene", zap.String("uuid", p.UUID()))
					continue
				}

				u, err := src.syncer.Adopt(p.Proxy).DiffAll(source, src.ctx)
				if err != nil {
					return fmt.Errorf("diff %s: %w", source.Name(), err)
				}
				if u == nil {
					continue
				}
				if _, err := p.Apply(arm, dst.doc.Armatures(), arm.Name(), u, dst.ctx, true); err != nil {
					return err
				}
				res, err := p.Save(arm, dst.ctx)
				if err != nil {
					return err
				}
				if res.Rejected {
					a.logger.Warn("save rejected", zap.String("uuid", p.UUID()))
				}
			}

			errOut := cmd.ErrOrStderr()
			var failed int
			for _, res := range dst.syncer.CommitAll(dst.ctx) {
				fmt.Fprintln(errOut, formatResult(res))
				if !res.OK() {
					failed++
				}
			}

			scene, err := dst.doc.MarshalScene()
			if err != nil {
				return err
			}
			if _, err := cmd.OutOrStdout().Write(scene); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d deferred commits failed", failed)
			}
			return nil
		},
	}
}

func formatResult(res rig.CommitResult) string {
	line := fmt.Sprintf("%s %s owner=%s bones=%d", res.Status, res.UUID, res.Owner, res.Bones)
	if res.Err != nil {
		line += " error=" + res.Err.Error()
	}
	return line
}
