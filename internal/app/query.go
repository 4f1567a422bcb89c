package app

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pranshuparmar/remotepid/internal/output"
	procpkg "github.com/pranshuparmar/remotepid/internal/proc"
	"github.com/pranshuparmar/remotepid/pkg/model"
	"github.com/pranshuparmar/remotepid/pkg/remotepid"
)

func (a *app) addrCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "addr <local> <remote>",
		Short: "Resolve the process owning <remote> of the connection <local> -> <remote>",
		Example: `  remotepid addr 127.0.0.1:50000 127.0.0.1:8080
  remotepid addr [::1]:50000 [::1]:8080`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, logger, err := a.resolver(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			res := model.Result{Local: args[0], Remote: args[1]}
			pid, err := r.ResolveAddr(cmd.Context(), args[0], args[1])
			return a.report(cmd.Context(), logger, res, pid, err)
		},
	}
}

func (a *app) fdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fd [n]",
		Short: "Resolve the peer process of an inherited socket descriptor (default 0)",
		Long: `Resolve the peer process of socket descriptor n, which defaults to 0 so
that remotepid can run directly under inetd-style supervisors.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var fd uint64
			if len(args) == 1 {
				n, err := strconv.ParseUint(args[0], 10, 31)
				if err != nil {
					return fmt.Errorf("invalid descriptor %q", args[0])
				}
				fd = n
			}

			r, logger, err := a.resolver(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			res := model.Result{Local: "fd " + strconv.FormatUint(fd, 10)}
			if local, remote, err := procpkg.SocketEndpoints(uintptr(fd)); err == nil {
				res.Local, res.Remote = local.String(), remote.String()
			}
			pid, err := r.ResolveDescriptor(cmd.Context(), uintptr(fd))
			return a.report(cmd.Context(), logger, res, pid, err)
		},
	}
}

// report renders the outcome and records the exit status. Query failures
// are results, not command errors.
func (a *app) report(ctx context.Context, logger *zap.Logger, res model.Result, pid uint32, err error) error {
	code := remotepid.CodeOf(err)
	res.Code = uint8(code)
	switch code {
	case remotepid.CodeNoError:
		res.PID = pid
		res.Process = procpkg.ProcessName(ctx, pid)
		a.exit = ExitOK
	case remotepid.CodeEndpointNotLocal:
		res.Error = err.Error()
		a.exit = ExitNotLocal
	default:
		res.Error = err.Error()
		a.exit = ExitOther
	}
	if err != nil {
		logger.Info("query failed", zap.String("kind", model.KindOf(err).String()), zap.Error(err))
	}

	if a.flags.json {
		s, err := output.ToJSON(res)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, s)
		return nil
	}
	output.RenderShort(a.stdout, res, a.colorEnabled())
	return nil
}

func (a *app) connsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "conns",
		Short: "List the TCP connections visible to the selected backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, logger, err := a.resolver(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			all, err := r.Connections(cmd.Context())
			if err != nil {
				return err
			}
			recs := all[:0]
			for _, rec := range all {
				if rec.State.Eligible() {
					recs = append(recs, rec)
				}
			}
			logger.Debug("connection snapshot", zap.Int("total", len(all)), zap.Int("eligible", len(recs)))

			if a.flags.json {
				s, err := output.ConnectionsToJSON(recs)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, s)
				return nil
			}
			output.RenderConnections(a.stdout, recs, a.colorEnabled())
			return nil
		},
	}
}
