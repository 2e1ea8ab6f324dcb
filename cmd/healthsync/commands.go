package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"github.com/MKhiriev/go-health-sync/internal/app"
	"github.com/MKhiriev/go-health-sync/internal/config"
	"github.com/MKhiriev/go-health-sync/internal/logger"
	"github.com/MKhiriev/go-health-sync/internal/service"
	"github.com/MKhiriev/go-health-sync/internal/utils"
	"github.com/MKhiriev/go-health-sync/models"
)

var errSyncFailed = errors.New("sync cycle failed")

// cli carries state shared by the subcommands once the root command has
// loaded the configuration.
type cli struct {
	flagCfg *config.StructuredConfig
	cfg     *config.StructuredConfig
	log     *logger.Logger
	out     io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:           "healthsync",
		Short:         "Cross-device sync engine for health records",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.GetStructuredConfig(c.flagCfg)
			if err != nil {
				return fmt.Errorf("error getting configs: %w", err)
			}
			c.cfg = cfg
			c.log = newLogger(cmd, cfg)
			c.log.Debug().Any("config", cfg).Msg("received configs")
			return nil
		},
	}
	c.flagCfg = config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		c.runCmd(),
		c.syncCmd(),
		c.statusCmd(),
		c.consentCmd(),
		c.cursorCmd(),
		c.auditCmd(),
		c.recordCmd(),
		versionCmd(),
	)
	return root
}

// newLogger keeps stdout for command output: only the daemon logs there,
// every other command logs to stderr unless a log file is configured.
func newLogger(cmd *cobra.Command, cfg *config.StructuredConfig) *logger.Logger {
	if cfg.App.LogFile == "" && cmd.Name() == "run" {
		return logger.NewLogger(cfg.App.Name)
	}
	return logger.NewFileLogger(cfg.App.Name, cfg.App.LogFile)
}

func (c *cli) withApp(ctx context.Context, fn func(*app.App) error) error {
	a, err := app.NewApp(ctx, c.cfg, c.log)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(a)
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the sync daemon with its scheduler, subscriptions and trigger API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			printBuildInfo()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
			defer stop()

			return c.withApp(ctx, func(a *app.App) error {
				return a.Run(ctx)
			})
		},
	}
}

func (c *cli) syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync cycle and print its report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return c.withApp(ctx, func(a *app.App) error {
				out := a.SyncOnce(ctx)
				if err := c.printJSON(service.NewSyncReport(out)); err != nil {
					return err
				}
				if out.Err != nil {
					return fmt.Errorf("%w: %s", errSyncFailed, service.Classify(out.Err))
				}
				return nil
			})
		},
	}
}

// daemon prepares a request to the trigger API of the running daemon.
func (c *cli) daemon(ctx context.Context) *resty.Request {
	return utils.NewHTTPClient().
		SetBaseURL("http://" + c.cfg.Server.HTTPAddress).
		R().
		SetContext(ctx)
}

func (c *cli) daemonError(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("daemon at %s is not reachable: %w", c.cfg.Server.HTTPAddress, err)
	}
	if resp.IsError() {
		return fmt.Errorf("daemon answered %s: %s", resp.Status(), resp.String())
	}
	return nil
}

// statusCmd asks the running daemon for its state over the trigger API.
func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of the running daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var status models.SyncStatus
			resp, err := c.daemon(cmd.Context()).SetResult(&status).Get("/api/sync/status")
			if err = c.daemonError(resp, err); err != nil {
				return err
			}
			return c.printJSON(status)
		},
	}
}

type consentList struct {
	Denied []models.DataType `json:"denied"`
}

// consentCmd changes consent on the running daemon, which owns the gate.
// Granting a type makes the daemon refetch what it skipped while denied.
func (c *cli) consentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consent",
		Short: "List, grant or revoke consent for data types on the running daemon",
	}

	set := func(allowed bool) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			dataType, err := models.ParseDataType(args[0])
			if err != nil {
				return err
			}
			var list consentList
			resp, err := c.daemon(cmd.Context()).
				SetBody(map[string]bool{"allowed": allowed}).
				SetResult(&list).
				Put("/api/privacy/" + string(dataType))
			if err = c.daemonError(resp, err); err != nil {
				return err
			}
			return c.printJSON(list)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Print the denied data types",
			RunE: func(cmd *cobra.Command, _ []string) error {
				var list consentList
				resp, err := c.daemon(cmd.Context()).SetResult(&list).Get("/api/privacy")
				if err = c.daemonError(resp, err); err != nil {
					return err
				}
				return c.printJSON(list)
			},
		},
		&cobra.Command{
			Use:   "grant TYPE",
			Short: "Allow a data type to cross the device boundary",
			Args:  cobra.ExactArgs(1),
			RunE:  set(true),
		},
		&cobra.Command{
			Use:   "revoke TYPE",
			Short: "Keep a data type on this device",
			Args:  cobra.ExactArgs(1),
			RunE:  set(false),
		},
	)
	return cmd
}

func (c *cli) cursorCmd() *cobra.Command {
	var zone string

	cmd := &cobra.Command{
		Use:   "cursor",
		Short: "Inspect or reset the change cursor of a zone",
	}
	cmd.PersistentFlags().StringVar(&zone, "zone", models.DefaultZone, "Zone name")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the stored cursor of a zone",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.withApp(cmd.Context(), func(a *app.App) error {
					cursor, err := a.Cursor(cmd.Context(), zone)
					if err != nil {
						return err
					}
					if cursor == nil {
						_, err = fmt.Fprintf(c.out, "zone %s has no cursor, next cycle fetches it from the beginning\n", zone)
						return err
					}
					return c.printJSON(cursor)
				})
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Forget the cursor of a zone so the next cycle refetches it",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.withApp(cmd.Context(), func(a *app.App) error {
					return a.ResetCursor(cmd.Context(), zone)
				})
			},
		},
	)
	return cmd
}

func (c *cli) auditCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Print the newest privacy audit entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				entries, err := a.Audit(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return c.printJSON(entries)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Number of entries")
	return cmd
}

func (c *cli) recordCmd() *cobra.Command {
	var (
		id         string
		recordType string
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Write local records and inspect remote ones (for development and testing)",
	}

	put := &cobra.Command{
		Use:   "put PAYLOAD",
		Short: "Create or update a record from a JSON payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				rec, err := a.Records().Put(cmd.Context(), models.SyncableRecord{
					ID:         id,
					RecordType: models.RecordType(recordType),
					Payload:    json.RawMessage(args[0]),
				})
				if err != nil {
					return err
				}
				return c.printJSON(rec)
			})
		},
	}
	put.Flags().StringVar(&id, "id", "", "Record ID, generated when empty")
	put.Flags().StringVarP(&recordType, "type", "t", string(models.RecordTypeHealthEntry), "Record type")

	remove := &cobra.Command{
		Use:   "remove ID",
		Short: "Delete a record; the deletion is pushed next cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				return a.Records().Remove(cmd.Context(), args[0])
			})
		},
	}

	var since string
	remote := &cobra.Command{
		Use:   "remote TYPE",
		Short: "List the remote copies of a record type without syncing them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pred models.FetchPredicate
			if since != "" {
				t, err := time.Parse(time.RFC3339, since)
				if err != nil {
					return fmt.Errorf("--since: %w", err)
				}
				pred.ModifiedSince = &t
			}
			return c.withApp(cmd.Context(), func(a *app.App) error {
				records, err := a.Remote().List(cmd.Context(), models.RecordType(args[0]), pred)
				if err != nil {
					return err
				}
				return c.printJSON(records)
			})
		},
	}
	remote.Flags().StringVar(&since, "since", "", "Only records modified after this RFC 3339 time")

	cmd.AddCommand(put, remove, remote)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(*cobra.Command, []string) {
			printBuildInfo()
		},
	}
}
