package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-meet-client/auth"
	"github.com/jrsteele09/go-meet-client/internal/config"
	"github.com/jrsteele09/go-meet-client/internal/errors"
	"github.com/jrsteele09/go-meet-client/internal/utils"
	"github.com/jrsteele09/go-meet-client/services"
	"github.com/jrsteele09/go-meet-client/users"
)

const passwordVar = "MEET_PASSWORD"

func newServicesCmd(cfg *config.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List the resolved service registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printServices(cmd.OutOrStdout(), services.FromConfig(cfg))
		},
	}
}

func printServices(out io.Writer, registry services.Registry) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tBASE URL\tENDPOINTS")
	for _, name := range registry.Names() {
		d, _ := registry.Resolve(name)
		keys := make([]string, 0, len(d.Endpoints))
		for k := range d.Endpoints {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(w, "%s\t%s\t%v\n", name, d.BaseURL, keys)
	}
	return w.Flush()
}

func newProfileCmd(cfg *config.Settings) *cobra.Command {
	var (
		refresh  bool
		username string
	)
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Print the cached profile; --refresh signs in and fetches it",
		RunE: func(cmd *cobra.Command, args []string) error {
			mc, err := newMeetClient(cfg)
			if err != nil {
				return err
			}
			if refresh {
				if _, err := mc.auth.Login(cmd.Context(), credentials(username)); err != nil {
					return err
				}
				if _, ok := mc.profiles.FetchAndStore(cmd.Context()); !ok {
					return errors.Errorf("profile fetch failed")
				}
			}
			p, ok := mc.profiles.GetStored()
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "no stored profile")
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "sign in and fetch the profile before printing")
	cmd.Flags().StringVar(&username, "username", "", "username for --refresh (password from "+passwordVar+")")
	return cmd
}

func newEditCmd(cfg *config.Settings) *cobra.Command {
	var (
		username string
		fields   struct{ name, bio, company, timeZone string }
	)
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Sign in and edit the profile; blank flags are left unchanged",
		RunE: func(cmd *cobra.Command, args []string) error {
			mc, err := newMeetClient(cfg)
			if err != nil {
				return err
			}
			if _, err := mc.auth.Login(cmd.Context(), credentials(username)); err != nil {
				return err
			}
			p, err := mc.users.Update(cmd.Context(), users.ProfileUpdate{
				Name:     utils.NonZero(fields.name),
				Bio:      utils.NonZero(fields.bio),
				Company:  utils.NonZero(fields.company),
				TimeZone: utils.NonZero(fields.timeZone),
			})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username to sign in with (password from "+passwordVar+")")
	cmd.Flags().StringVar(&fields.name, "name", "", "display name")
	cmd.Flags().StringVar(&fields.bio, "bio", "", "profile bio")
	cmd.Flags().StringVar(&fields.company, "company", "", "employer")
	cmd.Flags().StringVar(&fields.timeZone, "time-zone", "", "IANA time zone")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newSessionCmd(cfg *config.Settings) *cobra.Command {
	var (
		username    string
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Sign in and keep the session refreshed until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			displayAppname(cfg.GetAppName())

			mc, err := newMeetClient(cfg)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if _, err := mc.auth.Login(ctx, credentials(username)); err != nil {
				return err
			}
			if p, ok := mc.profiles.FetchAndStore(ctx); ok {
				log.Info().Str("username", p.Username).Str("name", p.Name).Msg("profile loaded")
			}

			var server *http.Server
			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(mc.gatherer, promhttp.HandlerOpts{}))
				server = &http.Server{Addr: metricsAddr, Handler: mux}
				go listenAndServe(server)
			}

			expired := make(chan struct{})
			var once sync.Once
			mc.keeper.OnExpired(func() {
				log.Warn().Str("login_path", cfg.GetLoginPath()).Msg("session expired, sign in again")
				once.Do(func() { close(expired) })
			})
			if err := mc.keeper.Start(); err != nil {
				return err
			}

			waitForStopSignal(expired)
			mc.keeper.Stop()

			var errs []error
			if err := mc.auth.Logout(ctx); err != nil {
				errs = append(errs, err)
			}
			if server != nil {
				if err := shutdown(server); err != nil {
					errs = append(errs, err)
				}
			}
			if len(errs) > 0 {
				return errors.Wrap(errors.Join(errs...), "session shutdown")
			}
			log.Info().Msg("signed out")
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username to sign in with (password from "+passwordVar+")")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func credentials(username string) auth.Credentials {
	return auth.Credentials{Username: username, Password: os.Getenv(passwordVar)}
}
