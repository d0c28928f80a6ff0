package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"digifootprint/internal/common"
	"digifootprint/internal/logging"
	"digifootprint/internal/password"
	"digifootprint/internal/scan"
	"digifootprint/internal/server"
)

type options struct {
	email     string
	username  string
	phone     string
	password  string
	platforms bool
	score     bool
	timeout   time.Duration
	verbose   bool
}

type output struct {
	Email     *common.ScanResult         `json:"email,omitempty"`
	Exposure  *common.ExposureAssessment `json:"exposure,omitempty"`
	Username  *common.BreachResult       `json:"username,omitempty"`
	Platforms []common.PlatformAccount   `json:"platforms,omitempty"`
	Phone     *common.BreachResult       `json:"phone,omitempty"`
	Password  *passwordOutput            `json:"password,omitempty"`
}

// passwordOutput mirrors the HTTP password response: a failed lookup is
// reported in Error next to the zero result.
type passwordOutput struct {
	password.Result
	Error string `json:"error,omitempty"`
}

var errNoInput = errors.New("nothing to scan: pass --email, --username, --phone or --password")

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:           "scan-once",
		Short:         "Run a single footprint scan and print the result as JSON",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.password == "" {
				opts.password = os.Getenv("DF_PASSWORD")
			}
			if opts.email == "" && opts.username == "" && opts.phone == "" && opts.password == "" {
				return errNoInput
			}

			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(logging.New("scan-once", cmd.ErrOrStderr(), false, level))

			cfg, err := server.LoadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			out, err := run(ctx, cfg.NewService(), opts)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.email, "email", "", "email address to scan")
	f.StringVar(&opts.username, "username", "", "username to look up")
	f.StringVar(&opts.phone, "phone", "", "phone number to look up")
	f.StringVar(&opts.password, "password", "", "password to check against the pwned-password range (falls back to $DF_PASSWORD)")
	f.BoolVar(&opts.platforms, "platforms", false, "also probe platforms for --username")
	f.BoolVar(&opts.score, "score", false, "include the exposure assessment of --email")
	f.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall deadline")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	return cmd
}

func run(ctx context.Context, svc *scan.Service, opts options) (*output, error) {
	out := &output{}

	if opts.email != "" {
		res, err := svc.ScanEmail(ctx, opts.email)
		if err != nil {
			return nil, err
		}
		out.Email = res
		if opts.score {
			a := svc.Score(res)
			out.Exposure = &a
		}
	}

	if opts.username != "" {
		res, err := svc.ScanUsername(ctx, opts.username)
		if err != nil {
			return nil, err
		}
		out.Username = &res
		if opts.platforms {
			out.Platforms = svc.ProbePlatforms(ctx, opts.username)
		}
	}

	if opts.phone != "" {
		res, err := svc.ScanPhone(ctx, opts.phone)
		if err != nil {
			return nil, err
		}
		out.Phone = &res
	}

	if opts.password != "" {
		res, err := svc.CheckPassword(ctx, opts.password)
		out.Password = &passwordOutput{Result: res}
		if err != nil {
			out.Password.Error = err.Error()
		}
	}
	return out, nil
}
