package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/clispios/awth-butler/app"
	"github.com/clispios/awth-butler/aws"
	"github.com/clispios/awth-butler/cache"
	"github.com/clispios/awth-butler/config"
	"github.com/clispios/awth-butler/credentials"
	"github.com/clispios/awth-butler/status"
	"github.com/clispios/awth-butler/styles"
	"github.com/clispios/awth-butler/utils"
)

const usage = `awth-butler - broker temporary AWS credentials over SSO

Usage:
  awth-butler status                  show session and profile freshness
  awth-butler login <name> [--legacy] authenticate a session (or legacy profile)
  awth-butler refresh                 reload profile definitions
  awth-butler verify <profile>        check persisted credentials against STS

Flags:
`

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	legacy := flag.Bool("legacy", false, "treat the login target as a legacy profile")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	log, err := newLogger(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(args, *legacy, log); err != nil {
		// The command surface reports failures as plain messages.
		fmt.Fprintln(os.Stderr, styles.StaleStyle.Render(err.Error()))
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func run(args []string, legacy bool, log *zap.Logger) error {
	loader, err := config.NewStore()
	if err != nil {
		return err
	}
	tokens, err := cache.New()
	if err != nil {
		return err
	}
	creds, err := credentials.NewStore()
	if err != nil {
		return err
	}

	newClient := func(ctx context.Context, region string) (*aws.Client, error) {
		return aws.NewClient(ctx, region, log)
	}

	butler, err := app.New(loader, tokens, creds, newClient, utils.BrowserPresenter{}, log)
	if err != nil {
		return err
	}

	ctx := context.Background()

	switch args[0] {
	case "status":
		view, err := butler.FetchButlerConfig()
		if err != nil {
			return err
		}
		renderStatus(view)
		return nil

	case "login":
		if len(args) < 2 {
			return fmt.Errorf("login requires a session or profile name")
		}
		loginType := app.LoginSsoSession
		if legacy {
			loginType = app.LoginLegacyProfile
		}

		// Ctrl-C during polling acts as the window-close signal: the
		// flow observes it on the next iteration boundary.
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt)
		defer signal.Stop(sigs)
		go func() {
			<-sigs
			butler.CancelLogin()
		}()

		if err := butler.Authenticate(ctx, loginType, args[1]); err != nil {
			return err
		}
		fmt.Println(styles.FreshStyle.Render("Authenticated " + args[1]))
		return nil

	case "refresh":
		return butler.RefreshProfiles()

	case "verify":
		if len(args) < 2 {
			return fmt.Errorf("verify requires a profile name")
		}
		identity, err := aws.VerifyCredentials(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", styles.NameStyle.Render(args[1]), styles.Freshness(true))
		fmt.Printf("  account: %s\n  arn: %s\n", identity.Account, identity.Arn)
		return nil

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func renderStatus(view *status.ButlerSsoConfig) {
	fmt.Println(styles.TitleStyle.Render("Sessions"))
	if len(view.Sessions) == 0 {
		fmt.Println(styles.MutedStyle.Render("  (none)"))
	}
	for _, s := range view.Sessions {
		fmt.Printf("  %s %s %s\n", styles.NameStyle.Render(s.SessionName),
			styles.Freshness(s.Fresh), styles.MutedStyle.Render(formatExpiration(s.SessionExpiration)))
		for _, name := range s.ProfileNames {
			fmt.Printf("    - %s\n", name)
		}
	}

	fmt.Println(styles.TitleStyle.Render("SSO Profiles"))
	if len(view.SsoProfiles) == 0 {
		fmt.Println(styles.MutedStyle.Render("  (none)"))
	}
	for _, p := range view.SsoProfiles {
		fmt.Printf("  %s (%s) %s %s\n", styles.NameStyle.Render(p.ProfileName), p.SessionName,
			styles.Freshness(p.Fresh), styles.MutedStyle.Render(formatExpiration(p.ProfileExpiration)))
	}

	fmt.Println(styles.TitleStyle.Render("Legacy Profiles"))
	if len(view.LegacyProfiles) == 0 {
		fmt.Println(styles.MutedStyle.Render("  (none)"))
	}
	for _, p := range view.LegacyProfiles {
		fmt.Printf("  %s %s %s\n", styles.NameStyle.Render(p.ProfileName),
			styles.Freshness(p.Fresh), styles.MutedStyle.Render(formatExpiration(p.ProfileExpiration)))
	}
}

func formatExpiration(t *time.Time) string {
	if t == nil {
		return "no credentials"
	}
	return "expires " + t.Local().Format("2006-01-02 15:04")
}
