// Command claimctl submits claim PDFs for fraud-risk analysis and reviews
// the results from a terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kylejryan/healthcare-claims-dashboard/internal/dashboard"
	"github.com/kylejryan/healthcare-claims-dashboard/internal/routes"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// cli carries what every subcommand shares.
type cli struct {
	stdout, stderr io.Writer
	path           string
	prof           *profile
	now            func() time.Time
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := flag.NewFlagSet("claimctl", flag.ContinueOnError)
	root.SetOutput(stderr)
	configPath := root.String("config", "", "profile path (default $CLAIMCTL_CONFIG or ~/.config/claimctl/config.yaml)")
	apiURL := root.String("api", "", "dashboard base URL, saved to the profile")
	if err := root.Parse(args); err != nil {
		return 2
	}
	rest := root.Args()
	if len(rest) == 0 {
		printUsage(stderr)
		return 2
	}

	path, err := profilePath(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	prof, err := loadProfile(path)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if *apiURL != "" {
		prof.APIURL = *apiURL
	}
	c := &cli{stdout: stdout, stderr: stderr, path: path, prof: prof, now: time.Now}

	switch rest[0] {
	case "configure":
		return c.runConfigure(rest[1:])
	case "login":
		return c.runLogin(ctx, rest[1:])
	case "logout":
		return c.runLogout()
	case "register":
		return c.runRegister(ctx, rest[1:])
	case "verify":
		return c.runVerify(ctx, rest[1:])
	case "resend":
		return c.runResend(ctx, rest[1:])
	case "submit":
		return c.runSubmit(ctx, rest[1:])
	case "history":
		return c.runHistory(ctx, rest[1:])
	case "show":
		return c.runShow(ctx, rest[1:])
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", rest[0])
		printUsage(stderr)
		return 2
	}
}

func (c *cli) client() *dashboard.Client {
	return dashboard.New(c.prof.APIURL, c.prof.Token)
}

func (c *cli) needAPI() bool {
	if strings.TrimSpace(c.prof.APIURL) == "" {
		fmt.Fprintln(c.stderr, "no dashboard URL configured: run claimctl configure -api <url>")
		return false
	}
	return true
}

func (c *cli) needLogin() bool {
	if !c.needAPI() {
		return false
	}
	if !c.prof.loggedIn(c.now()) {
		fmt.Fprintln(c.stderr, "not logged in: run claimctl login -email <email>")
		return false
	}
	return true
}

func (c *cli) save() int {
	if err := c.prof.save(c.path); err != nil {
		fmt.Fprintf(c.stderr, "save profile: %v\n", err)
		return 1
	}
	return 0
}

func (c *cli) runConfigure(args []string) int {
	fs := flag.NewFlagSet("configure", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	api := fs.String("api", c.prof.APIURL, "dashboard base URL")
	upload := fs.String("upload-url-endpoint", c.prof.UploadURLEndpoint, "upload-URL service base URL")
	analysis := fs.String("analysis-endpoint", c.prof.AnalysisEndpoint, "analysis backend base URL")
	level := fs.String("log-level", c.prof.LogLevel, "log level for submissions")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	c.prof.APIURL = strings.TrimSpace(*api)
	c.prof.UploadURLEndpoint = strings.TrimSpace(*upload)
	c.prof.AnalysisEndpoint = strings.TrimSpace(*analysis)
	c.prof.LogLevel = strings.TrimSpace(*level)
	if rc := c.save(); rc != 0 {
		return rc
	}
	fmt.Fprintf(c.stdout, "profile saved: %s\n", c.path)
	return 0
}

// password reads -password, falling back to $CLAIMCTL_PASSWORD so it stays
// out of shell history.
func password(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("CLAIMCTL_PASSWORD")
}

func (c *cli) runLogin(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	email := fs.String("email", c.prof.Email, "account email")
	pw := fs.String("password", "", "password (or $CLAIMCTL_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if !c.needAPI() {
		return 2
	}

	res, err := c.client().Login(ctx, strings.TrimSpace(*email), password(*pw))
	if err != nil {
		if dashboard.IsCode(err, routes.CodeUserNotConfirmed) {
			fmt.Fprintf(c.stderr, "%v\nrun: claimctl verify -email %s -code <code>\n", err, *email)
			return 1
		}
		fmt.Fprintf(c.stderr, "login failed: %v\n", err)
		return 1
	}
	c.prof.Email = res.User.Email
	c.prof.Token = res.Token
	c.prof.TokenExpires = c.now().Add(time.Duration(res.ExpiresIn) * time.Second).UTC()
	if rc := c.save(); rc != 0 {
		return rc
	}
	fmt.Fprintf(c.stdout, "logged in as %s\n", res.User.Email)
	return 0
}

func (c *cli) runLogout() int {
	c.prof.Token = ""
	c.prof.TokenExpires = time.Time{}
	if rc := c.save(); rc != 0 {
		return rc
	}
	fmt.Fprintln(c.stdout, "logged out")
	return 0
}

func (c *cli) runRegister(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "account email")
	pw := fs.String("password", "", "password, at least 8 characters (or $CLAIMCTL_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if !c.needAPI() {
		return 2
	}
	res, err := c.client().Register(ctx, *name, strings.TrimSpace(*email), password(*pw))
	if err != nil {
		fmt.Fprintf(c.stderr, "register failed: %v\n", err)
		return 1
	}
	c.prof.Email = strings.TrimSpace(*email)
	_ = c.save()
	fmt.Fprintln(c.stdout, res.Message)
	fmt.Fprintf(c.stdout, "next: claimctl verify -email %s -code <code>\n", c.prof.Email)
	return 0
}

func (c *cli) runVerify(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	email := fs.String("email", c.prof.Email, "account email")
	code := fs.String("code", "", "6-digit verification code")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if !c.needAPI() {
		return 2
	}
	res, err := c.client().Confirm(ctx, strings.TrimSpace(*email), strings.TrimSpace(*code))
	if err != nil {
		if dashboard.IsCode(err, routes.CodeAlreadyConfirmed) {
			fmt.Fprintf(c.stdout, "%v\nnext: claimctl login -email %s\n", err, *email)
			return 0
		}
		fmt.Fprintf(c.stderr, "verify failed: %v\n", err)
		return 1
	}
	fmt.Fprintln(c.stdout, res.Message)
	fmt.Fprintf(c.stdout, "next: claimctl login -email %s\n", *email)
	return 0
}

func (c *cli) runResend(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("resend", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	email := fs.String("email", c.prof.Email, "account email")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if !c.needAPI() {
		return 2
	}
	res, err := c.client().Resend(ctx, strings.TrimSpace(*email))
	if err != nil {
		fmt.Fprintf(c.stderr, "resend failed: %v\n", err)
		return 1
	}
	fmt.Fprintln(c.stdout, res.Message)
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `usage: claimctl [-config path] [-api url] <command> [flags]

commands:
  configure  -api -upload-url-endpoint -analysis-endpoint
  register   -name -email -password
  verify     -email -code
  resend     -email
  login      -email -password
  logout
  submit     [-claim-id id] <file.pdf>
  history    [-page n] [-limit n] [-risk LEVEL] [-xlsx out.xlsx]
  show       <claimId>`)
}
