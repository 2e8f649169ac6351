// Package main is the entry point for the mymolt CLI (sigilctl): a single
// binary that both runs the MyMolt security daemon ("serve") and lets an
// operator inspect and drive its security state directly (soul, vault,
// audit, policy, confirm).
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mymolt/mymolt/internal/auditlog"
	"github.com/mymolt/mymolt/internal/confirmation"
	"github.com/mymolt/mymolt/internal/confirmwatch"
	"github.com/mymolt/mymolt/internal/config"
	"github.com/mymolt/mymolt/internal/gatekeeper"
	"github.com/mymolt/mymolt/internal/identity"
	"github.com/mymolt/mymolt/internal/mcpserver"
	"github.com/mymolt/mymolt/internal/memory"
	"github.com/mymolt/mymolt/internal/policy"
	"github.com/mymolt/mymolt/internal/telemetry"
	"github.com/mymolt/mymolt/internal/tools"
	"github.com/mymolt/mymolt/internal/vault"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the CLI and returns the process exit code.
func run(args []string) int {
	fs := flag.NewFlagSet("sigilctl", flag.ContinueOnError)
	var (
		root        string
		versionFlag bool
	)
	fs.StringVar(&root, "root", ".", "workspace root containing mymolt.yaml")
	fs.BoolVar(&versionFlag, "version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: sigilctl <command> [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  serve                    Run the MCP server on stdio\n")
		fmt.Fprintf(os.Stderr, "  soul show                Print identity bindings and diary\n")
		fmt.Fprintf(os.Stderr, "  soul bind <provider> <id> <level>   Add an identity binding\n")
		fmt.Fprintf(os.Stderr, "  soul diary <text>        Append a diary entry\n")
		fmt.Fprintf(os.Stderr, "  vault encrypt <desc> <category> <file>  Encrypt a file into the vault\n")
		fmt.Fprintf(os.Stderr, "  vault decrypt <id>       Decrypt a vault entry to stdout\n")
		fmt.Fprintf(os.Stderr, "  vault list               List vault entries\n")
		fmt.Fprintf(os.Stderr, "  audit tail [n]           Print the last n audit events (default 20)\n")
		fmt.Fprintf(os.Stderr, "  policy check <skill>     Check whether a skill is allowed\n")
		fmt.Fprintf(os.Stderr, "  confirm watch            Interactively resolve pending confirmations\n")
		fmt.Fprintf(os.Stderr, "  version                  Print version and exit\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if versionFlag {
		printVersion()
		return 0
	}

	remaining := fs.Args()
	if len(remaining) == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: loading config: %v\n", err)
		return 2
	}

	switch remaining[0] {
	case "serve":
		return runServe(root, cfg)
	case "soul":
		return runSoul(root, cfg, remaining[1:])
	case "vault":
		return runVault(root, cfg, remaining[1:])
	case "audit":
		return runAudit(root, cfg, remaining[1:])
	case "policy":
		return runPolicy(cfg, remaining[1:])
	case "confirm":
		return runConfirm(remaining[1:])
	case "version":
		printVersion()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", remaining[0])
		fs.Usage()
		return 2
	}
}

func printVersion() {
	fmt.Printf("sigilctl %s (commit: %s, built: %s)\n", version, commit, date)
}

func runServe(root string, cfg *config.Config) int {
	// Provisioning the audit log and the vault touch unrelated files and
	// neither depends on the other's result, so they run concurrently
	// rather than one after the other on every daemon start.
	var (
		auditLogger *auditlog.Logger
		v           *vault.Vault
	)
	var g errgroup.Group
	g.Go(func() error {
		auditPath := config.ResolvePath(root, cfg.Audit.Path)
		l, err := auditlog.Open(auditPath, nil)
		if err != nil {
			return fmt.Errorf("opening audit log: %w", err)
		}
		auditLogger = l
		return nil
	})
	g.Go(func() error {
		vaultDir := config.ResolvePath(root, cfg.Vault.Directory)
		pubPath := config.ResolvePath(root, cfg.Vault.PublicKeyPath)
		privPath := config.ResolvePath(root, cfg.Vault.KeyPath)
		if _, err := os.Stat(pubPath); os.IsNotExist(err) {
			if err := vault.GenerateKeyPair(pubPath, privPath, 4096); err != nil {
				return fmt.Errorf("generating vault keypair: %w", err)
			}
		}
		opened, err := vault.Open(vaultDir, pubPath, privPath)
		if err != nil {
			return fmt.Errorf("opening vault: %w", err)
		}
		v = opened
		return nil
	})
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	pol, err := policy.New(cfg.Policy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: building policy: %v\n", err)
		return 2
	}

	gk := gatekeeper.New(pol, gatekeeper.WithAuditLogger(auditLogger), gatekeeper.WithBurstLimiter(10, 20))

	mem := memory.NewSovereignMemory(memory.NewSimpleMemory(), v, auditLogger)

	registry := tools.NewRegistry()
	for _, t := range tools.DefaultTools(mem, cfg.Policy.AllowedPaths) {
		registry.Register(t)
	}

	tel := telemetry.NewCollector()
	srv := mcpserver.New(version, registry, gk, tel)
	if err := srv.Serve(); err != nil {
		fmt.Fprintf(os.Stderr, "error: serving: %v\n", err)
		return 2
	}
	return 0
}

func runSoul(root string, cfg *config.Config, args []string) int {
	soulPath := config.ResolvePath(root, cfg.Identity.SoulPath)
	soul, err := identity.Load(soulPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: loading soul: %v\n", err)
		return 2
	}

	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: sigilctl soul <show|bind|diary> ...")
		return 2
	}

	switch args[0] {
	case "show":
		fmt.Printf("bindings: %d, diary entries: %d, max trust: %s\n",
			len(soul.Bindings), len(soul.DiaryEntries), soul.MaxTrustLevel())
		for _, b := range soul.Bindings {
			fmt.Printf("  %s: %s (level %d, trust %s)\n", b.Provider, b.ID, b.Level, b.TrustLevel())
		}
		return 0

	case "bind":
		if len(args) != 4 {
			fmt.Fprintln(os.Stderr, "Usage: sigilctl soul bind <provider> <id> <level>")
			return 2
		}
		level, err := strconv.Atoi(args[3])
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: level must be an integer: %v\n", err)
			return 2
		}
		if err := soul.AddBinding(args[1], args[2], level); err != nil {
			fmt.Fprintf(os.Stderr, "error: adding binding: %v\n", err)
			return 2
		}
		if err := soul.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "error: saving soul: %v\n", err)
			return 2
		}
		return 0

	case "diary":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "Usage: sigilctl soul diary <text>")
			return 2
		}
		if err := soul.AppendDiaryEntry(time.Now().UTC(), args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "error: appending diary entry: %v\n", err)
			return 2
		}
		if err := soul.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "error: saving soul: %v\n", err)
			return 2
		}
		return 0

	default:
		fmt.Fprintln(os.Stderr, "Usage: sigilctl soul <show|bind|diary> ...")
		return 2
	}
}

func runVault(root string, cfg *config.Config, args []string) int {
	vaultDir := config.ResolvePath(root, cfg.Vault.Directory)
	pubPath := config.ResolvePath(root, cfg.Vault.PublicKeyPath)
	privPath := config.ResolvePath(root, cfg.Vault.KeyPath)

	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: sigilctl vault <encrypt|decrypt|list> ...")
		return 2
	}

	v, err := vault.Open(vaultDir, pubPath, privPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: opening vault: %v\n", err)
		return 2
	}

	switch args[0] {
	case "encrypt":
		if len(args) != 4 {
			fmt.Fprintln(os.Stderr, "Usage: sigilctl vault encrypt <description> <category> <file>")
			return 2
		}
		content, err := os.ReadFile(args[3])
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: reading %s: %v\n", args[3], err)
			return 2
		}
		id, err := v.Encrypt(args[1], args[2], content)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: encrypting: %v\n", err)
			return 2
		}
		fmt.Println(id)
		return 0

	case "decrypt":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "Usage: sigilctl vault decrypt <id>")
			return 2
		}
		content, err := v.Decrypt(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: decrypting: %v\n", err)
			return 2
		}
		os.Stdout.Write(content)
		return 0

	case "list":
		entries, err := v.ListEntries()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: listing vault entries: %v\n", err)
			return 2
		}
		for _, e := range entries {
			fmt.Printf("%s  %s  %s  %s\n", e.ID, e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), e.Category, e.Description)
		}
		return 0

	default:
		fmt.Fprintln(os.Stderr, "Usage: sigilctl vault <encrypt|decrypt|list> ...")
		return 2
	}
}

func runAudit(root string, cfg *config.Config, args []string) int {
	if len(args) == 0 || args[0] != "tail" {
		fmt.Fprintln(os.Stderr, "Usage: sigilctl audit tail [n]")
		return 2
	}

	n := 20
	if len(args) == 2 {
		parsed, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: n must be an integer: %v\n", err)
			return 2
		}
		n = parsed
	}

	auditPath := config.ResolvePath(root, cfg.Audit.Path)
	events, err := auditlog.Read(auditPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: reading audit log: %v\n", err)
		return 2
	}

	start := 0
	if len(events) > n {
		start = len(events) - n
	}

	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	for _, e := range events[start:] {
		severity := e.Severity
		if interactive && severity == "high" {
			severity = "\x1b[31m" + severity + "\x1b[0m"
		}
		fmt.Printf("%s  %-22s  %-8s  %s\n", e.Timestamp.Format("2006-01-02T15:04:05Z07:00"), e.Type, severity, e.Action)
	}
	return 0
}

func runPolicy(cfg *config.Config, args []string) int {
	if len(args) != 2 || args[0] != "check" {
		fmt.Fprintln(os.Stderr, "Usage: sigilctl policy check <skill>")
		return 2
	}
	pol, err := policy.New(cfg.Policy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: building policy: %v\n", err)
		return 2
	}
	if pol.IsSkillAllowed(args[1]) {
		fmt.Printf("%s: allowed\n", args[1])
		return 0
	}
	fmt.Printf("%s: denied\n", args[1])
	return 1
}

func runConfirm(args []string) int {
	if len(args) != 1 || args[0] != "watch" {
		fmt.Fprintln(os.Stderr, "Usage: sigilctl confirm watch")
		return 2
	}

	gate := confirmation.New()
	model := confirmwatch.New(gate)
	p := tea.NewProgram(model)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: running confirmation watcher: %v\n", err)
		return 2
	}
	return 0
}

