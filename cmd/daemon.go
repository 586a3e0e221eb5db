package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/theirongolddev/aboradar/internal/cli"
	"github.com/theirongolddev/aboradar/internal/daemon"
	"github.com/theirongolddev/aboradar/internal/logging"
	"github.com/theirongolddev/aboradar/internal/pipeline"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagDaemonAddr         string
	flagDaemonInterval     time.Duration
	flagDaemonDetach       bool
	flagDaemonPIDFile      string
	flagDaemonLogFile      string
	flagDaemonEventsBuffer int
	flagDaemonChild        bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Watch cancellation deadlines in the background (HTTP/SSE API, mail digest)",
	RunE:  runDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon process and API status",
	RunE:  runDaemonStatus,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE:  runDaemonStop,
}

func init() {
	pf := daemonCmd.PersistentFlags()
	pf.StringVar(&flagDaemonAddr, "addr", "", "HTTP listen address (default from config)")
	pf.DurationVar(&flagDaemonInterval, "interval", 0, "Store polling interval (default from config)")
	pf.StringVar(&flagDaemonPIDFile, "pid-file", filepath.Join(pipeline.DataDir(), "aboradard.pid"), "PID file path")
	pf.StringVar(&flagDaemonLogFile, "log-file", filepath.Join(pipeline.DataDir(), "aboradard.log"), "Log file for --detach")
	pf.IntVar(&flagDaemonEventsBuffer, "events-buffer", 200, "Events kept in memory for /v1/events")

	daemonCmd.Flags().BoolVar(&flagDaemonDetach, "detach", false, "Run in the background")
	daemonCmd.Flags().BoolVar(&flagDaemonChild, "child", false, "Internal: detached child process")
	_ = daemonCmd.Flags().MarkHidden("child")

	daemonCmd.AddCommand(daemonStatusCmd, daemonStopCmd)
	rootCmd.AddCommand(daemonCmd)
}

// pidFile is the daemon's PID file plus a JSON sidecar describing the
// running instance.
type pidFile string

type daemonInstance struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	DBPath    string    `json:"db_path"`
	StartedAt time.Time `json:"started_at"`
}

func (p pidFile) sidecar() string { return string(p) + ".json" }

func (p pidFile) read() (int, error) {
	data, err := os.ReadFile(string(p))
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid in %s", p)
	}
	return pid, nil
}

func (p pidFile) write(inst daemonInstance) error {
	if err := os.MkdirAll(filepath.Dir(string(p)), 0o750); err != nil {
		return fmt.Errorf("create daemon directory: %w", err)
	}
	if err := os.WriteFile(string(p), []byte(strconv.Itoa(inst.PID)+"\n"), 0o600); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	data, err := json.MarshalIndent(inst, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p.sidecar(), append(data, '\n'), 0o600)
}

func (p pidFile) instance() (daemonInstance, error) {
	var inst daemonInstance
	data, err := os.ReadFile(p.sidecar())
	if err != nil {
		return inst, err
	}
	err = json.Unmarshal(data, &inst)
	return inst, err
}

func (p pidFile) remove() {
	_ = os.Remove(string(p))
	_ = os.Remove(p.sidecar())
}

// claim fails when a live daemon owns the PID file and clears stale files.
func (p pidFile) claim() error {
	pid, err := p.read()
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err != nil:
		return err
	case processAlive(pid):
		return fmt.Errorf("daemon already running (pid %d)", pid)
	}
	p.remove()
	return nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func runDaemon(_ *cobra.Command, _ []string) error {
	switch {
	case flagDaemonDetach && flagDaemonChild:
		return errors.New("--detach and --child are mutually exclusive")
	case flagDaemonDetach:
		return spawnDaemon()
	default:
		return serveDaemon()
	}
}

// daemonAddr returns --addr, falling back to [daemon] addr.
func daemonAddr() string {
	if flagDaemonAddr != "" {
		return flagDaemonAddr
	}
	return appCfg.Daemon.Addr
}

func daemonConfig() daemon.Config {
	interval := flagDaemonInterval
	if interval <= 0 {
		interval = time.Duration(appCfg.Daemon.IntervalSec) * time.Second
	}
	return daemon.Config{
		DBPath:         dbPath(),
		Interval:       interval,
		Addr:           daemonAddr(),
		EventsBuffer:   flagDaemonEventsBuffer,
		WarningDays:    appCfg.General.WarningDays,
		UpcomingDays:   appCfg.General.UpcomingDays,
		DigestSchedule: appCfg.Daemon.DigestSchedule,
		DigestTo:       appCfg.Mail.To,
	}
}

// spawnDaemon re-executes the current command line without --detach,
// with output going to --log-file.
func spawnDaemon() error {
	pf := pidFile(flagDaemonPIDFile)
	if err := pf.claim(); err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	args := slices.DeleteFunc(slices.Clone(os.Args[1:]), func(a string) bool {
		return a == "--detach" || strings.HasPrefix(a, "--detach=")
	})
	args = append(args, "--child")

	if err := os.MkdirAll(filepath.Dir(flagDaemonLogFile), 0o750); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	//nolint:gosec // log path comes from the local user's flags
	out, err := os.OpenFile(flagDaemonLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open daemon log: %w", err)
	}
	defer func() { _ = out.Close() }()

	child := exec.Command(exe, args...) //nolint:gosec // re-executes ourselves
	child.Stdout = out
	child.Stderr = out
	child.Env = os.Environ()
	if err := child.Start(); err != nil {
		return fmt.Errorf("start detached daemon: %w", err)
	}

	fmt.Printf("  Started daemon (pid %d)\n", child.Process.Pid)
	fmt.Printf("  API: http://%s/v1/status\n", daemonAddr())
	fmt.Printf("  Log: %s\n", flagDaemonLogFile)
	return nil
}

func serveDaemon() error {
	pf := pidFile(flagDaemonPIDFile)
	if err := pf.claim(); err != nil {
		return err
	}

	cfg := daemonConfig()
	if err := pf.write(daemonInstance{
		PID:       os.Getpid(),
		Addr:      cfg.Addr,
		DBPath:    cfg.DBPath,
		StartedAt: time.Now(),
	}); err != nil {
		return err
	}
	defer pf.remove()

	// A detached child's stderr is already the --log-file.
	log := logging.New(appCfg.Log, os.Stderr)
	defer func() { _ = log.Sync() }()

	var notifier daemon.Notifier
	if m := newMailer(appCfg); m != nil {
		notifier = m
	} else if cfg.DigestSchedule != "" {
		log.Warn("digest scheduled but [mail] is not configured; digests are only logged")
	}

	fmt.Printf("  aboradar daemon listening on http://%s\n", cfg.Addr)
	fmt.Printf("  Polling %s every %s\n", cfg.DBPath, cfg.Interval)
	fmt.Printf("  Stop with: aboradar daemon stop --pid-file %s\n", pf)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := daemon.New(cfg, log, notifier).Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("daemon stopped", zap.Error(err))
		return err
	}
	return nil
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	pf := pidFile(flagDaemonPIDFile)
	pid, err := pf.read()
	if err != nil {
		fmt.Println("  Daemon: not running")
		return nil
	}
	if !processAlive(pid) {
		fmt.Printf("  Daemon: stale pid file (pid %d not alive)\n", pid)
		return nil
	}

	addr := daemonAddr()
	if inst, err := pf.instance(); err == nil && inst.Addr != "" {
		addr = inst.Addr
	}

	rows := [][]string{
		{"PID", strconv.Itoa(pid)},
		{"Address", "http://" + addr},
	}
	st, err := fetchDaemonStatus(addr)
	if err != nil {
		rows = append(rows, []string{"API", cli.Alert(err.Error())})
		fmt.Println(cli.RenderTable(cli.Table{Title: "Daemon", Headers: []string{"Field", "Value"}, Rows: rows}))
		return nil
	}

	lastPoll := "pending"
	if !st.LastPollAt.IsZero() {
		lastPoll = st.LastPollAt.Local().Format(time.RFC3339)
	}
	rows = append(rows,
		[]string{"Last poll", fmt.Sprintf("%s (#%d)", lastPoll, st.PollCount)},
		[]string{"Database", st.DBPath},
		[]string{"Subscriptions", fmt.Sprintf("%d (%d active)", st.Summary.Subscriptions, st.Summary.Active)},
		[]string{"Monthly", cli.FormatEUR(st.Summary.MonthlyEUR)},
		[]string{fmt.Sprintf("Due in %dd", st.WarningDays), strconv.Itoa(st.Summary.DeadlinesSoon)},
	)
	if st.Summary.NextDeadline != nil {
		rows = append(rows, []string{"Next deadline", cli.FormatDate(*st.Summary.NextDeadline)})
	}
	if !st.LastDigestAt.IsZero() {
		rows = append(rows, []string{"Last digest", st.LastDigestAt.Local().Format(time.RFC3339)})
	}
	if st.LastError != "" {
		rows = append(rows, []string{"Last error", cli.Alert(st.LastError)})
	}

	fmt.Println(cli.RenderTable(cli.Table{Title: "Daemon", Headers: []string{"Field", "Value"}, Rows: rows}))
	return nil
}

func fetchDaemonStatus(addr string) (daemon.Status, error) {
	var st daemon.Status

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/v1/status", nil)
	if err != nil {
		return st, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return st, fmt.Errorf("unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("malformed status: %w", err)
	}
	return st, nil
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	pf := pidFile(flagDaemonPIDFile)
	pid, err := pf.read()
	if err != nil {
		return errors.New("daemon is not running")
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find daemon process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal daemon: %w", err)
	}

	tick := time.NewTicker(150 * time.Millisecond)
	defer tick.Stop()
	timeout := time.After(8 * time.Second)
	for {
		select {
		case <-tick.C:
			if !processAlive(pid) {
				pf.remove()
				fmt.Printf("  Stopped daemon (pid %d)\n", pid)
				return nil
			}
		case <-timeout:
			return fmt.Errorf("daemon (pid %d) did not exit within 8s", pid)
		}
	}
}
