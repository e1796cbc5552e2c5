package engine

import (
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/snowmigrate/snowmigrate-api/internal/connections"
	"github.com/snowmigrate/snowmigrate-api/internal/jobstore"
	"github.com/snowmigrate/snowmigrate-api/internal/models"
)

// fakeProc is a scripted stand-in for the migration tool process. Its
// output streams are fixed up front; the exit is released by the test (or
// by a signal when exitOnSignal is set).
type fakeProc struct {
	pid    int
	stdout io.Reader
	stderr io.Reader

	mu           sync.Mutex
	signals      []os.Signal
	killed       bool
	exitCode     int
	exitOnSignal bool

	exited   chan struct{}
	exitOnce sync.Once
}

func newFakeProc(pid int, stdoutLines, stderrLines []string) *fakeProc {
	return &fakeProc{
		pid:    pid,
		stdout: strings.NewReader(strings.Join(stdoutLines, "\n")),
		stderr: strings.NewReader(strings.Join(stderrLines, "\n")),
		exited: make(chan struct{}),
	}
}

func (p *fakeProc) PID() int          { return p.pid }
func (p *fakeProc) Stdout() io.Reader { return p.stdout }
func (p *fakeProc) Stderr() io.Reader { return p.stderr }

func (p *fakeProc) Signal(sig os.Signal) error {
	p.mu.Lock()
	p.signals = append(p.signals, sig)
	release := p.exitOnSignal
	p.mu.Unlock()
	if release {
		p.exitOnce.Do(func() { close(p.exited) })
	}
	return nil
}

func (p *fakeProc) Kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	p.exitOnce.Do(func() { close(p.exited) })
	return nil
}

func (p *fakeProc) Wait() (int, error) {
	<-p.exited
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode, nil
}

// exit releases Wait with the given code.
func (p *fakeProc) exit(code int) {
	p.mu.Lock()
	p.exitCode = code
	p.mu.Unlock()
	p.exitOnce.Do(func() { close(p.exited) })
}

func (p *fakeProc) sentSignals() []os.Signal {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]os.Signal, len(p.signals))
	copy(out, p.signals)
	return out
}

func (p *fakeProc) wasKilled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

type launchRecord struct {
	path string
	args []string
	env  []string
}

// fakeLauncher hands out scripted processes in order and records every
// launch request.
type fakeLauncher struct {
	mu       sync.Mutex
	err      error
	queue    []*fakeProc
	launches []launchRecord
}

func (l *fakeLauncher) Launch(path string, args []string, env []string) (process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launches = append(l.launches, launchRecord{path: path, args: args, env: env})
	if l.err != nil {
		return nil, l.err
	}
	if len(l.queue) == 0 {
		return nil, errors.New("no scripted process")
	}
	p := l.queue[0]
	l.queue = l.queue[1:]
	return p, nil
}

func (l *fakeLauncher) lastLaunch(t *testing.T) launchRecord {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.launches) == 0 {
		t.Fatal("no launches recorded")
	}
	return l.launches[len(l.launches)-1]
}

func newTestEngine(l launcher, ceiling int) (*Engine, *jobstore.Store, *connections.Manager) {
	store := jobstore.New()
	conns := connections.NewManager()
	eng := New(store, conns, zerolog.Nop(), Options{
		CLIPath:       "/usr/local/bin/migrate-tool",
		MaxConcurrent: ceiling,
		GracePeriod:   100 * time.Millisecond,
		PollInterval:  20 * time.Millisecond,
	})
	eng.launcher = l
	return eng, store, conns
}

// seedJob registers a source/target connection pair and creates a two-table
// job against them.
func seedJob(eng *Engine, conns *connections.Manager) models.Job {
	src := conns.AddSource(models.SourceConnection{
		Name:     "pg",
		Type:     models.SourcePostgres,
		Host:     "db.local",
		Port:     5432,
		Database: "app",
		Username: "reader",
		Password: "source-secret",
	})
	tgt := conns.AddTarget(models.SnowflakeConnection{
		Name:      "snow",
		Account:   "acct-123",
		Warehouse: "LOAD_WH",
		Database:  "ANALYTICS",
		Username:  "loader",
		Password:  "target-secret",
	})
	return eng.CreateJob(models.JobSpec{
		SourceConnectionID: src.ID,
		TargetConnectionID: tgt.ID,
		StagingAreaID:      "s3-default",
		Tables: []models.TableSelection{
			{SchemaName: "public", TableName: "users"},
			{SchemaName: "public", TableName: "orders"},
		},
	})
}
