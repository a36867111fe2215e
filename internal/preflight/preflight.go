// Package preflight runs the environment checks behind `watchtap doctor`.
//
// Each check produces exactly one result line. Checks are either blocking
// (a failure should stop the pipeline before it wastes a run) or advisory
// (worth a line, never a verdict).
package preflight

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"time"

	"watchtap/internal/datastore"
)

// Verdict classifies one check result.
type Verdict uint8

const (
	Pass Verdict = iota + 1
	Warn
	Fail
	Skipped
)

func (v Verdict) String() string {
	switch v {
	case Pass:
		return "pass"
	case Warn:
		return "warn"
	case Fail:
		return "fail"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Result is one check outcome.
type Result struct {
	Name     string
	Verdict  Verdict
	Detail   string
	Advisory bool
}

// Blocking reports whether this result should fail the doctor run.
func (r Result) Blocking() bool {
	return r.Verdict == Fail && !r.Advisory
}

// Check is a named probe of the environment.
type Check struct {
	Name     string
	Advisory bool
	Run      func(ctx context.Context) (Verdict, string)
}

// Doctor holds the environment a check suite runs against.
type Doctor struct {
	rt         datastore.ContainerRuntime
	serviceURL string
	hint       string
	remoteDir  string
	workDir    string
	skipNTP    bool
	ntpQuery   NTPQueryFunc
	log        *slog.Logger
}

// Option configures a Doctor.
type Option func(*Doctor)

// WithNTPQuery replaces the NTP query (testing).
func WithNTPQuery(fn NTPQueryFunc) Option {
	return func(d *Doctor) { d.ntpQuery = fn }
}

// SkipNTP drops the clock-skew check from the suite.
func SkipNTP() Option {
	return func(d *Doctor) { d.skipNTP = true }
}

// New builds a Doctor. remoteDir is the directory inside the container that
// must exist for the datastore to ever appear; workDir is where snapshots
// will be written locally.
func New(rt datastore.ContainerRuntime, serviceURL, hint, remoteDir, workDir string, opts ...Option) *Doctor {
	d := &Doctor{
		rt:         rt,
		serviceURL: serviceURL,
		hint:       hint,
		remoteDir:  remoteDir,
		workDir:    workDir,
		ntpQuery:   QueryPool,
		log:        slog.With("component", "preflight"),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Run executes the whole suite in order and returns every result. A failed
// check never stops the remaining ones: the point of doctor is the complete
// picture, not the first problem.
func (d *Doctor) Run(ctx context.Context) []Result {
	checks := []Check{
		{Name: "container engine", Run: d.checkEngine},
		{Name: "target container", Run: d.checkContainer},
		{Name: "service port", Advisory: true, Run: d.checkPort},
		{Name: "datastore directory", Run: d.checkDatastoreDir},
		{Name: "working directory", Run: d.checkWorkDir},
	}
	if !d.skipNTP {
		checks = append(checks, Check{Name: "clock skew", Advisory: true, Run: d.checkClock})
	}

	results := make([]Result, 0, len(checks))
	for _, c := range checks {
		verdict, detail := c.Run(ctx)
		d.log.Debug("check finished", "name", c.Name, "verdict", verdict.String(), "detail", detail)
		results = append(results, Result{Name: c.Name, Verdict: verdict, Detail: detail, Advisory: c.Advisory})
	}
	return results
}

// Blockers counts results that should fail the run.
func Blockers(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Blocking() {
			n++
		}
	}
	return n
}

func (d *Doctor) checkEngine(ctx context.Context) (Verdict, string) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := d.rt.WaitReady(ctx); err != nil {
		return Fail, fmt.Sprintf("engine not reachable: %v", err)
	}
	return Pass, "engine reachable"
}

// resolve finds the target container; both failure modes of discovery are
// surfaced verbatim so doctor output matches what apikey would report.
func (d *Doctor) resolve(ctx context.Context) (datastore.ContainerRef, error) {
	refs, err := d.rt.ListRunning(ctx)
	if err != nil {
		return datastore.ContainerRef{}, fmt.Errorf("list containers: %w", err)
	}
	return datastore.FindByHint(refs, d.hint)
}

func (d *Doctor) checkContainer(ctx context.Context) (Verdict, string) {
	ref, err := d.resolve(ctx)
	if err != nil {
		return Fail, err.Error()
	}
	return Pass, fmt.Sprintf("resolved %s", ref.Name)
}

// checkPort cross-references the service URL's port against the container's
// published ports. A container serving only on the compose network publishes
// nothing, so no bindings is a note, not a failure.
func (d *Doctor) checkPort(ctx context.Context) (Verdict, string) {
	ref, err := d.resolve(ctx)
	if err != nil {
		return Skipped, "no container to inspect"
	}

	port, err := servicePort(d.serviceURL)
	if err != nil {
		return Fail, err.Error()
	}

	bindings, err := d.rt.PublishedPorts(ctx, ref.ID)
	if err != nil {
		return Fail, fmt.Sprintf("inspect ports: %v", err)
	}
	if len(bindings) == 0 {
		return Warn, fmt.Sprintf("no published ports; %s must be reachable over the container network", d.serviceURL)
	}
	for _, b := range bindings {
		if b.ContainerPort == port || b.HostPort == port {
			return Pass, fmt.Sprintf("port %d published (%d/%s -> %s:%d)", port, b.ContainerPort, b.Proto, b.HostIP, b.HostPort)
		}
	}
	return Fail, fmt.Sprintf("port %d from %s not among the container's published ports", port, d.serviceURL)
}

func (d *Doctor) checkDatastoreDir(ctx context.Context) (Verdict, string) {
	ref, err := d.resolve(ctx)
	if err != nil {
		return Skipped, "no container to inspect"
	}

	res, err := d.rt.Exec(ctx, ref.ID, []string{"test", "-d", d.remoteDir})
	if err != nil {
		return Fail, fmt.Sprintf("exec in container: %v", err)
	}
	if res.ExitCode != 0 {
		return Fail, fmt.Sprintf("%s does not exist in container %s", d.remoteDir, ref.Name)
	}
	return Pass, fmt.Sprintf("%s present", d.remoteDir)
}

func (d *Doctor) checkWorkDir(_ context.Context) (Verdict, string) {
	f, err := os.CreateTemp(d.workDir, ".watchtap-doctor-*")
	if err != nil {
		return Fail, fmt.Sprintf("cannot write to %s: %v", d.workDir, err)
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return Pass, fmt.Sprintf("%s writable", d.workDir)
}

func (d *Doctor) checkClock(_ context.Context) (Verdict, string) {
	offset, err := d.ntpQuery(NTPPool)
	if err != nil {
		// CI runners often block NTP; that says nothing about the clock.
		return Skipped, fmt.Sprintf("%s unreachable: %v", NTPPool, err)
	}
	if abs(offset) >= NTPThreshold {
		return Warn, fmt.Sprintf("clock off by %s (threshold %s)", offset, NTPThreshold)
	}
	return Pass, fmt.Sprintf("clock within %s of %s", NTPThreshold, NTPPool)
}

// servicePort pulls the port out of the service URL, defaulting by scheme.
func servicePort(rawURL string) (int, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, fmt.Errorf("parse service URL %q: %w", rawURL, err)
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("service URL %q has invalid port: %w", rawURL, err)
		}
		return port, nil
	}
	if u.Scheme == "https" {
		return 443, nil
	}
	return 80, nil
}

func abs(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
